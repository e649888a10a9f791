package drug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsAndNormalizes(t *testing.T) {
	cases := map[string]string{
		"Paracetamol":          "paracetamol",
		"  Metformin  ":        "metformin",
		"5-fluorouracil":       "5-fluorouracil",
		"Acetylsalicylic acid": "acetylsalicylic acid",
		"ibuprofen":            "ibuprofen",
	}
	for in, want := range cases {
		got, err := Validate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		in   string
		want error
	}{
		{"", ErrEmpty},
		{"   ", ErrEmpty},
		{"abc", ErrTooShort},
		{"ab", ErrTooShort},
		{"a1", ErrTooShort},
		{"1234", ErrNumeric},
		{"42", ErrNumeric},
		{"../etc", ErrInvalidChars},
		{"para/cetamol", ErrInvalidChars},
		{`para\cetamol`, ErrInvalidChars},
		{"aspi\x00rin", ErrInvalidChars},
	}
	for _, tc := range cases {
		_, err := Validate(tc.in)
		assert.ErrorIs(t, err, tc.want, "input %q", tc.in)
	}
}

func TestValidateShortOrNumericAlwaysRejected(t *testing.T) {
	short := []string{"a", "zz", "xyz", "x1", "9", "a b"}
	for _, s := range short {
		_, err := Validate(s)
		assert.Error(t, err, s)
	}
	numeric := []string{"0000", "123456", "9999999"}
	for _, s := range numeric {
		_, err := Validate(s)
		assert.ErrorIs(t, err, ErrNumeric, s)
	}
}
