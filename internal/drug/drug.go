// Package drug validates and normalizes the drug identifier used as the
// cache key and directory name for every run.
package drug

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

const MinLength = 4

var (
	ErrEmpty        = errors.New("drug name is empty")
	ErrTooShort     = errors.New("drug name is too short")
	ErrNumeric      = errors.New("drug name cannot be purely numeric")
	ErrInvalidChars = errors.New("drug name contains invalid characters")
)

// Normalize trims and lower-cases name without validating it.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Validate normalizes name and rejects identifiers that cannot be a drug
// name or cannot be used safely as a directory name.
func Validate(name string) (string, error) {
	n := Normalize(name)
	if n == "" {
		return "", ErrEmpty
	}
	if strings.Contains(n, "..") || strings.ContainsAny(n, `/\`) {
		return "", ErrInvalidChars
	}
	for _, r := range n {
		if unicode.IsControl(r) {
			return "", ErrInvalidChars
		}
	}
	length := utf8.RuneCountInString(n)
	if isAll(n, unicode.IsDigit) {
		return "", ErrNumeric
	}
	if length < MinLength {
		return "", ErrTooShort
	}
	// Purely alphabetic names of three letters or fewer are abbreviations,
	// not drugs. MinLength already covers them; the check stays explicit in
	// case MinLength is lowered.
	if isAll(n, unicode.IsLetter) && length <= 3 {
		return "", ErrTooShort
	}
	return n, nil
}

func isAll(s string, pred func(rune) bool) bool {
	for _, r := range s {
		if !pred(r) {
			return false
		}
	}
	return s != ""
}
