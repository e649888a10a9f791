package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroCombinedEmitsEveryKey(t *testing.T) {
	var c Combined
	c.Normalize()
	blob, err := json.Marshal(c)
	require.NoError(t, err)

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(blob, &m))
	for _, key := range append([]string{"drug", "pubmed_count", "final_summary", "ai_recommendation", "repurpose_decision", "run", "sources"}, Domains...) {
		assert.Contains(t, m, key)
	}
	assert.JSONEq(t, `[]`, string(m[DomainPubMed]))
	assert.JSONEq(t, `[]`, string(m[DomainTrials]))

	var exim map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(m[DomainEXIM], &exim))
	assert.Contains(t, exim, "export_data")
	assert.JSONEq(t, `[]`, string(exim["trade_history"]))
}

func TestTrialNullScalarsAndEmptyLists(t *testing.T) {
	c := Combined{ClinicalTrials: []Trial{{}}}
	c.Normalize()
	blob, err := json.Marshal(c.ClinicalTrials[0])
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(blob, &m))
	assert.Contains(t, m, "nct_id")
	assert.Nil(t, m["nct_id"])
	assert.Nil(t, m["enrollment"])
	assert.Equal(t, []any{}, m["interventions"])
	assert.Equal(t, []any{}, m["locations"])
}

func TestPlaceholderSummary(t *testing.T) {
	s := PlaceholderSummary()
	assert.Equal(t, SourceMockInternal, s.Source)
	assert.Zero(t, s.DocumentCount)
	assert.Equal(t, DocStatusEmpty, s.Status)
	assert.NotNil(t, s.Risks)
	assert.NotNil(t, s.Suggestions)
}

func TestFallbackFindings(t *testing.T) {
	f := FallbackFindings(NoteSummaryFailed)
	assert.Equal(t, StringList{"Internal document uploaded."}, f.ExecutivePoints)
	assert.Empty(t, f.KeyFindings)
	assert.NotNil(t, f.KeyFindings)
	assert.Equal(t, NoteSummaryFailed, f.ConfidenceNote)
}

func TestStringListAcceptsMixedShapes(t *testing.T) {
	var f Findings
	blob := `{
		"executive_points": "single point",
		"key_findings": ["a", 2, null, {"finding": "b"}],
		"risks": null,
		"confidence_note": "moderate"
	}`
	require.NoError(t, json.Unmarshal([]byte(blob), &f))
	assert.Equal(t, StringList{"single point"}, f.ExecutivePoints)
	assert.Equal(t, StringList{"a", "2", `{"finding":"b"}`}, f.KeyFindings)
	assert.Equal(t, StringList{}, f.Risks)
	assert.Equal(t, "moderate", f.ConfidenceNote)
}

func TestTextAcceptsAnyShape(t *testing.T) {
	cases := []struct {
		in   string
		want Text
	}{
		{`"  plain  "`, "plain"},
		{`0.8`, "0.8"},
		{`true`, "true"},
		{`null`, ""},
		{`["line one", "line two", null, 3]`, "line one\nline two\n3"},
		{`{"level": "high"}`, `{"level":"high"}`},
	}
	for _, tc := range cases {
		var got Text
		require.NoError(t, json.Unmarshal([]byte(tc.in), &got), tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}
