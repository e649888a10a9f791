package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Document Summary sources.
const (
	SourceMockInternal = "mock_internal"
	SourceUploadedDocs = "uploaded_docs"
)

// Document Summary states.
const (
	DocStatusEmpty         = "empty"
	DocStatusSummarized    = "summarized"
	DocStatusSummaryFailed = "summary_failed"
	DocStatusRejected      = "rejected"
)

const (
	NoteSummaryFailed = "Drug name detected, but AI summarization failed."
	NoteUnrelated     = "Uploaded document appears unrelated to the specified drug."
	NoteTooLittleText = "Uploaded documents contain too little readable text to analyse."
)

// RejectionSuggestions are shown whenever uploaded material is rejected.
var RejectionSuggestions = []string{
	"Upload a PDF related to the drug name",
	"Prefer clinical trials, formulation, or safety documents",
	"Ensure the drug name appears in the document",
}

// Findings is the structured part of a Document Summary, as produced by the
// summarizer or by a fallback.
type Findings struct {
	ExecutivePoints    StringList `json:"executive_points"`
	KeyFindings        StringList `json:"key_findings"`
	Risks              StringList `json:"risks"`
	Opportunities      StringList `json:"opportunities"`
	RepurposingSignals StringList `json:"repurposing_signals"`
	ConfidenceNote     string     `json:"confidence_note"`
}

type DocumentSummary struct {
	Findings
	Suggestions    []string `json:"suggestions"`
	Status         string   `json:"status"`
	Source         string   `json:"source"`
	DocumentCount  int      `json:"document_count"`
	RawTextPreview string   `json:"raw_text_preview"`
}

// PlaceholderSummary is the Document Summary produced when no documents were
// uploaded.
func PlaceholderSummary() DocumentSummary {
	s := DocumentSummary{Status: DocStatusEmpty, Source: SourceMockInternal}
	s.Normalize()
	return s
}

// FallbackFindings is the canned structure used when a summary cannot be
// produced from the uploaded text.
func FallbackFindings(note string) Findings {
	f := Findings{
		ExecutivePoints: StringList{"Internal document uploaded."},
		ConfidenceNote:  note,
	}
	f.normalize()
	return f
}

func (s *DocumentSummary) Normalize() {
	s.Findings.normalize()
	s.Suggestions = nonNil(s.Suggestions)
}

func (f *Findings) normalize() {
	f.ExecutivePoints = nonNil(f.ExecutivePoints)
	f.KeyFindings = nonNil(f.KeyFindings)
	f.Risks = nonNil(f.Risks)
	f.Opportunities = nonNil(f.Opportunities)
	f.RepurposingSignals = nonNil(f.RepurposingSignals)
}

// Recommendation values accepted from the completion service.
const (
	DecisionYes         = "YES"
	DecisionNo          = "NO"
	DecisionConditional = "CONDITIONAL"
	DecisionUnclear     = "UNCLEAR"
)

type Recommendation struct {
	Recommendation string     `json:"recommendation"`
	Reasons        StringList `json:"reasons"`
	ShortSummary   string     `json:"short_summary"`
	Fallback       bool       `json:"fallback"`
}

type RepurposeDecision struct {
	Decision    string     `json:"decision"`
	Reasons     StringList `json:"reasons"`
	Explanation string     `json:"explanation"`
	Fallback    bool       `json:"fallback"`
}

// StringList decodes a JSON string, a list of scalars, or a list of objects
// into a flat list of strings. Completion-service output is not consistent
// about which shape it uses.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = StringList{}
		return nil
	}
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			*l = StringList{}
		} else {
			*l = StringList{strings.TrimSpace(v)}
		}
	case []any:
		out := make(StringList, 0, len(v))
		for _, item := range v {
			if s := flatten(item); s != "" {
				out = append(out, s)
			}
		}
		*l = out
	default:
		*l = StringList{flatten(v)}
	}
	return nil
}

// Text decodes any JSON value into one string: scalars as written, lists
// joined with newlines, objects as compact JSON. Completion replies use it
// for fields the prompt asks to be a string.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	items, ok := raw.([]any)
	if !ok {
		*t = Text(flatten(raw))
		return nil
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if s := flatten(item); s != "" {
			parts = append(parts, s)
		}
	}
	*t = Text(strings.Join(parts, "\n"))
	return nil
}

func flatten(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case map[string]any, []any:
		b, _ := json.Marshal(x)
		return string(b)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
