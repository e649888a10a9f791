// Package summarize asks the completion service for structured findings
// over uploaded-document text.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/joelkehle/pharma-discovery/internal/completion"
	"github.com/joelkehle/pharma-discovery/internal/record"
)

const (
	systemPrompt = "You summarize pharmaceutical internal documents."
	temperature  = 0.1
	maxTokens    = 900
)

const promptTemplate = `Return ONLY valid JSON.

Format:
{
  "executive_points": [],
  "key_findings": [],
  "risks": [],
  "opportunities": [],
  "repurposing_signals": [],
  "confidence_note": ""
}

TEXT:
%s
`

// reply is the decoded completion output. Scalar fields tolerate lists and
// numbers.
type reply struct {
	ExecutivePoints    record.StringList `json:"executive_points"`
	KeyFindings        record.StringList `json:"key_findings"`
	Risks              record.StringList `json:"risks"`
	Opportunities      record.StringList `json:"opportunities"`
	RepurposingSignals record.StringList `json:"repurposing_signals"`
	ConfidenceNote     record.Text       `json:"confidence_note"`
}

type Adapter struct {
	caller   completion.Caller
	maxChars int
	log      zerolog.Logger
}

func New(caller completion.Caller, maxChars int, log zerolog.Logger) *Adapter {
	if maxChars <= 0 {
		maxChars = 12000
	}
	return &Adapter{caller: caller, maxChars: maxChars, log: log.With().Str("component", "summarize").Logger()}
}

// Summarize returns the parsed findings, or nil on any call or parse
// failure.
func (a *Adapter) Summarize(ctx context.Context, text string) *record.Findings {
	req := completion.Request{
		System:      systemPrompt,
		Prompt:      BuildPrompt(text, a.maxChars),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	var out reply
	if _, err := completion.CompleteJSON(ctx, a.caller, req, &out); err != nil {
		a.log.Warn().Str("kind", string(completion.KindOf(err))).Err(err).Msg("summary_failed")
		return nil
	}
	f := record.DocumentSummary{Findings: record.Findings{
		ExecutivePoints:    out.ExecutivePoints,
		KeyFindings:        out.KeyFindings,
		Risks:              out.Risks,
		Opportunities:      out.Opportunities,
		RepurposingSignals: out.RepurposingSignals,
		ConfidenceNote:     strings.TrimSpace(string(out.ConfidenceNote)),
	}}
	f.Normalize()
	return &f.Findings
}

// BuildPrompt embeds text truncated to maxChars runes.
func BuildPrompt(text string, maxChars int) string {
	r := []rune(text)
	if len(r) > maxChars {
		r = r[:maxChars]
	}
	return fmt.Sprintf(promptTemplate, string(r))
}
