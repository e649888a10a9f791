// Package recommend produces the business recommendation and the
// repurposing decision from a Combined Record.
package recommend

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"github.com/joelkehle/pharma-discovery/internal/completion"
	"github.com/joelkehle/pharma-discovery/internal/record"
)

const recommenderSystem = `You are a pharmaceutical strategy assistant.

Your job:
- Give a simple recommendation about drug repurposing.
- Only return JSON.
- Give 4-6 short reasons.
- Give a 3-5 line short summary.
- Keep it simple and business-friendly.

Return a JSON object with keys "recommendation", "reasons" and "short_summary".`

const decisionSystem = `You are a senior pharmaceutical strategy scientist.

Your job:
- Decide whether the drug SHOULD be repurposed.
- Decide among YES / NO / CONDITIONAL.
- Give 4-6 scientific and market reasons.
- Give a clear explanation (4-6 sentences).
- Use evidence from PubMed, clinical trials, patents, unmet needs, EXIM & IQVIA if available.
- If evidence is weak or missing, say so.

OUTPUT FORMAT (must follow exactly):

{
  "decision": "YES or NO or CONDITIONAL",
  "reasons": ["reason1", "reason2", ...],
  "explanation": "full paragraph here"
}`

// Replies are decoded leniently: a list where a string was asked for is
// joined rather than rejected.
type recommendationReply struct {
	Recommendation record.Text       `json:"recommendation"`
	Reasons        record.StringList `json:"reasons"`
	ShortSummary   record.Text       `json:"short_summary"`
}

type decisionReply struct {
	Decision    record.Text       `json:"decision"`
	Reasons     record.StringList `json:"reasons"`
	Explanation record.Text       `json:"explanation"`
}

// Compact is the projection of a Combined Record sent to the completion
// service.
type Compact struct {
	Drug           string                  `json:"drug"`
	PubMedCount    int                     `json:"pubmed_count"`
	ClinicalTrials int                     `json:"clinical_trials"`
	PatentCount    int                     `json:"patent_count"`
	UnmetNeeds     []string                `json:"unmet_needs"`
	Market         record.MarketSnapshot   `json:"market"`
	EXIM           record.Trade            `json:"exim"`
	Internal       *record.DocumentSummary `json:"internal,omitempty"`
}

func compact(c *record.Combined, withInternal bool) Compact {
	out := Compact{
		Drug:           c.Drug,
		PubMedCount:    c.PubMedCount,
		ClinicalTrials: len(c.ClinicalTrials),
		PatentCount:    len(c.Patents),
		UnmetNeeds:     c.UnmetNeeds,
		Market:         c.IQVIA,
		EXIM:           c.EXIM,
	}
	if withInternal {
		internal := c.InternalSummary
		out.Internal = &internal
	}
	return out
}

func compactJSON(c *record.Combined, withInternal bool) string {
	blob, err := json.MarshalIndent(compact(c, withInternal), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(blob)
}

type Synthesizer struct {
	caller completion.Caller
	log    zerolog.Logger
}

func New(caller completion.Caller, log zerolog.Logger) *Synthesizer {
	return &Synthesizer{caller: caller, log: log.With().Str("component", "recommend").Logger()}
}

func RecommendationFallback() record.Recommendation {
	return record.Recommendation{
		Recommendation: record.DecisionUnclear,
		Reasons:        record.StringList{"AI summary failed."},
		ShortSummary:   "No automated reasoning available.",
		Fallback:       true,
	}
}

func DecisionFallback(raw string) record.RepurposeDecision {
	if strings.TrimSpace(raw) == "" {
		raw = "No automated reasoning available."
	}
	return record.RepurposeDecision{
		Decision:    record.DecisionUnclear,
		Reasons:     record.StringList{"Model did not return proper JSON"},
		Explanation: raw,
		Fallback:    true,
	}
}

// Recommend returns the business recommendation, or the documented
// fallback when the reply cannot be parsed.
func (s *Synthesizer) Recommend(ctx context.Context, c *record.Combined) record.Recommendation {
	req := completion.Request{
		System:      recommenderSystem,
		Prompt:      compactJSON(c, false),
		Temperature: 0.2,
		MaxTokens:   400,
	}
	var reply recommendationReply
	if _, err := completion.CompleteJSON(ctx, s.caller, req, &reply); err != nil {
		s.log.Warn().Str("drug", c.Drug).Str("kind", string(completion.KindOf(err))).Err(err).Msg("recommendation_fallback")
		return RecommendationFallback()
	}
	out := record.Recommendation{
		Recommendation: strings.TrimSpace(string(reply.Recommendation)),
		Reasons:        nonNil(reply.Reasons),
		ShortSummary:   strings.TrimSpace(string(reply.ShortSummary)),
	}
	if out.Recommendation == "" {
		out.Recommendation = record.DecisionUnclear
	}
	return out
}

// Decide returns the YES/NO/CONDITIONAL repurposing decision. Any other
// decision value is reported as UNCLEAR.
func (s *Synthesizer) Decide(ctx context.Context, c *record.Combined) record.RepurposeDecision {
	req := completion.Request{
		System:      decisionSystem,
		Prompt:      compactJSON(c, true),
		Temperature: 0.2,
		MaxTokens:   500,
	}
	var reply decisionReply
	raw, err := completion.CompleteJSON(ctx, s.caller, req, &reply)
	if err != nil {
		s.log.Warn().Str("drug", c.Drug).Str("kind", string(completion.KindOf(err))).Err(err).Msg("decision_fallback")
		return DecisionFallback(raw)
	}
	return record.RepurposeDecision{
		Decision:    NormalizeDecision(string(reply.Decision)),
		Reasons:     nonNil(reply.Reasons),
		Explanation: strings.TrimSpace(string(reply.Explanation)),
	}
}

func NormalizeDecision(v string) string {
	switch d := strings.ToUpper(strings.TrimSpace(v)); d {
	case record.DecisionYes, record.DecisionNo, record.DecisionConditional:
		return d
	default:
		return record.DecisionUnclear
	}
}

func nonNil(l record.StringList) record.StringList {
	if l == nil {
		return record.StringList{}
	}
	return l
}
