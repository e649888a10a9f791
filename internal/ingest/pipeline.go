// Package ingest turns a batch of uploaded documents into a Document
// Summary: text extraction, OCR enrichment, a relevance check against the
// drug name, and summarization or rejection.
package ingest

import (
	"context"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/joelkehle/pharma-discovery/internal/config"
	"github.com/joelkehle/pharma-discovery/internal/record"
)

// SupportedExtensions is the upload allow-list. Other files are ignored.
var SupportedExtensions = []string{".pdf", ".txt", ".docx"}

func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Summarizer produces findings from pooled text, or nil when it cannot.
type Summarizer interface {
	Summarize(ctx context.Context, text string) *record.Findings
}

type Options struct {
	OCREnabled   bool
	MinTextChars int
	OCRMaxPages  int
	PreviewChars int
}

func OptionsFromConfig(cfg config.DocumentsConfig) Options {
	return Options{
		OCREnabled:   cfg.OCREnabled,
		MinTextChars: cfg.MinTextChars,
		OCRMaxPages:  cfg.OCRMaxPages,
		PreviewChars: cfg.PreviewChars,
	}
}

type Pipeline struct {
	extractors map[string]Extractor
	ocr        Recognizer
	summarizer Summarizer
	opts       Options
	log        zerolog.Logger
}

// NewPipeline wires the pipeline. A nil recognizer disables OCR regardless
// of opts.
func NewPipeline(extractors map[string]Extractor, ocr Recognizer, summarizer Summarizer, opts Options, log zerolog.Logger) *Pipeline {
	if opts.MinTextChars <= 0 {
		opts.MinTextChars = 300
	}
	if opts.OCRMaxPages <= 0 {
		opts.OCRMaxPages = 5
	}
	if opts.PreviewChars <= 0 {
		opts.PreviewChars = 3000
	}
	return &Pipeline{
		extractors: extractors,
		ocr:        ocr,
		summarizer: summarizer,
		opts:       opts,
		log:        log.With().Str("component", "ingest").Logger(),
	}
}

// Run processes files for drug. It always returns a Document Summary.
func (p *Pipeline) Run(ctx context.Context, drug string, files []string) record.DocumentSummary {
	docs := make([]string, 0, len(files))
	for _, f := range files {
		if Supported(f) {
			docs = append(docs, f)
		}
	}
	if len(docs) == 0 {
		return record.PlaceholderSummary()
	}

	pooled := p.extractAll(ctx, docs)
	p.log.Info().Str("drug", drug).Int("documents", len(docs)).Int("chars", runeLen(pooled)).Msg("documents_extracted")

	if runeLen(pooled) < p.opts.MinTextChars && p.opts.OCREnabled && p.ocr != nil {
		pooled = strings.TrimSpace(pooled + " " + p.recognizeAll(ctx, docs))
		p.log.Info().Str("drug", drug).Int("chars", runeLen(pooled)).Msg("ocr_enriched")
	}

	found := Mentions(pooled, drug)
	enough := runeLen(pooled) >= p.opts.MinTextChars

	var summary record.DocumentSummary
	switch {
	case found && enough:
		var findings *record.Findings
		if p.summarizer != nil {
			findings = p.summarizer.Summarize(ctx, pooled)
		}
		if findings != nil {
			summary = record.DocumentSummary{Findings: *findings, Status: record.DocStatusSummarized}
		} else {
			summary = record.DocumentSummary{Findings: record.FallbackFindings(record.NoteSummaryFailed), Status: record.DocStatusSummaryFailed}
		}
	default:
		note := record.NoteUnrelated
		if found {
			note = record.NoteTooLittleText
		}
		summary = record.DocumentSummary{
			Findings:    record.FallbackFindings(note),
			Suggestions: append([]string(nil), record.RejectionSuggestions...),
			Status:      record.DocStatusRejected,
		}
		p.log.Info().Str("drug", drug).Bool("drug_found", found).Bool("enough_text", enough).Msg("documents_rejected")
	}

	summary.Source = record.SourceUploadedDocs
	summary.DocumentCount = len(docs)
	summary.RawTextPreview = truncateRunes(pooled, p.opts.PreviewChars)
	summary.Normalize()
	return summary
}

// extractAll joins the text of every document with single spaces. A
// document that fails to extract contributes nothing.
func (p *Pipeline) extractAll(ctx context.Context, docs []string) string {
	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		ex, ok := p.extractors[strings.ToLower(filepath.Ext(doc))]
		if !ok {
			continue
		}
		text, err := ex.Extract(ctx, doc)
		if err != nil {
			p.log.Warn().Str("file", filepath.Base(doc)).Err(err).Msg("extract_failed")
			continue
		}
		if t := strings.TrimSpace(text); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.TrimSpace(strings.Join(texts, " "))
}

func (p *Pipeline) recognizeAll(ctx context.Context, docs []string) string {
	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		text, err := p.ocr.Recognize(ctx, doc, p.opts.OCRMaxPages)
		if err != nil {
			p.log.Warn().Str("file", filepath.Base(doc)).Err(err).Msg("ocr_failed")
		}
		if t := strings.TrimSpace(text); t != "" {
			texts = append(texts, t)
		}
	}
	return strings.Join(texts, " ")
}

// Mentions reports whether text names drug, case-insensitively, either
// directly or with all whitespace removed from both sides.
func Mentions(text, drug string) bool {
	d := strings.ToLower(strings.TrimSpace(drug))
	if d == "" {
		return false
	}
	t := strings.ToLower(text)
	if strings.Contains(t, d) {
		return true
	}
	return strings.Contains(stripSpace(t), stripSpace(d))
}

func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

func truncateRunes(s string, n int) string {
	if runeLen(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
