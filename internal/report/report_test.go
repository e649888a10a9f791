package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/pharma-discovery/internal/record"
	"github.com/joelkehle/pharma-discovery/internal/snapshot"
)

func sample() *record.Combined {
	nct, title, status := "NCT0001", "Paracetamol | ibuprofen after surgery", "RECRUITING"
	c := &record.Combined{
		Drug:       "paracetamol",
		UnmetNeeds: []string{"Safer dosing in hepatic impairment"},
		ClinicalTrials: []record.Trial{
			{NCTID: &nct, Title: &title, Status: &status, Phases: []string{"PHASE3"}, Conditions: []string{"Pain", "Fever", "Other"}},
		},
		Patents: []record.Patent{{PatentID: "US123456A1", Title: "Formulation", Assignee: "Acme", Status: "Active", ExpiryYear: 2040}},
		IQVIA:   record.MarketSnapshot{MarketSize2024: "3.20B", CAGR: "5.5%", EstimatedRevenue: "3.38B", TopCompetitors: []string{"A", "B"}},
		EXIM: record.Trade{
			ExportData: record.ExportData{VolumeKgs: record.Yearly{"2023": 10, "2022": 5}},
			ImportData: record.ImportData{VolumeKgs: record.Yearly{"2022": 2}},
			Summary:    []string{"Exports grew."},
		},
		WebIntel:          []record.WebHit{{Title: "WHO guidance", Source: "who.int", URL: "https://who.int/x", Snippet: "Dosing."}},
		InternalSummary:   record.PlaceholderSummary(),
		AIRecommendation:  record.Recommendation{Recommendation: "UNCLEAR", Reasons: record.StringList{"AI summary failed."}},
		RepurposeDecision: record.RepurposeDecision{Decision: "YES", Reasons: record.StringList{"Strong evidence"}},
	}
	for i := 0; i < 12; i++ {
		c.PubMed = append(c.PubMed, record.Article{PMID: fmt.Sprint(i), Title: fmt.Sprintf("Article %02d", i)})
	}
	c.Normalize()
	return c
}

func TestMarkdownSections(t *testing.T) {
	md := Markdown(sample())

	for _, h := range []string{
		"# Innovation Report: Paracetamol", "## Executive Summary", "## AI Recommendation",
		"## Repurposing Decision", "## Unmet Needs", "## Literature (12 articles)", "## Clinical Trials (1)",
		"## Patent Landscape", "## Market Insights", "## Trade (EXIM)", "## Web Intelligence",
		"## Internal Document Insights (0 documents)",
	} {
		assert.Contains(t, md, h)
	}
	assert.Contains(t, md, "Article 09")
	assert.NotContains(t, md, "Article 10", "only the top ten articles are listed")
	assert.Contains(t, md, `Paracetamol \| ibuprofen`)
	assert.Contains(t, md, "Pain, Fever |")
	assert.Contains(t, md, "| 2022 | 5 | 2 |")
	assert.Contains(t, md, "No internal documents were uploaded.")
}

func TestMarkdownRejectedDocuments(t *testing.T) {
	c := sample()
	c.InternalSummary = record.DocumentSummary{
		Findings:      record.FallbackFindings(record.NoteUnrelated),
		Suggestions:   record.RejectionSuggestions,
		DocumentCount: 2,
	}
	md := Markdown(c)
	assert.Contains(t, md, "> "+record.NoteUnrelated)
	for _, s := range record.RejectionSuggestions {
		assert.Contains(t, md, "- "+s)
	}
}

func TestHTMLRendersTables(t *testing.T) {
	out, err := HTML("Report <x>", Markdown(sample()))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<!doctype html>"))
	assert.Contains(t, out, "<title>Report &lt;x&gt;</title>")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, `<h2 style="break-before:page">Clinical Trials (1)</h2>`)
}

type fakeRenderer struct {
	err   error
	title string
}

func (f *fakeRenderer) Render(_ context.Context, title, md string) ([]byte, error) {
	f.title = title
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-" + md[:5]), nil
}

func TestWriteStoresMarkdownAndPDF(t *testing.T) {
	store := snapshot.New(t.TempDir())
	r := &fakeRenderer{}

	files, err := Write(context.Background(), store, sample(), r)
	require.NoError(t, err)
	assert.Equal(t, "Innovation Report: Paracetamol", r.title)

	md, err := os.ReadFile(files.Markdown)
	require.NoError(t, err)
	assert.Contains(t, string(md), "## Executive Summary")
	pdf, err := os.ReadFile(files.PDF)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF-"))
}

func TestWriteKeepsMarkdownWhenPDFFails(t *testing.T) {
	store := snapshot.New(t.TempDir())
	files, err := Write(context.Background(), store, sample(), &fakeRenderer{err: errors.New("no chromium")})
	require.Error(t, err)
	assert.FileExists(t, files.Markdown)
	assert.Empty(t, files.PDF)
}
