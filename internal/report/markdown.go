// Package report renders a Combined Record as Markdown, HTML and PDF.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joelkehle/pharma-discovery/internal/record"
)

const topArticles = 10

// Markdown renders the full report for c.
func Markdown(c *record.Combined) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Innovation Report: %s\n\n", titleCase(c.Drug))
	if !c.Run.CompletedAt.IsZero() {
		fmt.Fprintf(&b, "_Generated %s (run %s)_\n\n", c.Run.CompletedAt.Format(time.RFC1123), c.Run.RunID)
	}

	fs := c.FinalSummary
	b.WriteString("## Executive Summary\n\n")
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| PubMed articles | %d |\n", fs.PubMedArticles)
	fmt.Fprintf(&b, "| Clinical trials | %d |\n", fs.ClinicalTrials)
	fmt.Fprintf(&b, "| Patents | %d |\n", fs.PatentCount)
	fmt.Fprintf(&b, "| Market size (2024) | %s |\n", cell(fs.MarketSize))
	fmt.Fprintf(&b, "| CAGR | %s |\n", cell(fs.CAGR))
	fmt.Fprintf(&b, "| Export trend | %s |\n\n", cell(fs.ExportTrend))

	b.WriteString("## AI Recommendation\n\n")
	fmt.Fprintf(&b, "**%s**", c.AIRecommendation.Recommendation)
	if s := strings.TrimSpace(c.AIRecommendation.ShortSummary); s != "" {
		fmt.Fprintf(&b, ": %s", s)
	}
	b.WriteString("\n\n")
	bullets(&b, c.AIRecommendation.Reasons)

	b.WriteString("## Repurposing Decision\n\n")
	fmt.Fprintf(&b, "**%s**\n\n", c.RepurposeDecision.Decision)
	bullets(&b, c.RepurposeDecision.Reasons)
	if s := strings.TrimSpace(c.RepurposeDecision.Explanation); s != "" {
		b.WriteString(s + "\n\n")
	}

	b.WriteString("## Unmet Needs\n\n")
	bullets(&b, c.UnmetNeeds)

	fmt.Fprintf(&b, "## Literature (%d articles)\n\n", len(c.PubMed))
	for i, a := range c.PubMed {
		if i == topArticles {
			break
		}
		fmt.Fprintf(&b, "%d. **%s** %s, %s (PMID %s)\n", i+1, inline(short(a.Title, 200)), inline(a.Journal), inline(a.Date), a.PMID)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Clinical Trials (%d)\n\n", len(c.ClinicalTrials))
	if len(c.ClinicalTrials) > 0 {
		b.WriteString("| NCT ID | Title | Phase | Status | Conditions |\n|---|---|---|---|---|\n")
		for _, t := range c.ClinicalTrials {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				cell(deref(t.NCTID)), cell(short(deref(t.Title), 100)), cell(strings.Join(t.Phases, ", ")),
				cell(deref(t.Status)), cell(strings.Join(first(t.Conditions, 2), ", ")))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Patent Landscape\n\n")
	if len(c.Patents) == 0 {
		b.WriteString("No patents.\n\n")
	} else {
		b.WriteString("| Patent | Title | Assignee | Status | Expiry |\n|---|---|---|---|---|\n")
		for _, p := range c.Patents {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %d |\n", cell(p.PatentID), cell(p.Title), cell(p.Assignee), cell(p.Status), p.ExpiryYear)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Market Insights\n\n")
	fmt.Fprintf(&b, "- Market size 2024: %s\n", inline(c.IQVIA.MarketSize2024))
	fmt.Fprintf(&b, "- CAGR: %s\n", inline(c.IQVIA.CAGR))
	fmt.Fprintf(&b, "- Estimated revenue 2025: %s\n", inline(c.IQVIA.EstimatedRevenue))
	if len(c.IQVIA.TopCompetitors) > 0 {
		fmt.Fprintf(&b, "- Top competitors: %s\n", inline(strings.Join(c.IQVIA.TopCompetitors, ", ")))
	}
	if s := strings.TrimSpace(c.IQVIA.MarketInsight); s != "" {
		fmt.Fprintf(&b, "\n%s\n", s)
	}
	b.WriteString("\n")

	b.WriteString("## Trade (EXIM)\n\n")
	bullets(&b, c.EXIM.Summary)
	if years := sortedYears(c.EXIM.ExportData.VolumeKgs, c.EXIM.ImportData.VolumeKgs); len(years) > 0 {
		b.WriteString("| Year | Export volume (kg) | Import volume (kg) |\n|---|---|---|\n")
		for _, y := range years {
			fmt.Fprintf(&b, "| %s | %d | %d |\n", y, c.EXIM.ExportData.VolumeKgs[y], c.EXIM.ImportData.VolumeKgs[y])
		}
		b.WriteString("\n")
	}
	bullets(&b, c.EXIM.Bullets)

	b.WriteString("## Web Intelligence\n\n")
	for _, h := range c.WebIntel {
		fmt.Fprintf(&b, "- [%s](%s) (%s): %s\n", inline(h.Title), h.URL, inline(h.Source), inline(short(h.Snippet, 200)))
	}
	b.WriteString("\n")

	s := c.InternalSummary
	fmt.Fprintf(&b, "## Internal Document Insights (%d documents)\n\n", s.DocumentCount)
	if s.DocumentCount == 0 {
		b.WriteString("No internal documents were uploaded.\n\n")
	} else {
		section(&b, "Executive points", s.ExecutivePoints)
		section(&b, "Key findings", s.KeyFindings)
		section(&b, "Risks", s.Risks)
		section(&b, "Opportunities", s.Opportunities)
		section(&b, "Repurposing signals", s.RepurposingSignals)
		if note := strings.TrimSpace(s.ConfidenceNote); note != "" {
			fmt.Fprintf(&b, "> %s\n\n", note)
		}
		section(&b, "Suggestions", s.Suggestions)
	}
	return b.String()
}

func bullets(b *strings.Builder, items []string) {
	if len(items) == 0 {
		return
	}
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", inline(it))
	}
	b.WriteString("\n")
}

func section(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s**\n\n", title)
	bullets(b, items)
}

func sortedYears(series ...record.Yearly) []string {
	seen := map[string]bool{}
	var years []string
	for _, s := range series {
		for y := range s {
			if !seen[y] {
				seen[y] = true
				years = append(years, y)
			}
		}
	}
	sort.Strings(years)
	return years
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func first(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// short trims s to n runes, marking the cut with an ellipsis.
func short(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func inline(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cell makes s safe inside a GFM table cell.
func cell(s string) string {
	s = inline(s)
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", `\|`)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
