package report

import (
	"context"
	"fmt"

	"github.com/joelkehle/pharma-discovery/internal/record"
	"github.com/joelkehle/pharma-discovery/internal/snapshot"
)

// Files records where Write put the report.
type Files struct {
	Markdown string
	PDF      string
}

// Write stores final_summary.md for c and, when renderer is non-nil,
// final_summary.pdf alongside it.
func Write(ctx context.Context, store *snapshot.Store, c *record.Combined, renderer PDFRenderer) (Files, error) {
	md := Markdown(c)
	if err := store.WriteFile(c.Drug, snapshot.FileReportMD, []byte(md)); err != nil {
		return Files{}, fmt.Errorf("write markdown report: %w", err)
	}
	out := Files{Markdown: store.Path(c.Drug, snapshot.FileReportMD)}
	if renderer == nil {
		return out, nil
	}
	pdf, err := renderer.Render(ctx, Title(c), md)
	if err != nil {
		return out, err
	}
	if err := store.WriteFile(c.Drug, snapshot.FileReportPDF, pdf); err != nil {
		return out, fmt.Errorf("write pdf report: %w", err)
	}
	out.PDF = store.Path(c.Drug, snapshot.FileReportPDF)
	return out, nil
}

func Title(c *record.Combined) string {
	return "Innovation Report: " + titleCase(c.Drug)
}
