package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joelkehle/pharma-discovery/internal/record"
	"github.com/joelkehle/pharma-discovery/internal/report"
)

var (
	reportPDF     bool
	reportRefresh bool
)

var reportCmd = &cobra.Command{
	Use:   "report <drug>",
	Short: "Write final_summary.md (and optionally final_summary.pdf) for a drug",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := buildApp(cfg, logger)
		c, err := a.orch.LoadOrRun(cmd.Context(), args[0], reportRefresh)
		if err != nil {
			return err
		}
		return writeReport(cmd, a, c, reportPDF)
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportPDF, "pdf", false, "also render a PDF with headless Chromium")
	reportCmd.Flags().BoolVar(&reportRefresh, "refresh", false, "re-run collectors instead of using the cached record")
}

func writeReport(cmd *cobra.Command, a *app, c *record.Combined, pdf bool) error {
	var renderer report.PDFRenderer
	if pdf {
		renderer = a.pdf
	}
	files, err := report.Write(cmd.Context(), a.store, c, renderer)
	if files.Markdown != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Report: %s\n", files.Markdown)
	}
	if files.PDF != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "PDF: %s\n", files.PDF)
	}
	return err
}
