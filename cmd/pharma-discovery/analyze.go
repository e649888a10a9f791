package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joelkehle/pharma-discovery/internal/drug"
	"github.com/joelkehle/pharma-discovery/internal/ingest"
	"github.com/joelkehle/pharma-discovery/internal/record"
	"github.com/joelkehle/pharma-discovery/internal/snapshot"
)

var (
	analyzeFiles  []string
	analyzeReport bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <drug>",
	Short: "Run every collector for a drug and write the combined record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := drug.Validate(args[0])
		if err != nil {
			return err
		}
		a := buildApp(cfg, logger)
		out := cmd.OutOrStdout()

		if cmd.Flags().Changed("file") {
			if err := a.store.ClearUploads(id); err != nil {
				return fmt.Errorf("clear uploads: %w", err)
			}
			for _, path := range analyzeFiles {
				if !ingest.Supported(path) {
					fmt.Fprintf(out, "skipping unsupported file %s\n", path)
					continue
				}
				if err := copyUpload(a, id, path); err != nil {
					return err
				}
			}
		}

		fmt.Fprintf(out, "=== Analyzing %s ===\n", id)
		a.orch.OnProgress(func(domain string, st record.SourceStatus) {
			mark := "ok"
			if st.Status != record.StatusOK {
				mark = "fallback: " + st.Error
			}
			fmt.Fprintf(out, "  %-18s %4d items  %s\n", domain, st.Items, mark)
		})
		c, err := a.orch.Run(cmd.Context(), id)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Recommendation: %s\n", c.AIRecommendation.Recommendation)
		fmt.Fprintf(out, "Repurposing decision: %s\n", c.RepurposeDecision.Decision)
		fmt.Fprintf(out, "Combined record: %s\n", a.store.Path(id, snapshot.FileCombined))
		if analyzeReport {
			return writeReport(cmd, a, c, false)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringArrayVarP(&analyzeFiles, "file", "f", nil, "internal document to ingest (repeatable; replaces earlier uploads)")
	analyzeCmd.Flags().BoolVar(&analyzeReport, "report", false, "also write the Markdown report")
}

func copyUpload(a *app, id, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	if _, err := a.store.SaveUpload(id, filepath.Base(path), f); err != nil {
		return fmt.Errorf("save upload %s: %w", path, err)
	}
	return nil
}
