package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"medical-summary/internal/helper"
)

var (
	summarizeDryRun bool
	summarizeOut    string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [url-or-path...]",
	Short: "Summarize documents once and store the report",
	Long: `Runs the summary pipeline over the given documents. Locations may be http(s)
URLs or local paths. With --dry-run the synthesized record is printed as JSON
and nothing is rendered or stored.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().BoolVar(&summarizeDryRun, "dry-run", false, "print the record instead of rendering and storing a report")
	summarizeCmd.Flags().StringVarP(&summarizeOut, "out", "o", "", "also write the rendered PDF to this path")
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if summarizeDryRun {
		record, err := a.pipeline.Summarize(ctx, args)
		if err != nil {
			return err
		}
		helper.PrettyPrint(record)
		return nil
	}

	result, err := a.pipeline.Run(ctx, args)
	if err != nil {
		return err
	}

	if summarizeOut != "" {
		blob, err := a.store.Retrieve(ctx, result.FileName)
		if err != nil {
			return fmt.Errorf("failed to read back %s: %w", result.FileName, err)
		}
		if err := os.WriteFile(summarizeOut, blob.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", summarizeOut, err)
		}
	}

	cmd.Printf("Report %s: %s\n", result.ReportID, result.URL)
	return nil
}
