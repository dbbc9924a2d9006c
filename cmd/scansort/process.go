package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scansort/scansort/internal/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process everything in the intake directory as one batch",
	Long: `Process merges all PDFs currently in the intake directory into one
batch and runs it through the full pipeline. Interrupted batches resume
from their last completed stage on the next run.

Examples:
  scansort process
  scansort process --home /srv/scans`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfgFile, homeDir)
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.pipeline.Run(cmd.Context())
		if errors.Is(err, pipeline.ErrEmptyIntake) {
			fmt.Printf("nothing to process in %s\n", a.home.IntakePath())
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Printf("batch %s: %s\n", result.BatchID, result.Status)
		fmt.Printf("  pages:     %d\n", result.Pages)
		fmt.Printf("  documents: %d\n", len(result.Exported))
		if len(result.LostPages) > 0 {
			fmt.Printf("  recovered: %v\n", result.LostPages)
		}
		if result.Failed > 0 {
			return fmt.Errorf("%d document(s) failed to export", result.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
}
