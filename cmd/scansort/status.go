package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/scansort/scansort/internal/home"
	"github.com/scansort/scansort/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status [batch-id]",
	Short: "Show batch processing status",
	Long: `Status lists all recorded batches. With a batch ID it shows per-unit
progress: which pages are OCR'd and classified, and which documents
have been exported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		store, err := state.Open(h.StateDBPath())
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		if len(args) == 1 {
			return printUnits(cmd, store, args[0])
		}

		batches, err := store.ListBatches(ctx)
		if err != nil {
			return err
		}
		if len(batches) == 0 {
			fmt.Println("no batches recorded")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "BATCH\tSTATUS\tCREATED")
		for _, b := range batches {
			fmt.Fprintf(w, "%s\t%s\t%s\n", b.ID, b.Status, b.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

func printUnits(cmd *cobra.Command, store *state.Store, batchID string) error {
	units, err := store.Units(cmd.Context(), batchID)
	if err != nil {
		return err
	}
	if len(units) == 0 {
		fmt.Printf("no state recorded for batch %s\n", batchID)
		return nil
	}

	names := make([]string, 0, len(units))
	for name := range units {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "UNIT\tOCR\tAI\tFINALIZED\tRESULT")
	for _, name := range names {
		r := units[name]
		result := r.AIResult
		if len(result) > 40 {
			result = result[:40] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			name, mark(r.OCRDone), mark(r.AIDone), mark(r.Finalized), result)
	}
	return w.Flush()
}

func mark(done bool) string {
	if done {
		return "done"
	}
	return "-"
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
