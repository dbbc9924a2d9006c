package main

import (
	"github.com/spf13/cobra"

	"github.com/scansort/scansort/version"
)

var (
	cfgFile string
	homeDir string
)

var rootCmd = &cobra.Command{
	Use:   "scansort",
	Short: "Batch pipeline for sorting scanned PDFs with OCR and AI classification",
	Long: `Scansort turns piles of scanned PDFs into organized, searchable
documents. Each batch is OCR'd, classified page by page, grouped into
logical documents, put into reading order, and exported into
category folders.

The pipeline includes:
  - Text-layer extraction with OCR fallback for image-only pages
  - AI page classification into configurable categories
  - Consecutive-page document grouping with a lost-and-found safety net
  - AI reading-order inference with scan-order fallback
  - Original, searchable PDF, and markdown report per document`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.scansort/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "scansort home directory (default: ~/.scansort)",
	)

	rootCmd.AddCommand(versionCmd)
}
