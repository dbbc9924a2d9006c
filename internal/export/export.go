// Package export writes the final artifacts for each document group:
// the split original PDF, a searchable copy with an invisible text
// layer, and a markdown report, all under the category's output
// directory.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/scansort/scansort/internal/batch"
	"github.com/scansort/scansort/internal/extract"
	"github.com/scansort/scansort/internal/home"
)

// Artifacts lists the files written for one document group.
type Artifacts struct {
	Dir           string
	OriginalPDF   string
	SearchablePDF string
	Report        string
}

// Exporter finalizes document groups into the output tree.
type Exporter struct {
	home   *home.Dir
	logger *slog.Logger
	conf   *model.Configuration
	now    func() time.Time
}

// NewExporter creates an exporter rooted at the given home directory.
func NewExporter(h *home.Dir, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Exporter{
		home:   h,
		logger: logger.With("component", "export"),
		conf:   conf,
		now:    time.Now,
	}
}

// ExportGroup writes all three artifacts for a group. batchPDF is the
// merged batch document; the group's pages reference pages within it,
// already in finalized reading order. texts must match that order.
// status is the batch's processing status, embedded in the report.
func (e *Exporter) ExportGroup(ctx context.Context, batchPDF string, g batch.DocumentGroup, sources []string, texts []extract.PageText, status batch.Status) (*Artifacts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(g.Pages) == 0 {
		return nil, fmt.Errorf("group %q has no pages", g.Title)
	}

	category := g.Category
	if category == "" {
		category = batch.CategoryOther
	}
	dir, err := e.home.EnsureCategoryDir(category)
	if err != nil {
		return nil, err
	}

	base := g.Filename
	if base == "" {
		base = baseName(category, g.Title, e.now())
	}
	base = uniqueBase(dir, base)

	a := &Artifacts{
		Dir:           dir,
		OriginalPDF:   filepath.Join(dir, base+".pdf"),
		SearchablePDF: filepath.Join(dir, base+"_searchable.pdf"),
		Report:        filepath.Join(dir, base+".md"),
	}

	if err := e.splitOriginal(batchPDF, a.OriginalPDF, g.Pages); err != nil {
		return nil, err
	}
	if err := writeSearchable(a.OriginalPDF, a.SearchablePDF, texts, e.conf); err != nil {
		return nil, err
	}

	report := RenderMarkdown(g, sources, texts, status, e.now())
	if err := os.WriteFile(a.Report, []byte(report), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	e.logger.Info("exported document",
		"category", category, "title", g.Title,
		"pages", len(g.Pages), "dir", dir, "base", base)
	return a, nil
}

// splitOriginal collects the group's pages out of the batch PDF in
// order. Collect preserves the requested page sequence, unlike Trim.
func (e *Exporter) splitOriginal(batchPDF, outPath string, pages []int) error {
	selected := make([]string, len(pages))
	for i, n := range pages {
		selected[i] = strconv.Itoa(n)
	}
	if err := api.CollectFile(batchPDF, outPath, selected, e.conf); err != nil {
		return fmt.Errorf("failed to split pages %v: %w", pages, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
