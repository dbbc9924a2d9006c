// Package intake discovers scanned PDFs, merges them into one batch
// document, and archives sources once a batch completes.
package intake

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/scansort/scansort/internal/batch"
	"github.com/scansort/scansort/internal/home"
)

// Scanner builds batches from the intake directory.
type Scanner struct {
	home   *home.Dir
	logger *slog.Logger
	conf   *model.Configuration
}

// NewScanner creates an intake scanner.
func NewScanner(h *home.Dir, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Scanner{
		home:   h,
		logger: logger.With("component", "intake"),
		conf:   conf,
	}
}

// Discover lists intake PDFs sorted by numeric suffix, so multi-part
// scans like batch-1.pdf, batch-2.pdf, batch-10.pdf keep scan order.
func (s *Scanner) Discover() ([]string, error) {
	entries, err := os.ReadDir(s.home.IntakePath())
	if err != nil {
		return nil, fmt.Errorf("failed to read intake directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), ".pdf") {
			paths = append(paths, filepath.Join(s.home.IntakePath(), entry.Name()))
		}
	}
	return sortPDFsByNumber(paths), nil
}

// Fingerprint identifies an intake set by its file names and sizes, so
// an interrupted batch over the same files can be resumed under the
// same batch ID.
func (s *Scanner) Fingerprint(paths []string) (string, error) {
	h := sha256.New()
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", p, err)
		}
		fmt.Fprintf(h, "%s:%d\n", filepath.Base(p), info.Size())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Build merges the given PDFs into one batch document under the
// batch's tmp directory and returns the job with its page stream
// mapped back to source files. The caller owns the tmp directory.
func (s *Scanner) Build(id string, paths []string) (*batch.Job, string, error) {
	if len(paths) == 0 {
		return nil, "", fmt.Errorf("no PDFs to process")
	}

	sources := make([]batch.SourceFile, len(paths))
	for i, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return nil, "", fmt.Errorf("source PDF not found: %s", p)
		}
		sources[i] = batch.SourceFile{Path: p, Name: filepath.Base(p)}
	}

	job := batch.NewJob(id, sources)

	tmpDir := s.home.BatchTmpPath(job.ID)
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create batch tmp dir: %w", err)
	}
	merged := filepath.Join(tmpDir, "batch.pdf")

	// Page stream mapping before the merge, so each merged page knows
	// its source file.
	pageNum := 1
	for _, src := range sources {
		count, err := api.PageCountFile(src.Path)
		if err != nil {
			os.RemoveAll(tmpDir)
			return nil, "", fmt.Errorf("failed to get page count for %s: %w", src.Name, err)
		}
		s.logger.Info("discovered PDF", "file", src.Name, "pages", count)
		for i := 0; i < count; i++ {
			job.Pages = append(job.Pages, batch.Page{Number: pageNum, Source: src.Name})
			pageNum++
		}
	}

	if err := api.MergeCreateFile(paths, merged, false, s.conf); err != nil {
		os.RemoveAll(tmpDir)
		return nil, "", fmt.Errorf("failed to merge batch PDFs: %w", err)
	}

	s.logger.Info("built batch",
		"batch_id", job.ID, "sources", len(sources), "pages", len(job.Pages))
	return job, merged, nil
}

// Archive moves a completed batch's source files out of intake.
func (s *Scanner) Archive(job *batch.Job) error {
	dest := filepath.Join(s.home.ArchivePath(), job.ID)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("failed to create archive dir: %w", err)
	}

	for i := range job.Sources {
		src := &job.Sources[i]
		if src.Archived {
			continue
		}
		target := filepath.Join(dest, src.Name)
		if err := os.Rename(src.Path, target); err != nil {
			return fmt.Errorf("failed to archive %s: %w", src.Name, err)
		}
		src.Archived = true
		s.logger.Info("archived source", "file", src.Name, "dest", target)
	}
	return nil
}

var numericSuffix = regexp.MustCompile(`-(\d+)\.pdf$`)

func sortPDFsByNumber(paths []string) []string {
	sorted := make([]string, len(paths))
	copy(sorted, paths)

	sort.Slice(sorted, func(i, j int) bool {
		mi := numericSuffix.FindStringSubmatch(strings.ToLower(sorted[i]))
		mj := numericSuffix.FindStringSubmatch(strings.ToLower(sorted[j]))
		if len(mi) > 1 && len(mj) > 1 {
			var ni, nj int
			fmt.Sscanf(mi[1], "%d", &ni)
			fmt.Sscanf(mj[1], "%d", &nj)
			if ni != nj {
				return ni < nj
			}
		}
		return sorted[i] < sorted[j]
	})
	return sorted
}
