// Package extract produces page-indexed text for a source PDF. Pages
// with a text layer are read directly via pdftotext; pages without one
// are rasterized with pdftoppm and run through the injected OCR engine.
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/scansort/scansort/internal/providers"
)

// Extraction methods recorded per page.
const (
	MethodTextLayer = "text-layer"
	MethodOCR       = "ocr"
	MethodEmpty     = "empty"
	MethodCached    = "cached"
)

// PageText is the extracted text of one page.
type PageText struct {
	Number int
	Text   string
	Method string
}

// Marker returns the reproducible page marker used when page text is
// rendered into a single blob for AI prompts and reports. Page text is
// never sliced back out of a blob; the page-indexed slice stays the
// source of truth.
func Marker(n int) string {
	return fmt.Sprintf("--- Page %d ---", n)
}

// Render concatenates page texts with markers.
func Render(pages []PageText) string {
	var b strings.Builder
	for i, p := range pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(Marker(p.Number))
		b.WriteString("\n")
		b.WriteString(p.Text)
	}
	return b.String()
}

// Truncate caps s at max bytes without splitting a multi-byte UTF-8
// sequence; the cut backs up to the nearest rune boundary. OCR of
// accented or non-Latin text routinely produces multi-byte runes.
func Truncate(s string, max int) string {
	if max < 0 {
		max = 0
	}
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// ContentHash returns the hex sha256 of a page's text, used by the
// resumability layer to decide whether a cached AI result is still valid.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Cache lets the extractor skip OCR for pages already extracted in a
// previous run. Implemented by the resumability store.
type Cache interface {
	Lookup(pageNum int) (text string, ok bool)
	Save(pageNum int, text string) error
}

// Runner executes external binaries. Injected so tests run without
// poppler installed.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// Config configures the extractor.
type Config struct {
	Pdftotext string // binary name or absolute path
	Pdftoppm  string // binary name or absolute path
	DPI       int    // rasterization DPI
	TmpDir    string // scratch space for rendered page images
}

// Extractor extracts page-indexed text from PDFs.
type Extractor struct {
	cfg    Config
	engine providers.OCREngine
	runner Runner
	logger *slog.Logger
}

// NewExtractor creates an extractor with an injected OCR engine.
func NewExtractor(cfg Config, engine providers.OCREngine, logger *slog.Logger) *Extractor {
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, engine: engine, runner: execRunner{}, logger: logger}
}

// SetRunner overrides the external binary runner (tests only).
func (e *Extractor) SetRunner(r Runner) {
	e.runner = r
}

// ExtractPages extracts text for pages 1..pageCount of the PDF.
// A page that cannot be rasterized or OCR'd yields empty text; only a
// totally unreadable file returns an error.
func (e *Extractor) ExtractPages(ctx context.Context, pdfPath string, pageCount int, cache Cache) ([]PageText, error) {
	start := time.Now()

	if pageCount < 1 {
		return nil, fmt.Errorf("invalid page count %d for %s", pageCount, pdfPath)
	}

	layer, err := e.textLayer(ctx, pdfPath)
	if err != nil {
		return nil, fmt.Errorf("unreadable PDF %s: %w", pdfPath, err)
	}

	pages := make([]PageText, 0, pageCount)
	ocrCount, cachedCount := 0, 0
	for num := 1; num <= pageCount; num++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if cache != nil {
			if text, ok := cache.Lookup(num); ok {
				pages = append(pages, PageText{Number: num, Text: text, Method: MethodCached})
				cachedCount++
				continue
			}
		}

		var page PageText
		direct := ""
		if num-1 < len(layer) {
			direct = strings.TrimSpace(layer[num-1])
		}
		if direct != "" {
			page = PageText{Number: num, Text: direct, Method: MethodTextLayer}
		} else {
			page = e.ocrPage(ctx, pdfPath, num)
			if page.Method == MethodOCR {
				ocrCount++
			}
		}

		if cache != nil {
			if err := cache.Save(page.Number, page.Text); err != nil {
				return nil, fmt.Errorf("failed to cache page %d text: %w", page.Number, err)
			}
		}
		pages = append(pages, page)
	}

	e.logger.Info("extraction complete",
		"pdf", filepath.Base(pdfPath),
		"pages", pageCount,
		"ocr_pages", ocrCount,
		"cached_pages", cachedCount,
		"duration", time.Since(start))

	return pages, nil
}

// textLayer runs pdftotext once and splits the output on form feeds.
func (e *Extractor) textLayer(ctx context.Context, pdfPath string) ([]string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", pdfPath, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %s: %w", strings.TrimSpace(string(errb)), err)
	}
	// pdftotext separates pages with \f and leaves one trailing separator.
	text := strings.TrimSuffix(string(out), "\f")
	return strings.Split(text, "\f"), nil
}

// ocrPage rasterizes a single page and runs the OCR engine on it.
// Failures degrade to empty text; a bad page must not abort the batch.
func (e *Extractor) ocrPage(ctx context.Context, pdfPath string, num int) PageText {
	empty := PageText{Number: num, Method: MethodEmpty}

	tmpDir, err := os.MkdirTemp(e.cfg.TmpDir, "scansort-ocr-*")
	if err != nil {
		e.logger.Warn("failed to create OCR temp dir", "page", num, "error", err)
		return empty
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("failed to remove OCR temp dir", "dir", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	pageArg := fmt.Sprintf("%d", num)
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-f", pageArg, "-l", pageArg,
		"-r", fmt.Sprintf("%d", e.cfg.DPI),
		"-png", pdfPath, prefix)
	if err != nil {
		e.logger.Warn("rasterization failed, page contributes empty text",
			"page", num, "stderr", strings.TrimSpace(string(errb)), "error", err)
		return empty
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		e.logger.Warn("pdftoppm produced no image", "page", num)
		return empty
	}

	img, err := os.ReadFile(matches[0])
	if err != nil {
		e.logger.Warn("failed to read rendered page image", "page", num, "error", err)
		return empty
	}

	result, err := e.engine.Recognize(ctx, img, num)
	if err != nil || !result.Success {
		e.logger.Warn("OCR failed, page contributes empty text", "page", num, "error", err)
		return empty
	}
	if strings.TrimSpace(result.Text) == "" {
		return empty
	}

	return PageText{Number: num, Text: result.Text, Method: MethodOCR}
}
