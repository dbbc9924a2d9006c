package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/scansort/scansort/internal/providers"
)

// fakeRunner simulates pdftotext/pdftoppm without poppler installed.
type fakeRunner struct {
	// pageTexts is what pdftotext "extracts" per page; empty entries
	// simulate image-only pages.
	pageTexts []string

	pdftotextErr error
	pdftoppmErr  error

	pdftoppmCalls int
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	if strings.Contains(name, "pdftotext") {
		if r.pdftotextErr != nil {
			return nil, []byte("Syntax Error: Document stream is empty"), r.pdftotextErr
		}
		return []byte(strings.Join(r.pageTexts, "\f") + "\f"), nil, nil
	}

	// pdftoppm: last arg is the output prefix
	r.pdftoppmCalls++
	if r.pdftoppmErr != nil {
		return nil, []byte("rasterization failed"), r.pdftoppmErr
	}
	prefix := args[len(args)-1]
	page := args[1] // -f N
	if err := os.WriteFile(fmt.Sprintf("%s-%s.png", prefix, page), []byte("png-bytes"), 0o644); err != nil {
		return nil, nil, err
	}
	return nil, nil, nil
}

func newTestExtractor(t *testing.T, runner *fakeRunner, ocr providers.OCREngine) *Extractor {
	t.Helper()
	e := NewExtractor(Config{TmpDir: t.TempDir()}, ocr, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	e.SetRunner(runner)
	return e
}

func TestExtractPages_TextLayer(t *testing.T) {
	runner := &fakeRunner{pageTexts: []string{"page one text", "page two text"}}
	e := newTestExtractor(t, runner, &providers.MockOCR{})

	pages, err := e.ExtractPages(context.Background(), "/in/scan.pdf", 2, nil)
	if err != nil {
		t.Fatalf("ExtractPages() error = %v", err)
	}

	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	for i, p := range pages {
		if p.Number != i+1 {
			t.Errorf("page %d has number %d", i, p.Number)
		}
		if p.Method != MethodTextLayer {
			t.Errorf("page %d method = %s, want %s", p.Number, p.Method, MethodTextLayer)
		}
	}
	if runner.pdftoppmCalls != 0 {
		t.Errorf("no rasterization expected, got %d calls", runner.pdftoppmCalls)
	}
}

func TestExtractPages_OCRFallback(t *testing.T) {
	runner := &fakeRunner{pageTexts: []string{"direct text", "   "}}
	ocr := &providers.MockOCR{TextByPage: map[int]string{2: "recognized text"}}
	e := newTestExtractor(t, runner, ocr)

	pages, err := e.ExtractPages(context.Background(), "/in/scan.pdf", 2, nil)
	if err != nil {
		t.Fatalf("ExtractPages() error = %v", err)
	}

	if pages[0].Method != MethodTextLayer {
		t.Errorf("page 1 method = %s, want %s", pages[0].Method, MethodTextLayer)
	}
	if pages[1].Method != MethodOCR || pages[1].Text != "recognized text" {
		t.Errorf("page 2 = %+v, want OCR'd text", pages[1])
	}
	if runner.pdftoppmCalls != 1 {
		t.Errorf("expected 1 rasterization, got %d", runner.pdftoppmCalls)
	}
}

func TestExtractPages_OCRFailureYieldsEmptyPage(t *testing.T) {
	runner := &fakeRunner{pageTexts: []string{""}}
	ocr := &providers.MockOCR{Err: errors.New("engine crashed")}
	e := newTestExtractor(t, runner, ocr)

	pages, err := e.ExtractPages(context.Background(), "/in/scan.pdf", 1, nil)
	if err != nil {
		t.Fatalf("single page OCR failure must not abort the batch: %v", err)
	}
	if pages[0].Method != MethodEmpty || pages[0].Text != "" {
		t.Errorf("page = %+v, want empty", pages[0])
	}
}

func TestExtractPages_RasterizationFailureYieldsEmptyPage(t *testing.T) {
	runner := &fakeRunner{pageTexts: []string{""}, pdftoppmErr: errors.New("boom")}
	e := newTestExtractor(t, runner, &providers.MockOCR{})

	pages, err := e.ExtractPages(context.Background(), "/in/scan.pdf", 1, nil)
	if err != nil {
		t.Fatalf("ExtractPages() error = %v", err)
	}
	if pages[0].Method != MethodEmpty {
		t.Errorf("method = %s, want %s", pages[0].Method, MethodEmpty)
	}
}

func TestExtractPages_UnreadableFileAborts(t *testing.T) {
	runner := &fakeRunner{pdftotextErr: errors.New("exit status 1")}
	e := newTestExtractor(t, runner, &providers.MockOCR{})

	if _, err := e.ExtractPages(context.Background(), "/in/corrupt.pdf", 3, nil); err == nil {
		t.Fatal("expected error for unreadable file")
	}
}

// mapCache is a test double for the resumability store.
type mapCache struct {
	texts map[int]string
	saves int
}

func (c *mapCache) Lookup(num int) (string, bool) {
	t, ok := c.texts[num]
	return t, ok
}

func (c *mapCache) Save(num int, text string) error {
	c.texts[num] = text
	c.saves++
	return nil
}

func TestExtractPages_CacheSkipsWork(t *testing.T) {
	runner := &fakeRunner{pageTexts: []string{"", ""}}
	ocr := &providers.MockOCR{TextByPage: map[int]string{1: "a", 2: "b"}}
	cache := &mapCache{texts: map[int]string{1: "cached one", 2: "cached two"}}
	e := newTestExtractor(t, runner, ocr)

	pages, err := e.ExtractPages(context.Background(), "/in/scan.pdf", 2, cache)
	if err != nil {
		t.Fatalf("ExtractPages() error = %v", err)
	}

	for _, p := range pages {
		if p.Method != MethodCached {
			t.Errorf("page %d method = %s, want %s", p.Number, p.Method, MethodCached)
		}
	}
	if ocr.Requests() != 0 {
		t.Errorf("cached pages must not reach the OCR engine, got %d calls", ocr.Requests())
	}
	if runner.pdftoppmCalls != 0 {
		t.Errorf("cached pages must not be rasterized, got %d calls", runner.pdftoppmCalls)
	}
}

func TestMarkerAndRender(t *testing.T) {
	if Marker(3) != "--- Page 3 ---" {
		t.Errorf("Marker(3) = %q", Marker(3))
	}

	blob := Render([]PageText{
		{Number: 1, Text: "first"},
		{Number: 2, Text: "second"},
	})
	for _, want := range []string{"--- Page 1 ---\nfirst", "--- Page 2 ---\nsecond"} {
		if !strings.Contains(blob, want) {
			t.Errorf("rendered blob missing %q:\n%s", want, blob)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 100, "short"},
		{"exact", 5, "exact"},
		{"abcdef", 3, "abc"},
		{"aéé", 2, "a"},   // cut lands inside the first é
		{"aéé", 3, "aé"},  // cut lands on a rune boundary
		{"aéé", 4, "aé"},  // cut lands inside the second é
		{"日本語", 4, "日"}, // 3-byte runes
		{"x", 0, ""},
	}
	for _, tt := range tests {
		got := Truncate(tt.in, tt.max)
		if got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("Truncate(%q, %d) produced invalid UTF-8 %q", tt.in, tt.max, got)
		}
	}
}

func TestContentHash(t *testing.T) {
	a, b := ContentHash("same text"), ContentHash("same text")
	if a != b {
		t.Error("hash must be deterministic")
	}
	if ContentHash("other text") == a {
		t.Error("different text must hash differently")
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha256, got %d chars", len(a))
	}
}

func TestExtractPages_TrailingFormFeed(t *testing.T) {
	// pdftotext emits a trailing \f; the split must not create a phantom page.
	runner := &fakeRunner{pageTexts: []string{"only page"}}
	e := newTestExtractor(t, runner, &providers.MockOCR{})

	pages, err := e.ExtractPages(context.Background(), "/in/one.pdf", 1, nil)
	if err != nil {
		t.Fatalf("ExtractPages() error = %v", err)
	}
	if len(pages) != 1 || pages[0].Text != "only page" {
		t.Fatalf("pages = %+v", pages)
	}
}
