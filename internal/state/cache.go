package state

import (
	"context"
	"log/slog"
)

// PageCache adapts the store to the extractor's cache interface for one
// batch. Lookup hits mean the page's OCR already ran in a previous
// attempt at this batch.
type PageCache struct {
	store   *Store
	batchID string
	ctx     context.Context
	logger  *slog.Logger
}

// PageCache returns an extractor cache bound to one batch.
func (s *Store) PageCache(ctx context.Context, batchID string, logger *slog.Logger) *PageCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageCache{store: s, batchID: batchID, ctx: ctx, logger: logger}
}

// Lookup returns the cached OCR text for a page.
func (c *PageCache) Lookup(pageNum int) (string, bool) {
	r, err := c.store.Get(c.ctx, c.batchID, PageUnit(pageNum))
	if err != nil {
		c.logger.Warn("page cache lookup failed", "page", pageNum, "error", err)
		return "", false
	}
	if r == nil || !r.OCRDone {
		return "", false
	}
	return r.OCRText, true
}

// Save records a page's OCR text as complete.
func (c *PageCache) Save(pageNum int, text string) error {
	return c.store.MarkOCRDone(c.ctx, c.batchID, PageUnit(pageNum), text)
}
