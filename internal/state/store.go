// Package state persists per-unit processing progress so an interrupted
// batch resumes from its last completed stage instead of re-paying for
// OCR and AI calls. Backed by an embedded sqlite database.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL,
	fingerprint TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS units (
	batch_id     TEXT NOT NULL,
	unit         TEXT NOT NULL,
	ocr_done     INTEGER NOT NULL DEFAULT 0,
	ai_done      INTEGER NOT NULL DEFAULT 0,
	finalized    INTEGER NOT NULL DEFAULT 0,
	content_hash TEXT NOT NULL DEFAULT '',
	ocr_text     TEXT NOT NULL DEFAULT '',
	ai_result    TEXT NOT NULL DEFAULT '',
	updated_at   TEXT NOT NULL,
	PRIMARY KEY (batch_id, unit)
);
`

// Store is the resumability database.
type Store struct {
	db *sql.DB
}

// Record is the processing state of one unit of work (a page or group).
type Record struct {
	OCRDone     bool
	AIDone      bool
	Finalized   bool
	ContentHash string
	OCRText     string
	AIResult    string
	UpdatedAt   time.Time
}

// BatchInfo summarizes one batch row.
type BatchInfo struct {
	ID        string
	Status    string
	CreatedAt time.Time
}

// Open opens (creating if necessary) the resumability database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PageUnit returns the unit key for a page.
func PageUnit(pageNum int) string {
	return fmt.Sprintf("page:%d", pageNum)
}

// GroupUnit returns the unit key for a document group. Group indexes
// are stable across resumes because grouping is deterministic over the
// cached page categories.
func GroupUnit(index int) string {
	return fmt.Sprintf("group:%d", index)
}

// UpsertBatch records a batch and its current status.
func (s *Store) UpsertBatch(ctx context.Context, id, status string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO batches (id, status, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status`,
		id, status, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert batch %s: %w", id, err)
	}
	return nil
}

// RegisterBatch records a batch together with the content fingerprint
// of its intake set, so an interrupted run can be found again.
func (s *Store) RegisterBatch(ctx context.Context, id, status, fingerprint string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO batches (id, status, fingerprint, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status, fingerprint = excluded.fingerprint`,
		id, status, fingerprint, now())
	if err != nil {
		return fmt.Errorf("failed to register batch %s: %w", id, err)
	}
	return nil
}

// ResumableBatch returns the ID of the newest unfinished batch with the
// given intake fingerprint, or "" when a fresh batch is needed.
func (s *Store) ResumableBatch(ctx context.Context, fingerprint string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM batches
		WHERE fingerprint = ? AND status != 'complete'
		ORDER BY created_at DESC LIMIT 1`, fingerprint).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up batch by fingerprint: %w", err)
	}
	return id, nil
}

// BatchStatus returns a batch's recorded status, or "" if unknown.
func (s *Store) BatchStatus(ctx context.Context, id string) (string, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM batches WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read batch %s: %w", id, err)
	}
	return status, nil
}

// ListBatches returns all batches, newest first.
func (s *Store) ListBatches(ctx context.Context) ([]BatchInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, created_at FROM batches ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer rows.Close()

	var batches []BatchInfo
	for rows.Next() {
		var b BatchInfo
		var created string
		if err := rows.Scan(&b.ID, &b.Status, &created); err != nil {
			return nil, fmt.Errorf("failed to scan batch row: %w", err)
		}
		b.CreatedAt, _ = time.Parse(time.RFC3339, created)
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// Get returns the record for a unit, or nil if none exists.
func (s *Store) Get(ctx context.Context, batchID, unit string) (*Record, error) {
	var r Record
	var updated string
	err := s.db.QueryRowContext(ctx, `
		SELECT ocr_done, ai_done, finalized, content_hash, ocr_text, ai_result, updated_at
		FROM units WHERE batch_id = ? AND unit = ?`,
		batchID, unit).Scan(&r.OCRDone, &r.AIDone, &r.Finalized, &r.ContentHash, &r.OCRText, &r.AIResult, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read unit %s/%s: %w", batchID, unit, err)
	}
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &r, nil
}

// MarkOCRDone records completed OCR for a unit together with its text.
// The write is a single upsert so a crash mid-call cannot leave a done
// flag without its text.
func (s *Store) MarkOCRDone(ctx context.Context, batchID, unit, text string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO units (batch_id, unit, ocr_done, ocr_text, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(batch_id, unit) DO UPDATE SET
			ocr_done = 1, ocr_text = excluded.ocr_text, updated_at = excluded.updated_at`,
		batchID, unit, text, now())
	if err != nil {
		return fmt.Errorf("failed to mark OCR done for %s/%s: %w", batchID, unit, err)
	}
	return nil
}

// MarkAIDone records a completed AI result for a unit, keyed to the
// content hash of the input text that produced it.
func (s *Store) MarkAIDone(ctx context.Context, batchID, unit, contentHash, aiResult string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO units (batch_id, unit, ai_done, content_hash, ai_result, updated_at)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT(batch_id, unit) DO UPDATE SET
			ai_done = 1, content_hash = excluded.content_hash,
			ai_result = excluded.ai_result, updated_at = excluded.updated_at`,
		batchID, unit, contentHash, aiResult, now())
	if err != nil {
		return fmt.Errorf("failed to mark AI done for %s/%s: %w", batchID, unit, err)
	}
	return nil
}

// MarkFinalized records that a unit's output artifacts were written.
func (s *Store) MarkFinalized(ctx context.Context, batchID, unit string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO units (batch_id, unit, finalized, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(batch_id, unit) DO UPDATE SET
			finalized = 1, updated_at = excluded.updated_at`,
		batchID, unit, now())
	if err != nil {
		return fmt.Errorf("failed to mark finalized for %s/%s: %w", batchID, unit, err)
	}
	return nil
}

// CachedAIResult returns the stored AI result for a unit when the
// stage is complete and the stored content hash still matches. The
// second return is false when the unit must be recomputed.
func (s *Store) CachedAIResult(ctx context.Context, batchID, unit, contentHash string) (string, bool, error) {
	r, err := s.Get(ctx, batchID, unit)
	if err != nil {
		return "", false, err
	}
	if r == nil || !r.AIDone || r.ContentHash != contentHash {
		return "", false, nil
	}
	return r.AIResult, true, nil
}

// Units returns all unit records for a batch, keyed by unit name.
func (s *Store) Units(ctx context.Context, batchID string) (map[string]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT unit, ocr_done, ai_done, finalized, content_hash, ocr_text, ai_result, updated_at
		FROM units WHERE batch_id = ?`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list units for %s: %w", batchID, err)
	}
	defer rows.Close()

	units := make(map[string]Record)
	for rows.Next() {
		var unit, updated string
		var r Record
		if err := rows.Scan(&unit, &r.OCRDone, &r.AIDone, &r.Finalized, &r.ContentHash, &r.OCRText, &r.AIResult, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan unit row: %w", err)
		}
		r.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		units[unit] = r
	}
	return units, rows.Err()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
