// Package batch defines the core data model for one processing batch.
package batch

import (
	"fmt"
	"time"
)

// Status tracks a batch through the pipeline.
type Status string

const (
	StatusProcessing          Status = "processing"
	StatusPendingVerification Status = "pending_verification"
	StatusReadyForExport      Status = "ready_for_export"
	StatusComplete            Status = "complete"
	StatusFailed              Status = "failed"
)

const (
	// CategoryOther is the catch-all category for unclassifiable pages.
	CategoryOther = "other"

	// CategoryLostAndFound marks the synthetic group holding pages that
	// fell out of every ordered group. It is always exported, never dropped.
	CategoryLostAndFound = "_lost_and_found"
)

// ValidRotations are the only rotation angles a page may carry.
var ValidRotations = [4]int{0, 90, 180, 270}

// SourceFile is one raw PDF from the intake directory.
type SourceFile struct {
	Path     string // original absolute path
	Name     string // display filename
	Archived bool   // moved to the retention area after batch completion
}

// Page is one page of the batch's merged page stream.
type Page struct {
	Number   int    // 1-based, unique within the batch
	Source   string // filename the page originated from
	Text     string // extracted text, possibly empty; immutable after OCR
	Category string // empty until classified
	Rotation int    // 0, 90, 180, 270
}

// HasText reports whether OCR produced any usable text for the page.
func (p Page) HasText() bool {
	for _, r := range p.Text {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
		default:
			return true
		}
	}
	return false
}

// ValidRotation reports whether the page's rotation angle is allowed.
func (p Page) ValidRotation() bool {
	for _, r := range ValidRotations {
		if p.Rotation == r {
			return true
		}
	}
	return false
}

// DocumentGroup is a logical multi-page document: a run of consecutive
// pages sharing a category, later reordered into reading order.
type DocumentGroup struct {
	Category    string
	Pages       []int // page numbers in current order
	Title       string
	SubCategory string
	Filename    string // finalized base filename, set by the exporter
}

// Job is one batch of scanned files moving through the pipeline.
type Job struct {
	ID        string
	Status    Status
	CreatedAt time.Time
	Sources   []SourceFile
	Pages     []Page
}

// NewJob creates a batch job in the processing state.
func NewJob(id string, sources []SourceFile) *Job {
	return &Job{
		ID:        id,
		Status:    StatusProcessing,
		CreatedAt: time.Now().UTC(),
		Sources:   sources,
	}
}

// PageNumbers returns all page numbers of the batch in stream order.
func (j *Job) PageNumbers() []int {
	nums := make([]int, len(j.Pages))
	for i, p := range j.Pages {
		nums[i] = p.Number
	}
	return nums
}

// Page returns the page with the given number, or nil.
func (j *Job) Page(num int) *Page {
	for i := range j.Pages {
		if j.Pages[i].Number == num {
			return &j.Pages[i]
		}
	}
	return nil
}

// SourceNames returns the display names of all source files.
func (j *Job) SourceNames() []string {
	names := make([]string, len(j.Sources))
	for i, s := range j.Sources {
		names[i] = s.Name
	}
	return names
}

// Validate checks batch-level invariants before export.
func (j *Job) Validate() error {
	seen := make(map[int]struct{}, len(j.Pages))
	for _, p := range j.Pages {
		if p.Number < 1 {
			return fmt.Errorf("page number %d out of range", p.Number)
		}
		if _, dup := seen[p.Number]; dup {
			return fmt.Errorf("duplicate page number %d", p.Number)
		}
		seen[p.Number] = struct{}{}
		if !p.ValidRotation() {
			return fmt.Errorf("page %d has invalid rotation %d", p.Number, p.Rotation)
		}
	}
	return nil
}
