// Package pipeline orchestrates one batch through extraction,
// classification, grouping, ordering, reconciliation, and export,
// consulting the resumability store at every paid step.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/scansort/scansort/internal/batch"
	"github.com/scansort/scansort/internal/export"
	"github.com/scansort/scansort/internal/extract"
	"github.com/scansort/scansort/internal/group"
	"github.com/scansort/scansort/internal/home"
	"github.com/scansort/scansort/internal/state"
)

// ErrEmptyIntake is returned when the intake directory holds no PDFs.
var ErrEmptyIntake = errors.New("no PDFs in intake directory")

// Intake discovers and merges source PDFs into a batch.
type Intake interface {
	Discover() ([]string, error)
	Fingerprint(paths []string) (string, error)
	Build(id string, paths []string) (job *batch.Job, mergedPDF string, err error)
	Archive(job *batch.Job) error
}

// Extractor produces page-indexed text for the merged batch PDF.
type Extractor interface {
	ExtractPages(ctx context.Context, pdfPath string, pageCount int, cache extract.Cache) ([]extract.PageText, error)
}

// Classifier assigns a category to one page.
type Classifier interface {
	ClassifyPage(ctx context.Context, page extract.PageText) string
}

// Orderer infers reading order for a document group.
type Orderer interface {
	Resolve(ctx context.Context, g batch.DocumentGroup, texts []extract.PageText) []int
}

// Titler names a document group.
type Titler interface {
	Suggest(ctx context.Context, g batch.DocumentGroup, texts []extract.PageText, sourceName string) string
}

// Exporter writes a group's final artifacts.
type Exporter interface {
	ExportGroup(ctx context.Context, batchPDF string, g batch.DocumentGroup, sources []string, texts []extract.PageText, status batch.Status) (*export.Artifacts, error)
}

// Store is the slice of the resumability store the pipeline drives.
// *state.Store satisfies it.
type Store interface {
	RegisterBatch(ctx context.Context, id, status, fingerprint string) error
	ResumableBatch(ctx context.Context, fingerprint string) (string, error)
	UpsertBatch(ctx context.Context, id, status string) error
	CachedAIResult(ctx context.Context, batchID, unit, contentHash string) (string, bool, error)
	MarkAIDone(ctx context.Context, batchID, unit, contentHash, aiResult string) error
	MarkFinalized(ctx context.Context, batchID, unit string) error
	Get(ctx context.Context, batchID, unit string) (*state.Record, error)
	PageCache(ctx context.Context, batchID string, logger *slog.Logger) *state.PageCache
}

// Deps are the pipeline's collaborators.
type Deps struct {
	Home       *home.Dir
	Store      Store
	Intake     Intake
	Extractor  Extractor
	Classifier Classifier
	Orderer    Orderer
	Titler     Titler
	Exporter   Exporter
	Logger     *slog.Logger
}

// Pipeline runs batches end to end.
type Pipeline struct {
	deps   Deps
	logger *slog.Logger
}

// Result summarizes a completed batch run.
type Result struct {
	BatchID   string
	Status    batch.Status
	Pages     int
	Groups    []batch.DocumentGroup
	LostPages []int
	Exported  []*export.Artifacts
	Failed    int // groups whose export failed
}

// New creates a pipeline.
func New(d Deps) *Pipeline {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{deps: d, logger: logger.With("component", "pipeline")}
}

// Run processes everything currently in the intake directory as one
// batch. It returns ErrEmptyIntake when there is nothing to do.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	paths, err := p.deps.Intake.Discover()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, ErrEmptyIntake
	}

	// An interrupted run over the same intake set resumes under its
	// original batch ID, which is what makes the unit cache apply.
	fingerprint, err := p.deps.Intake.Fingerprint(paths)
	if err != nil {
		return nil, err
	}
	id, err := p.deps.Store.ResumableBatch(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	resumed := id != ""
	if !resumed {
		id = uuid.New().String()
	}

	job, mergedPDF, err := p.deps.Intake.Build(id, paths)
	if err != nil {
		return nil, err
	}
	defer p.cleanupTmp(job.ID)

	logger := p.logger.With("batch_id", job.ID)
	logger.Info("batch started",
		"sources", len(job.Sources), "pages", len(job.Pages), "resumed", resumed)

	if err := p.deps.Store.RegisterBatch(ctx, job.ID, string(batch.StatusProcessing), fingerprint); err != nil {
		return nil, err
	}

	result, err := p.process(ctx, logger, job, mergedPDF)
	if err != nil {
		job.Status = batch.StatusFailed
		if serr := p.deps.Store.UpsertBatch(ctx, job.ID, string(batch.StatusFailed)); serr != nil {
			logger.Error("failed to record batch failure", "error", serr)
		}
		return nil, err
	}
	return result, nil
}

func (p *Pipeline) process(ctx context.Context, logger *slog.Logger, job *batch.Job, mergedPDF string) (*Result, error) {
	if len(job.Pages) == 0 {
		return nil, fmt.Errorf("batch %s has no pages", job.ID)
	}

	// Extraction. The page cache makes re-runs skip completed OCR.
	cache := p.deps.Store.PageCache(ctx, job.ID, logger)
	texts, err := p.deps.Extractor.ExtractPages(ctx, mergedPDF, len(job.Pages), cache)
	if err != nil {
		return nil, err
	}
	byPage := make(map[int]extract.PageText, len(texts))
	for _, pt := range texts {
		byPage[pt.Number] = pt
		if pg := job.Page(pt.Number); pg != nil {
			pg.Text = pt.Text
		}
	}

	// Classification, cached per page keyed on the text's content hash.
	for i := range job.Pages {
		pg := &job.Pages[i]
		pt := byPage[pg.Number]
		hash := extract.ContentHash(pt.Text)
		unit := state.PageUnit(pg.Number)

		if cached, ok, err := p.deps.Store.CachedAIResult(ctx, job.ID, unit, hash); err != nil {
			return nil, err
		} else if ok {
			pg.Category = cached
			continue
		}

		pg.Category = p.deps.Classifier.ClassifyPage(ctx, pt)
		if err := p.deps.Store.MarkAIDone(ctx, job.ID, unit, hash, pg.Category); err != nil {
			return nil, err
		}
	}
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("batch %s failed validation: %w", job.ID, err)
	}

	// Grouping and ordering. Group indexes are stable across resumes
	// because grouping is deterministic over the cached categories.
	groups := group.Consecutive(job.Pages)
	for i := range groups {
		ordered, err := p.orderGroup(ctx, job.ID, i, groups[i], byPage)
		if err != nil {
			return nil, err
		}
		groups[i].Pages = ordered
	}

	// Safety net. Runs unconditionally so no page is silently dropped.
	job.Status = batch.StatusPendingVerification
	if err := p.deps.Store.UpsertBatch(ctx, job.ID, string(batch.StatusPendingVerification)); err != nil {
		return nil, err
	}
	groups, lost := group.Reconcile(groups, job.PageNumbers(), job.ID)
	if len(lost) > 0 {
		logger.Warn("recovered pages into lost and found", "pages", lost)
	}
	if err := group.Verify(groups, job.PageNumbers()); err != nil {
		return nil, fmt.Errorf("batch %s failed reconciliation: %w", job.ID, err)
	}

	job.Status = batch.StatusReadyForExport
	if err := p.deps.Store.UpsertBatch(ctx, job.ID, string(batch.StatusReadyForExport)); err != nil {
		return nil, err
	}

	result := &Result{
		BatchID:   job.ID,
		Pages:     len(job.Pages),
		Groups:    groups,
		LostPages: lost,
	}
	if err := p.exportGroups(ctx, logger, job, mergedPDF, groups, byPage, result); err != nil {
		return nil, err
	}

	if result.Failed > 0 {
		job.Status = batch.StatusFailed
		result.Status = batch.StatusFailed
		if err := p.deps.Store.UpsertBatch(ctx, job.ID, string(batch.StatusFailed)); err != nil {
			return nil, err
		}
		logger.Warn("batch finished with export failures",
			"failed_groups", result.Failed, "exported", len(result.Exported))
		return result, nil
	}

	if err := p.deps.Intake.Archive(job); err != nil {
		return nil, err
	}
	job.Status = batch.StatusComplete
	result.Status = batch.StatusComplete
	if err := p.deps.Store.UpsertBatch(ctx, job.ID, string(batch.StatusComplete)); err != nil {
		return nil, err
	}
	logger.Info("batch complete", "groups", len(groups), "lost_pages", len(lost))
	return result, nil
}

// orderGroup returns the group's pages in reading order, reusing a
// cached order when the group's text is unchanged. The lost-and-found
// group never reaches this path.
func (p *Pipeline) orderGroup(ctx context.Context, batchID string, index int, g batch.DocumentGroup, byPage map[int]extract.PageText) ([]int, error) {
	if len(g.Pages) <= 1 {
		return g.Pages, nil
	}

	texts := groupTexts(g.Pages, byPage)
	hash := extract.ContentHash(extract.Render(texts))
	unit := state.GroupUnit(index)

	if cached, ok, err := p.deps.Store.CachedAIResult(ctx, batchID, unit, hash); err != nil {
		return nil, err
	} else if ok {
		var ordered []int
		if jerr := json.Unmarshal([]byte(cached), &ordered); jerr == nil && len(ordered) == len(g.Pages) {
			return ordered, nil
		}
		// Unusable cache entry falls through to recompute.
	}

	ordered := p.deps.Orderer.Resolve(ctx, g, texts)
	encoded, err := json.Marshal(ordered)
	if err != nil {
		return nil, err
	}
	if err := p.deps.Store.MarkAIDone(ctx, batchID, unit, hash, string(encoded)); err != nil {
		return nil, err
	}
	return ordered, nil
}

// exportGroups writes artifacts for every group. One group failing is
// logged and recorded; the rest of the batch still exports.
func (p *Pipeline) exportGroups(ctx context.Context, logger *slog.Logger, job *batch.Job, mergedPDF string, groups []batch.DocumentGroup, byPage map[int]extract.PageText, result *Result) error {
	sources := job.SourceNames()
	firstSource := ""
	if len(sources) > 0 {
		firstSource = sources[0]
	}

	for i := range groups {
		unit := state.GroupUnit(i)
		if rec, err := p.deps.Store.Get(ctx, job.ID, unit); err != nil {
			return err
		} else if rec != nil && rec.Finalized {
			logger.Info("group already finalized, skipping", "group", i)
			continue
		}

		texts := groupTexts(groups[i].Pages, byPage)
		groups[i].Title = p.deps.Titler.Suggest(ctx, groups[i], texts, firstSource)

		artifacts, err := p.deps.Exporter.ExportGroup(ctx, mergedPDF, groups[i], sources, texts, job.Status)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			logger.Error("group export failed",
				"group", i, "category", groups[i].Category, "error", err)
			result.Failed++
			continue
		}

		if err := p.deps.Store.MarkFinalized(ctx, job.ID, unit); err != nil {
			return err
		}
		result.Exported = append(result.Exported, artifacts)
	}
	return nil
}

func (p *Pipeline) cleanupTmp(batchID string) {
	if p.deps.Home == nil {
		return
	}
	tmp := p.deps.Home.BatchTmpPath(batchID)
	if err := os.RemoveAll(tmp); err != nil {
		p.logger.Warn("failed to remove batch tmp dir", "dir", tmp, "error", err)
	}
}

func groupTexts(pages []int, byPage map[int]extract.PageText) []extract.PageText {
	texts := make([]extract.PageText, 0, len(pages))
	for _, n := range pages {
		texts = append(texts, byPage[n])
	}
	return texts
}
