package analysis

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/brandscope/internal/common"
	"github.com/ternarybob/brandscope/internal/interfaces"
	"github.com/ternarybob/brandscope/internal/models"
)

// Tracker owns the mutable state of analysis jobs. All writes to a given
// job are serialized through a per-job lock so concurrent provider
// completions cannot interleave into a corrupted results object. Reads
// go straight to storage and observe complete snapshots.
type Tracker struct {
	storage        interfaces.AnalysisStorage
	matrixCeiling  int
	logger         arbor.ILogger
	mu             sync.Mutex
	jobLocks       map[string]*sync.Mutex
}

// NewTracker creates a progress tracker. matrixCeiling is the progress
// value reached when the provider matrix completes; the remaining range
// up to 100 is reserved for aggregation.
func NewTracker(storage interfaces.AnalysisStorage, matrixCeiling int, logger arbor.ILogger) *Tracker {
	if matrixCeiling <= 0 || matrixCeiling > 100 {
		matrixCeiling = 80
	}
	return &Tracker{
		storage:       storage,
		matrixCeiling: matrixCeiling,
		logger:        logger,
		jobLocks:      make(map[string]*sync.Mutex),
	}
}

// lockFor returns the serialization lock for one job id
func (t *Tracker) lockFor(id string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	lock, ok := t.jobLocks[id]
	if !ok {
		lock = &sync.Mutex{}
		t.jobLocks[id] = lock
	}
	return lock
}

// releaseLock drops a job's lock entry once the job is terminal
func (t *Tracker) releaseLock(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.jobLocks, id)
}

// Create initializes a pending job with progress 0
func (t *Tracker) Create(ctx context.Context, title string, providers, prompts []string) (*models.Analysis, error) {
	analysis := models.NewAnalysis(common.NewAnalysisID(), title, providers, prompts)
	if err := analysis.Validate(); err != nil {
		return nil, err
	}

	if err := t.storage.SaveAnalysis(ctx, analysis); err != nil {
		return nil, fmt.Errorf("failed to save analysis: %w", err)
	}

	t.logger.Info().
		Str("analysis_id", analysis.ID).
		Int("providers", len(providers)).
		Int("prompts", len(prompts)).
		Msg("Analysis created")

	return analysis, nil
}

// Get returns the current snapshot of a job
func (t *Tracker) Get(ctx context.Context, id string) (*models.Analysis, error) {
	return t.storage.GetAnalysis(ctx, id)
}

// List returns job snapshots matching the options
func (t *Tracker) List(ctx context.Context, opts *interfaces.AnalysisListOptions) ([]*models.Analysis, error) {
	return t.storage.ListAnalyses(ctx, opts)
}

// Delete removes a terminal job. Callers are expected to check the job
// is no longer running before deleting it.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	t.releaseLock(id)
	return t.storage.DeleteAnalysis(ctx, id)
}

// MarkRunning transitions a pending job to in_progress
func (t *Tracker) MarkRunning(ctx context.Context, id string) error {
	lock := t.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	analysis, err := t.storage.GetAnalysis(ctx, id)
	if err != nil {
		return err
	}

	if !analysis.Status.CanTransition(models.AnalysisStatusInProgress) {
		return fmt.Errorf("illegal status transition %s -> %s for analysis %s", analysis.Status, models.AnalysisStatusInProgress, id)
	}

	analysis.Status = models.AnalysisStatusInProgress
	if err := t.storage.SaveAnalysis(ctx, analysis); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	t.logger.Info().Str("analysis_id", id).Msg("Analysis running")
	return nil
}

// RecordProgress updates the job's progress and atomically replaces its
// partial results. Progress is scaled into the matrix sub-range and
// clamped so it never decreases regardless of completion order. Safe to
// call after every provider call.
func (t *Tracker) RecordProgress(ctx context.Context, id string, completedCalls, totalCalls int, partial *models.AnalysisResults) error {
	lock := t.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	analysis, err := t.storage.GetAnalysis(ctx, id)
	if err != nil {
		return err
	}

	if analysis.Status != models.AnalysisStatusInProgress {
		return fmt.Errorf("cannot record progress on analysis %s with status %s", id, analysis.Status)
	}

	progress := 0
	if totalCalls > 0 {
		progress = completedCalls * t.matrixCeiling / totalCalls
	}
	if progress > t.matrixCeiling {
		progress = t.matrixCeiling
	}
	// Monotonic: out-of-order completions never move progress backwards
	if progress > analysis.Progress {
		analysis.Progress = progress
	}
	if partial != nil {
		analysis.Results = partial
	}

	if err := t.storage.SaveAnalysis(ctx, analysis); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	t.logger.Debug().
		Str("analysis_id", id).
		Int("completed", completedCalls).
		Int("total", totalCalls).
		Int("progress", analysis.Progress).
		Msg("Progress recorded")

	return nil
}

// Finalize is the only operation permitted to set a terminal status.
// Idempotent under retry: re-finalizing into the same terminal status is
// a no-op.
func (t *Tracker) Finalize(ctx context.Context, id string, status models.AnalysisStatus, finalResults *models.AnalysisResults, errMsg string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("finalize requires a terminal status, got %s", status)
	}

	lock := t.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	analysis, err := t.storage.GetAnalysis(ctx, id)
	if err != nil {
		return err
	}

	if analysis.Status == status {
		return nil
	}
	if !analysis.Status.CanTransition(status) {
		return fmt.Errorf("illegal status transition %s -> %s for analysis %s", analysis.Status, status, id)
	}

	analysis.Status = status
	if status == models.AnalysisStatusCompleted {
		analysis.Progress = 100
	}
	analysis.Error = errMsg
	if finalResults != nil {
		analysis.Results = finalResults
	}

	if err := t.storage.SaveAnalysis(ctx, analysis); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	t.releaseLock(id)

	t.logger.Info().
		Str("analysis_id", id).
		Str("status", string(status)).
		Msg("Analysis finalized")

	return nil
}
