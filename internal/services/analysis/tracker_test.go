package analysis

import (
	"context"
	"sync"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/brandscope/internal/models"
)

func newTestTracker(t *testing.T) (*Tracker, *memStorage) {
	t.Helper()
	storage := newMemStorage()
	return NewTracker(storage, 80, arbor.NewLogger()), storage
}

func createRunningAnalysis(t *testing.T, tracker *Tracker) *models.Analysis {
	t.Helper()
	ctx := context.Background()

	analysis, err := tracker.Create(ctx, "test analysis", []string{"provider-a", "provider-b"}, []string{"best crm"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := tracker.MarkRunning(ctx, analysis.ID); err != nil {
		t.Fatalf("MarkRunning failed: %v", err)
	}
	return analysis
}

func TestTracker_Create(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	analysis, err := tracker.Create(ctx, "test", []string{"p1"}, []string{"q1"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if analysis.Status != models.AnalysisStatusPending {
		t.Errorf("Expected pending status, got %s", analysis.Status)
	}
	if analysis.Progress != 0 {
		t.Errorf("Expected progress 0, got %d", analysis.Progress)
	}
	if analysis.ID == "" {
		t.Error("Expected a generated analysis id")
	}
}

func TestTracker_CreateValidation(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	if _, err := tracker.Create(ctx, "", []string{"p1"}, []string{"q1"}); err == nil {
		t.Error("Expected error for empty title")
	}
	if _, err := tracker.Create(ctx, "t", nil, []string{"q1"}); err == nil {
		t.Error("Expected error for empty provider list")
	}
	if _, err := tracker.Create(ctx, "t", []string{"p1"}, nil); err == nil {
		t.Error("Expected error for empty prompt list")
	}
}

func TestTracker_StatusTransitions(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	analysis, _ := tracker.Create(ctx, "test", []string{"p1"}, []string{"q1"})

	t.Run("Finalize from pending is illegal", func(t *testing.T) {
		if err := tracker.Finalize(ctx, analysis.ID, models.AnalysisStatusCompleted, nil, ""); err == nil {
			t.Error("Expected error finalizing a pending analysis")
		}
	})

	t.Run("MarkRunning from pending", func(t *testing.T) {
		if err := tracker.MarkRunning(ctx, analysis.ID); err != nil {
			t.Fatalf("MarkRunning failed: %v", err)
		}
	})

	t.Run("MarkRunning twice is illegal", func(t *testing.T) {
		if err := tracker.MarkRunning(ctx, analysis.ID); err == nil {
			t.Error("Expected error re-running an in_progress analysis")
		}
	})

	t.Run("Finalize requires terminal status", func(t *testing.T) {
		if err := tracker.Finalize(ctx, analysis.ID, models.AnalysisStatusInProgress, nil, ""); err == nil {
			t.Error("Expected error finalizing to a non-terminal status")
		}
	})

	t.Run("Finalize completed", func(t *testing.T) {
		if err := tracker.Finalize(ctx, analysis.ID, models.AnalysisStatusCompleted, nil, ""); err != nil {
			t.Fatalf("Finalize failed: %v", err)
		}
		got, _ := tracker.Get(ctx, analysis.ID)
		if got.Status != models.AnalysisStatusCompleted {
			t.Errorf("Expected completed, got %s", got.Status)
		}
		if got.Progress != 100 {
			t.Errorf("Expected progress 100, got %d", got.Progress)
		}
	})

	t.Run("Finalize is idempotent for the same status", func(t *testing.T) {
		if err := tracker.Finalize(ctx, analysis.ID, models.AnalysisStatusCompleted, nil, ""); err != nil {
			t.Errorf("Expected idempotent finalize, got %v", err)
		}
	})

	t.Run("No re-entry from terminal state", func(t *testing.T) {
		if err := tracker.Finalize(ctx, analysis.ID, models.AnalysisStatusFailed, nil, "boom"); err == nil {
			t.Error("Expected error crossing between terminal states")
		}
	})
}

func TestTracker_ProgressScalingAndCeiling(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()
	analysis := createRunningAnalysis(t, tracker)

	if err := tracker.RecordProgress(ctx, analysis.ID, 1, 2, nil); err != nil {
		t.Fatalf("RecordProgress failed: %v", err)
	}
	got, _ := tracker.Get(ctx, analysis.ID)
	if got.Progress != 40 {
		t.Errorf("Expected half the matrix to report 40, got %d", got.Progress)
	}

	if err := tracker.RecordProgress(ctx, analysis.ID, 2, 2, nil); err != nil {
		t.Fatalf("RecordProgress failed: %v", err)
	}
	got, _ = tracker.Get(ctx, analysis.ID)
	if got.Progress != 80 {
		t.Errorf("Expected full matrix to cap at 80, got %d", got.Progress)
	}

	// Overcounting never exceeds the matrix ceiling
	if err := tracker.RecordProgress(ctx, analysis.ID, 5, 2, nil); err != nil {
		t.Fatalf("RecordProgress failed: %v", err)
	}
	got, _ = tracker.Get(ctx, analysis.ID)
	if got.Progress != 80 {
		t.Errorf("Expected ceiling 80, got %d", got.Progress)
	}
}

func TestTracker_MonotonicProgress(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()
	analysis := createRunningAnalysis(t, tracker)

	if err := tracker.RecordProgress(ctx, analysis.ID, 3, 4, nil); err != nil {
		t.Fatalf("RecordProgress failed: %v", err)
	}
	before, _ := tracker.Get(ctx, analysis.ID)

	// An out-of-order lower count must not move progress backwards
	if err := tracker.RecordProgress(ctx, analysis.ID, 1, 4, nil); err != nil {
		t.Fatalf("RecordProgress failed: %v", err)
	}
	after, _ := tracker.Get(ctx, analysis.ID)

	if after.Progress < before.Progress {
		t.Errorf("Progress decreased from %d to %d", before.Progress, after.Progress)
	}
}

func TestTracker_ProgressRequiresInProgress(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()

	analysis, _ := tracker.Create(ctx, "test", []string{"p1"}, []string{"q1"})
	if err := tracker.RecordProgress(ctx, analysis.ID, 1, 1, nil); err == nil {
		t.Error("Expected error recording progress on a pending analysis")
	}
}

func TestTracker_PartialResultsReplaced(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()
	analysis := createRunningAnalysis(t, tracker)

	partial := &models.AnalysisResults{
		CompetitorResults: []models.CompetitorResult{
			{Prompt: "best crm", Provider: "provider-a", Response: "Salesforce leads"},
		},
	}
	if err := tracker.RecordProgress(ctx, analysis.ID, 1, 2, partial); err != nil {
		t.Fatalf("RecordProgress failed: %v", err)
	}

	got, _ := tracker.Get(ctx, analysis.ID)
	if got.Results == nil || len(got.Results.CompetitorResults) != 1 {
		t.Fatal("Expected partial results to be visible to readers")
	}
}

func TestTracker_ConcurrentUpdates(t *testing.T) {
	tracker, _ := newTestTracker(t)
	ctx := context.Background()
	analysis := createRunningAnalysis(t, tracker)

	const writers = 20
	var wg sync.WaitGroup
	for i := 1; i <= writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = tracker.RecordProgress(ctx, analysis.ID, n, writers, &models.AnalysisResults{})
		}(i)
	}
	wg.Wait()

	got, err := tracker.Get(ctx, analysis.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Progress != 80 {
		t.Errorf("Expected progress 80 after all writers, got %d", got.Progress)
	}
}
