package retention

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/brandscope/internal/common"
	"github.com/ternarybob/brandscope/internal/interfaces"
	"github.com/ternarybob/brandscope/internal/models"
)

type stubStorage struct {
	analyses map[string]*models.Analysis
}

func (s *stubStorage) SaveAnalysis(ctx context.Context, analysis *models.Analysis) error {
	s.analyses[analysis.ID] = analysis
	return nil
}

func (s *stubStorage) GetAnalysis(ctx context.Context, id string) (*models.Analysis, error) {
	analysis, ok := s.analyses[id]
	if !ok {
		return nil, interfaces.ErrAnalysisNotFound
	}
	return analysis, nil
}

func (s *stubStorage) ListAnalyses(ctx context.Context, opts *interfaces.AnalysisListOptions) ([]*models.Analysis, error) {
	var result []*models.Analysis
	for _, analysis := range s.analyses {
		result = append(result, analysis)
	}
	return result, nil
}

func (s *stubStorage) DeleteAnalysis(ctx context.Context, id string) error {
	delete(s.analyses, id)
	return nil
}

func (s *stubStorage) CountAnalyses(ctx context.Context) (int, error) {
	return len(s.analyses), nil
}

func addAnalysis(storage *stubStorage, id string, status models.AnalysisStatus, age time.Duration) {
	storage.analyses[id] = &models.Analysis{
		ID:        id,
		Title:     "t",
		Status:    status,
		UpdatedAt: time.Now().Add(-age),
	}
}

func TestRetention_PrunesOnlyOldTerminalAnalyses(t *testing.T) {
	storage := &stubStorage{analyses: make(map[string]*models.Analysis)}

	addAnalysis(storage, "old-completed", models.AnalysisStatusCompleted, 48*time.Hour)
	addAnalysis(storage, "old-failed", models.AnalysisStatusFailed, 48*time.Hour)
	addAnalysis(storage, "fresh-completed", models.AnalysisStatusCompleted, time.Hour)
	addAnalysis(storage, "old-running", models.AnalysisStatusInProgress, 48*time.Hour)
	addAnalysis(storage, "old-pending", models.AnalysisStatusPending, 48*time.Hour)

	service, err := NewService(storage, &common.RetentionConfig{
		Enabled:  true,
		Schedule: "0 * * * *",
		MaxAge:   "24h",
	}, arbor.NewLogger())
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	pruned, err := service.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if pruned != 2 {
		t.Errorf("Expected 2 pruned analyses, got %d", pruned)
	}

	for _, id := range []string{"fresh-completed", "old-running", "old-pending"} {
		if _, ok := storage.analyses[id]; !ok {
			t.Errorf("Expected %s to survive pruning", id)
		}
	}
	for _, id := range []string{"old-completed", "old-failed"} {
		if _, ok := storage.analyses[id]; ok {
			t.Errorf("Expected %s to be pruned", id)
		}
	}
}

func TestRetention_InvalidMaxAge(t *testing.T) {
	storage := &stubStorage{analyses: make(map[string]*models.Analysis)}

	if _, err := NewService(storage, &common.RetentionConfig{MaxAge: "not-a-duration"}, arbor.NewLogger()); err == nil {
		t.Error("Expected error for invalid max_age")
	}
	if _, err := NewService(storage, &common.RetentionConfig{MaxAge: "-1h"}, arbor.NewLogger()); err == nil {
		t.Error("Expected error for negative max_age")
	}
}
