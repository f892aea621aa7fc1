// Package retention prunes old terminal analyses on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/brandscope/internal/common"
	"github.com/ternarybob/brandscope/internal/interfaces"
)

// Service deletes completed and failed analyses older than the retention
// window. Pending and in_progress jobs are never touched; a running
// analysis is owned by its orchestrator until it reaches a terminal
// state.
type Service struct {
	storage interfaces.AnalysisStorage
	config  *common.RetentionConfig
	maxAge  time.Duration
	cron    *cron.Cron
	logger  arbor.ILogger
	running bool
}

// NewService creates a retention service
func NewService(storage interfaces.AnalysisStorage, config *common.RetentionConfig, logger arbor.ILogger) (*Service, error) {
	maxAge, err := time.ParseDuration(config.MaxAge)
	if err != nil {
		return nil, fmt.Errorf("invalid retention max_age %q: %w", config.MaxAge, err)
	}
	if maxAge <= 0 {
		return nil, fmt.Errorf("retention max_age must be positive, got %s", maxAge)
	}

	return &Service{
		storage: storage,
		config:  config,
		maxAge:  maxAge,
		cron:    cron.New(),
		logger:  logger,
	}, nil
}

// Start begins the pruning schedule. No-op when retention is disabled.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.logger.Info().Msg("Retention pruning disabled")
		return nil
	}
	if s.running {
		return fmt.Errorf("retention service already running")
	}

	schedule := s.config.Schedule
	if schedule == "" {
		schedule = "0 * * * *"
	}

	if _, err := s.cron.AddFunc(schedule, s.runPrune); err != nil {
		return fmt.Errorf("failed to add retention cron job: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", schedule).
		Str("max_age", s.maxAge.String()).
		Msg("Retention pruning started")

	return nil
}

// Stop halts the pruning schedule
func (s *Service) Stop() {
	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
	s.logger.Info().Msg("Retention pruning stopped")
}

// runPrune is the cron entry point
func (s *Service) runPrune() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pruned, err := s.Prune(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Retention prune failed")
		return
	}
	if pruned > 0 {
		s.logger.Info().Int("pruned", pruned).Msg("Retention prune complete")
	}
}

// Prune deletes terminal analyses older than the retention window and
// returns the number deleted
func (s *Service) Prune(ctx context.Context) (int, error) {
	analyses, err := s.storage.ListAnalyses(ctx, &interfaces.AnalysisListOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to list analyses: %w", err)
	}

	cutoff := time.Now().Add(-s.maxAge)
	pruned := 0

	for _, analysis := range analyses {
		if !analysis.Status.IsTerminal() {
			continue
		}
		if analysis.UpdatedAt.After(cutoff) {
			continue
		}

		if err := s.storage.DeleteAnalysis(ctx, analysis.ID); err != nil {
			s.logger.Warn().
				Str("analysis_id", analysis.ID).
				Err(err).
				Msg("Failed to prune analysis")
			continue
		}
		pruned++
	}

	return pruned, nil
}
