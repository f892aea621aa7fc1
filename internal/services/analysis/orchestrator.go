package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/brandscope/internal/models"
	"github.com/ternarybob/brandscope/internal/services/llm"
)

// Orchestrator sequences one analysis run: enhance the prompts, execute
// the provider x prompt matrix with bounded parallelism, record progress
// after every call, aggregate once the matrix completes, and finalize.
// Per-call failures degrade to placeholder observations; only a failure
// in state bookkeeping or an unexpected panic fails the job.
type Orchestrator struct {
	enhancer    *Enhancer
	executor    *Executor
	tracker     *Tracker
	aggregator  *Aggregator
	concurrency int
	logger      arbor.ILogger
}

// NewOrchestrator creates an orchestrator. concurrency bounds the number
// of in-flight provider calls.
func NewOrchestrator(enhancer *Enhancer, executor *Executor, tracker *Tracker, aggregator *Aggregator, concurrency int, logger arbor.ILogger) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 2
	}
	return &Orchestrator{
		enhancer:    enhancer,
		executor:    executor,
		tracker:     tracker,
		aggregator:  aggregator,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run executes one analysis to completion. Blocking; callers run it on a
// background goroutine and poll the job record for progress.
func (o *Orchestrator) Run(ctx context.Context, analysisID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().
				Str("analysis_id", analysisID).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Analysis run panicked")
			err = o.fail(ctx, analysisID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	analysis, err := o.tracker.Get(ctx, analysisID)
	if err != nil {
		return err
	}

	if err := o.tracker.MarkRunning(ctx, analysisID); err != nil {
		return err
	}

	o.logger.Info().
		Str("analysis_id", analysisID).
		Int("providers", len(analysis.SelectedProviders)).
		Int("prompts", len(analysis.SelectedPrompts)).
		Msg("Analysis run started")

	observations, results, err := o.runMatrix(ctx, analysis)
	if err != nil {
		return o.fail(ctx, analysisID, err.Error())
	}

	outcome, err := o.aggregator.Aggregate(ctx, observations)
	if err != nil {
		// Empty observation set; the matrix itself produced nothing
		return o.fail(ctx, analysisID, err.Error())
	}

	results.AggregatedAnalysis = outcome.Aggregated
	results.TopRecommendedBrands = outcome.TopRecommendedBrands
	results.ResultsByPrompt = outcome.ResultsByPrompt
	results.AIRecommendation = outcome.AIRecommendation

	if err := o.tracker.Finalize(ctx, analysisID, models.AnalysisStatusCompleted, results, ""); err != nil {
		return err
	}

	o.logger.Info().
		Str("analysis_id", analysisID).
		Int("observations", len(observations)).
		Int("top_brands", len(outcome.TopRecommendedBrands)).
		Msg("Analysis completed")

	return nil
}

// matrixCall is one (provider, prompt) cell of the query matrix
type matrixCall struct {
	provider       string
	originalPrompt string
	enhancedPrompt string
}

// runMatrix executes every (provider, prompt) pair and returns exactly
// one observation per pair. Provider failures become placeholder
// observations; only progress-bookkeeping errors propagate.
func (o *Orchestrator) runMatrix(ctx context.Context, analysis *models.Analysis) ([]models.Observation, *models.AnalysisResults, error) {
	calls := make([]matrixCall, 0, analysis.TotalCalls())
	var firstEnhanced string

	for _, prompt := range analysis.SelectedPrompts {
		enhanced := o.enhancer.Enhance(ctx, prompt)
		if firstEnhanced == "" && enhanced != prompt {
			firstEnhanced = enhanced
		}
		for _, provider := range analysis.SelectedProviders {
			calls = append(calls, matrixCall{
				provider:       provider,
				originalPrompt: prompt,
				enhancedPrompt: enhanced,
			})
		}
	}

	total := len(calls)

	var mu sync.Mutex
	var observations []models.Observation
	var trackerErr error
	completed := 0

	var wg sync.WaitGroup
	sem := make(chan struct{}, o.concurrency)

	for _, call := range calls {
		wg.Add(1)
		sem <- struct{}{}

		go func(call matrixCall) {
			defer wg.Done()
			defer func() { <-sem }()

			obs := o.executeCall(ctx, call)

			mu.Lock()
			defer mu.Unlock()

			observations = append(observations, obs)
			completed++

			partial := buildResults(observations, firstEnhanced)
			if err := o.tracker.RecordProgress(ctx, analysis.ID, completed, total, partial); err != nil {
				if trackerErr == nil {
					trackerErr = err
				}
			}
		}(call)
	}

	wg.Wait()

	if trackerErr != nil {
		return nil, nil, fmt.Errorf("progress bookkeeping failed: %w", trackerErr)
	}

	return observations, buildResults(observations, firstEnhanced), nil
}

// executeCall runs one matrix cell, converting any provider failure into
// a placeholder observation at the point of origin
func (o *Orchestrator) executeCall(ctx context.Context, call matrixCall) models.Observation {
	obs, err := o.executor.Query(ctx, call.provider, call.enhancedPrompt)
	if err != nil {
		reason := fmt.Sprintf("Provider call failed: %v", err)
		if llm.IsProviderUnavailable(err) {
			reason = fmt.Sprintf("Provider unavailable: %v", err)
		}

		o.logger.Warn().
			Str("provider", call.provider).
			Err(err).
			Msg("Provider call failed, recording placeholder")

		return models.NewPlaceholderObservation(call.provider, call.originalPrompt, reason)
	}

	// Observations carry the original prompt so reports group under what
	// the user asked, not the enhanced rewrite
	obs.Prompt = call.originalPrompt
	return obs
}

// buildResults converts the observations collected so far into the
// persisted result payload
func buildResults(observations []models.Observation, enhancedPrompt string) *models.AnalysisResults {
	results := &models.AnalysisResults{
		CompetitorResults: make([]models.CompetitorResult, 0, len(observations)),
		EnhancedPrompt:    enhancedPrompt,
	}

	for _, obs := range observations {
		switch obs.Kind {
		case models.ObservationStructured:
			brands := make([]models.RecommendedBrand, 0, len(obs.Structured.Brands))
			for _, brand := range obs.Structured.Brands {
				reason := ""
				if len(brand.Positives) > 0 {
					reason = brand.Positives[0]
				}
				brands = append(brands, models.RecommendedBrand{
					Name:    brand.Name,
					Ranking: brand.Ranking,
					Reason:  reason,
				})
			}

			response, _ := json.Marshal(obs.Structured)
			results.CompetitorResults = append(results.CompetitorResults, models.CompetitorResult{
				Prompt:            obs.Prompt,
				Provider:          obs.Provider,
				Response:          string(response),
				RecommendedBrands: brands,
			})
			results.StructuredResponses = append(results.StructuredResponses, models.StructuredResponse{
				Prompt:         obs.Prompt,
				Provider:       obs.Provider,
				StructuredData: *obs.Structured,
			})

		case models.ObservationRaw:
			brands := make([]models.RecommendedBrand, 0, len(obs.Raw.Candidates))
			for _, candidate := range obs.Raw.Candidates {
				brands = append(brands, models.RecommendedBrand{
					Name:    candidate.BrandName,
					Ranking: candidate.Rank,
					Reason:  candidate.ContextSnippet,
				})
			}
			results.CompetitorResults = append(results.CompetitorResults, models.CompetitorResult{
				Prompt:            obs.Prompt,
				Provider:          obs.Provider,
				Response:          obs.Raw.ResponseText,
				RecommendedBrands: brands,
			})
		}
	}

	return results
}

// fail finalizes the job as failed, preserving the first error when
// finalize itself also fails
func (o *Orchestrator) fail(ctx context.Context, analysisID, reason string) error {
	if err := o.tracker.Finalize(ctx, analysisID, models.AnalysisStatusFailed, nil, reason); err != nil {
		o.logger.Error().
			Str("analysis_id", analysisID).
			Err(err).
			Msg("Failed to finalize analysis as failed")
		return err
	}
	return fmt.Errorf("analysis %s failed: %s", analysisID, reason)
}
