package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/brandscope/internal/interfaces"
	"github.com/ternarybob/brandscope/internal/models"
)

// AggregationOutcome is the cross-provider reduction of all observations
// for one job
type AggregationOutcome struct {
	TopRecommendedBrands []models.TopRecommendedBrand
	ResultsByPrompt      []models.PromptBreakdown
	Aggregated           *models.AggregatedAnalysis
	AIRecommendation     string
}

// Aggregator reduces the per-(prompt, provider) observations into a
// deduplicated, ranked brand report. The primary path delegates semantic
// reconciliation (alias deduplication, aspect merging) to a secondary
// model; when that call or its JSON fails, the deterministic fallback
// scorer produces the same report shape. Path-level failure is invisible
// to the caller: Aggregate only errors when the observation set is empty.
type Aggregator struct {
	generator           interfaces.ContentGenerator
	aggregationModel    string
	recommendationModel string
	rankCeiling         int
	logger              arbor.ILogger
}

// NewAggregator creates an aggregator. rankCeiling caps the rank used by
// the fallback scorer; only the ordering property matters, higher stated
// rank always yields a higher score.
func NewAggregator(generator interfaces.ContentGenerator, aggregationModel, recommendationModel string, rankCeiling int, logger arbor.ILogger) *Aggregator {
	if rankCeiling <= 0 {
		rankCeiling = 7
	}
	return &Aggregator{
		generator:           generator,
		aggregationModel:    aggregationModel,
		recommendationModel: recommendationModel,
		rankCeiling:         rankCeiling,
		logger:              logger,
	}
}

// Aggregate reduces all observations for a job into one report. The
// semantic path is tried first; any failure there falls back to the
// deterministic path without surfacing an error.
func (a *Aggregator) Aggregate(ctx context.Context, observations []models.Observation) (*AggregationOutcome, error) {
	if len(observations) == 0 {
		return nil, fmt.Errorf("no observations to aggregate")
	}

	outcome, err := a.aggregateSemantic(ctx, observations)
	if err != nil {
		a.logger.Warn().
			Err(err).
			Msg("Semantic aggregation failed, using deterministic fallback")
		outcome = a.aggregateDeterministic(observations)
	}

	// Reports are derivable from the raw observation set regardless of
	// which path ranked the brands
	if outcome.Aggregated == nil || len(outcome.Aggregated.ReportByBrand) == 0 {
		outcome.Aggregated = a.buildReports(observations)
	}

	if len(outcome.TopRecommendedBrands) > 0 {
		topBrand := outcome.TopRecommendedBrands[0].Name
		outcome.AIRecommendation = a.generateRecommendation(ctx, topBrand, observations[0].Prompt)
	}

	return outcome, nil
}

// -----------------------------------------------------------------------
// Semantic path
// -----------------------------------------------------------------------

const aggregationInstruction = `Analyze the following AI model responses about competitor recommendations and create comprehensive aggregated reports.

%s

Create a comprehensive analysis with the following JSON structure:

{
  "topRecommendedBrands": [
    {"name": "Brand Name Only", "score": 1, "reasoning": "Why this brand ranks highly", "sentiment": "positive"}
  ],
  "resultsByPrompt": [
    {"prompt": "Original prompt text", "providers": [{"provider": "AI Provider Name", "recommendedBrand": "Brand name", "reasoning": "Provider's reasoning", "sentiment": "positive"}]}
  ],
  "aggregatedAnalysis": {
    "reportByProvider": [
      {"provider": "AI Provider Name", "brandRankings": [{"name": "Brand Name", "ranking": 1, "positives": ["point"], "negatives": ["point"]}]}
    ],
    "reportByBrand": [
      {"brandName": "Brand Name", "overallRanking": 1, "providerInsights": [{"provider": "AI Provider Name", "ranking": 1, "positives": ["point"], "negatives": ["point"]}], "aiProvidersThink": {"positiveAspects": ["point"], "negativeAspects": ["point"], "keyFeatures": ["feature"]}}
    ]
  }
}

Rules:
1. Extract ONLY real brand/company names, no generic terms
2. CRITICAL: Deduplicate brand names. Different AI providers may return the same brand with different names:
   - "Amazon Web Services" and "AWS" are the same service, consolidate as "Amazon Web Services (AWS)"
   - "Google Cloud Platform" and "GCP" are the same platform, consolidate as "Google Cloud Platform (GCP)"
   - When consolidating, use the most complete name with the common abbreviation in parentheses
3. Create detailed positive/negative lists for each brand from each provider
4. Calculate overall rankings by averaging individual provider rankings AFTER deduplication
5. Scores are 1-10 based on frequency and sentiment
6. Consolidate insights across providers in the "aiProvidersThink" section
7. Ensure all data is factual and extracted from the responses

Return ONLY valid JSON, no additional text.`

// semanticResult is the JSON shape the aggregation model returns
type semanticResult struct {
	TopRecommendedBrands []models.TopRecommendedBrand `json:"topRecommendedBrands"`
	ResultsByPrompt      []models.PromptBreakdown     `json:"resultsByPrompt"`
	AggregatedAnalysis   *models.AggregatedAnalysis   `json:"aggregatedAnalysis"`
}

// aggregateSemantic asks the secondary model to reconcile all
// observations. It either fully succeeds or fails as a whole; a partial
// or malformed result is discarded.
func (a *Aggregator) aggregateSemantic(ctx context.Context, observations []models.Observation) (*AggregationOutcome, error) {
	prompt := fmt.Sprintf(aggregationInstruction, serializeObservations(observations))

	text, err := a.generator.GenerateContent(ctx, &interfaces.GenerateRequest{
		Prompt:     prompt,
		Model:      a.aggregationModel,
		JSONOutput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("aggregation call failed: %w", err)
	}

	result, err := parseSemanticResult(text)
	if err != nil {
		return nil, err
	}

	a.logger.Info().
		Int("brands", len(result.TopRecommendedBrands)).
		Msg("Semantic aggregation succeeded")

	return &AggregationOutcome{
		TopRecommendedBrands: result.TopRecommendedBrands,
		ResultsByPrompt:      result.ResultsByPrompt,
		Aggregated:           result.AggregatedAnalysis,
	}, nil
}

// parseSemanticResult parses the model response, attempting light repair
// before giving up
func parseSemanticResult(text string) (*semanticResult, error) {
	cleaned := CleanMarkdownFences(text)
	extracted := ExtractJSONObject(cleaned)
	if extracted == "" {
		extracted = cleaned
	}

	var result semanticResult
	if err := json.Unmarshal([]byte(extracted), &result); err != nil {
		repaired := RepairJSON(extracted)
		result = semanticResult{}
		if err := json.Unmarshal([]byte(repaired), &result); err != nil {
			return nil, fmt.Errorf("aggregation model returned malformed JSON: %w", err)
		}
	}

	if len(result.TopRecommendedBrands) == 0 || len(result.ResultsByPrompt) == 0 {
		return nil, fmt.Errorf("aggregation model returned an incomplete result")
	}

	return &result, nil
}

// serializeObservations renders all observations into the aggregation
// prompt body
func serializeObservations(observations []models.Observation) string {
	var sb strings.Builder
	sb.WriteString("AI provider responses:\n")

	for _, obs := range observations {
		fmt.Fprintf(&sb, "\nPrompt: %q\nAI Provider: %s\n", obs.Prompt, obs.Provider)

		switch obs.Kind {
		case models.ObservationStructured:
			data, err := json.Marshal(obs.Structured)
			if err == nil {
				fmt.Fprintf(&sb, "Structured Data: %s\n", data)
			}
		case models.ObservationRaw:
			fmt.Fprintf(&sb, "Response: %s\n", obs.Raw.ResponseText)
		}
		sb.WriteString("---\n")
	}

	return sb.String()
}

// -----------------------------------------------------------------------
// Deterministic fallback path
// -----------------------------------------------------------------------

// brandAccumulator is the transient per-brand reduction built during
// fallback scoring
type brandAccumulator struct {
	name       string
	score      int
	count      int
	sentiments []models.Sentiment
	firstSeen  int
}

// aggregateDeterministic keys observations by normalized brand name and
// scores each occurrence as (ceiling + 1 - rank). Brands are ordered by
// average score and given a dense 1..k ranking by sorted position, with
// ties resolved by first-encounter order.
func (a *Aggregator) aggregateDeterministic(observations []models.Observation) *AggregationOutcome {
	brands := make(map[string]*brandAccumulator)
	order := 0

	accumulate := func(name string, rank int, sentiment models.Sentiment) {
		key := strings.ToLower(name)
		acc, ok := brands[key]
		if !ok {
			acc = &brandAccumulator{name: name, firstSeen: order}
			brands[key] = acc
			order++
		}
		acc.score += a.rankScore(rank)
		acc.count++
		acc.sentiments = append(acc.sentiments, sentiment)
	}

	for _, obs := range observations {
		switch obs.Kind {
		case models.ObservationStructured:
			for _, brand := range obs.Structured.Brands {
				accumulate(brand.Name, brand.Ranking, brand.OverallSentiment)
			}
		case models.ObservationRaw:
			for _, candidate := range obs.Raw.Candidates {
				accumulate(candidate.BrandName, candidate.Rank, models.SentimentNeutral)
			}
		}
	}

	sorted := sortAccumulators(brands)

	top := make([]models.TopRecommendedBrand, 0, len(sorted))
	for _, acc := range sorted {
		top = append(top, models.TopRecommendedBrand{
			Name:      acc.name,
			Score:     int(math.Round(float64(acc.score) / float64(acc.count))),
			Reasoning: fmt.Sprintf("Ranked by %d AI provider(s)", acc.count),
			Sentiment: dominantSentiment(acc.sentiments),
		})
	}
	if len(top) > 5 {
		top = top[:5]
	}

	a.logger.Info().
		Int("brands", len(sorted)).
		Msg("Deterministic aggregation complete")

	return &AggregationOutcome{
		TopRecommendedBrands: top,
		ResultsByPrompt:      buildPromptBreakdown(observations),
		Aggregated:           a.buildReports(observations),
	}
}

// rankScore converts a stated rank into a score contribution. Higher
// stated rank always yields a higher score; ranks past the ceiling
// contribute the floor value of 1.
func (a *Aggregator) rankScore(rank int) int {
	if rank < 1 {
		rank = 1
	}
	score := a.rankCeiling + 1 - rank
	if score < 1 {
		score = 1
	}
	return score
}

// sortAccumulators orders brands by average score descending, breaking
// ties by first-encounter order so the result is deterministic
func sortAccumulators(brands map[string]*brandAccumulator) []*brandAccumulator {
	sorted := make([]*brandAccumulator, 0, len(brands))
	for _, acc := range brands {
		sorted = append(sorted, acc)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		avgI := float64(sorted[i].score) / float64(sorted[i].count)
		avgJ := float64(sorted[j].score) / float64(sorted[j].count)
		if avgI != avgJ {
			return avgI > avgJ
		}
		return sorted[i].firstSeen < sorted[j].firstSeen
	})
	return sorted
}

// dominantSentiment reduces per-occurrence sentiments to one value
func dominantSentiment(sentiments []models.Sentiment) models.Sentiment {
	for _, s := range sentiments {
		if s == models.SentimentPositive {
			return models.SentimentPositive
		}
	}
	for _, s := range sentiments {
		if s == models.SentimentNeutral {
			return models.SentimentNeutral
		}
	}
	return models.SentimentNegative
}

// -----------------------------------------------------------------------
// Derived reports
// -----------------------------------------------------------------------

// buildReports derives the per-provider and per-brand views from the
// observation set. Provider rankings are preserved as each provider
// stated them; per-brand overall rank is the dense position in the
// average-score ordering.
func (a *Aggregator) buildReports(observations []models.Observation) *models.AggregatedAnalysis {
	providerOrder := []string{}
	providerBrands := make(map[string][]models.BrandRanking)
	providerSeen := make(map[string]map[string]bool)

	brands := make(map[string]*brandAccumulator)
	insights := make(map[string][]models.ProviderInsight)
	order := 0

	for _, obs := range observations {
		if _, ok := providerBrands[obs.Provider]; !ok {
			providerOrder = append(providerOrder, obs.Provider)
			providerBrands[obs.Provider] = []models.BrandRanking{}
			providerSeen[obs.Provider] = make(map[string]bool)
		}

		record := func(name string, rank int, positives, negatives []string, sentiment models.Sentiment) {
			key := strings.ToLower(name)

			if !providerSeen[obs.Provider][key] {
				providerSeen[obs.Provider][key] = true
				providerBrands[obs.Provider] = append(providerBrands[obs.Provider], models.BrandRanking{
					Name:      name,
					Ranking:   rank,
					Positives: positives,
					Negatives: negatives,
				})
			}

			acc, ok := brands[key]
			if !ok {
				acc = &brandAccumulator{name: name, firstSeen: order}
				brands[key] = acc
				order++
			}
			acc.score += a.rankScore(rank)
			acc.count++
			acc.sentiments = append(acc.sentiments, sentiment)

			insights[key] = append(insights[key], models.ProviderInsight{
				Provider:  obs.Provider,
				Ranking:   rank,
				Positives: positives,
				Negatives: negatives,
			})
		}

		switch obs.Kind {
		case models.ObservationStructured:
			for _, brand := range obs.Structured.Brands {
				record(brand.Name, brand.Ranking, brand.Positives, brand.Negatives, brand.OverallSentiment)
			}
		case models.ObservationRaw:
			for _, candidate := range obs.Raw.Candidates {
				record(candidate.BrandName, candidate.Rank, nil, nil, models.SentimentNeutral)
			}
		}
	}

	reportByProvider := make([]models.ProviderReport, 0, len(providerOrder))
	for _, provider := range providerOrder {
		reportByProvider = append(reportByProvider, models.ProviderReport{
			Provider:      provider,
			BrandRankings: providerBrands[provider],
		})
	}

	sorted := sortAccumulators(brands)
	reportByBrand := make([]models.BrandReport, 0, len(sorted))
	for i, acc := range sorted {
		key := strings.ToLower(acc.name)
		brandInsights := insights[key]

		var positives, negatives []string
		for _, insight := range brandInsights {
			positives = append(positives, insight.Positives...)
			negatives = append(negatives, insight.Negatives...)
		}

		reportByBrand = append(reportByBrand, models.BrandReport{
			BrandName:        acc.name,
			OverallRanking:   i + 1,
			ProviderInsights: brandInsights,
			AIProvidersThink: models.ConsolidatedAspects{
				PositiveAspects: dedupeStrings(positives),
				NegativeAspects: dedupeStrings(negatives),
				KeyFeatures:     []string{fmt.Sprintf("Evaluated by %d provider(s)", acc.count)},
			},
		})
	}
	if len(reportByBrand) > 10 {
		reportByBrand = reportByBrand[:10]
	}

	return &models.AggregatedAnalysis{
		ReportByProvider: reportByProvider,
		ReportByBrand:    reportByBrand,
	}
}

// buildPromptBreakdown groups each provider's top recommendation under
// the prompt that elicited it
func buildPromptBreakdown(observations []models.Observation) []models.PromptBreakdown {
	promptOrder := []string{}
	verdicts := make(map[string][]models.ProviderVerdict)

	for _, obs := range observations {
		if _, ok := verdicts[obs.Prompt]; !ok {
			promptOrder = append(promptOrder, obs.Prompt)
			verdicts[obs.Prompt] = []models.ProviderVerdict{}
		}

		switch obs.Kind {
		case models.ObservationStructured:
			for _, brand := range obs.Structured.Brands {
				verdicts[obs.Prompt] = append(verdicts[obs.Prompt], models.ProviderVerdict{
					Provider:         obs.Provider,
					RecommendedBrand: brand.Name,
					Reasoning:        fmt.Sprintf("Ranked #%d", brand.Ranking),
					Sentiment:        brand.OverallSentiment,
				})
			}
		case models.ObservationRaw:
			if len(obs.Raw.Candidates) > 0 {
				verdicts[obs.Prompt] = append(verdicts[obs.Prompt], models.ProviderVerdict{
					Provider:         obs.Provider,
					RecommendedBrand: obs.Raw.Candidates[0].BrandName,
					Reasoning:        "Mentioned first in AI response",
					Sentiment:        models.SentimentNeutral,
				})
			}
		}
	}

	breakdown := make([]models.PromptBreakdown, 0, len(promptOrder))
	for _, prompt := range promptOrder {
		breakdown = append(breakdown, models.PromptBreakdown{
			Prompt:    prompt,
			Providers: verdicts[prompt],
		})
	}
	return breakdown
}

// dedupeStrings removes duplicates while preserving first-seen order
func dedupeStrings(values []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		result = append(result, v)
	}
	return result
}

// -----------------------------------------------------------------------
// Top-pick recommendation
// -----------------------------------------------------------------------

const recommendationInstruction = `Based on AI analysis across multiple providers, %q ranked as the #1 recommendation for: %q

Create a single, compelling one-line recommendation (max 25 words) that explains why %s is the best choice. Make it actionable and confident.

Your one-liner for %s:`

// generateRecommendation asks the fast secondary model for a one-line
// justification of the top pick, with a templated sentence as fallback
func (a *Aggregator) generateRecommendation(ctx context.Context, topBrand, originalPrompt string) string {
	fallback := fmt.Sprintf("Based on comprehensive analysis, %s emerges as the top recommendation.", topBrand)

	text, err := a.generator.GenerateContent(ctx, &interfaces.GenerateRequest{
		Prompt:      fmt.Sprintf(recommendationInstruction, topBrand, originalPrompt, topBrand, topBrand),
		Model:       a.recommendationModel,
		Temperature: 0.4,
		MaxTokens:   100,
	})
	if err != nil {
		a.logger.Warn().Err(err).Msg("Recommendation generation failed, using template")
		return fallback
	}

	recommendation := strings.TrimSpace(text)
	if recommendation == "" {
		return fallback
	}
	return recommendation
}
