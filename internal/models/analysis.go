// -----------------------------------------------------------------------
// Analysis Job - Persistent competitive analysis job record
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"
)

// AnalysisStatus represents the lifecycle state of an analysis job.
// Legal transitions: pending -> in_progress -> {completed, failed}.
// No other edges, no re-entry into a terminal state.
type AnalysisStatus string

const (
	AnalysisStatusPending    AnalysisStatus = "pending"
	AnalysisStatusInProgress AnalysisStatus = "in_progress"
	AnalysisStatusCompleted  AnalysisStatus = "completed"
	AnalysisStatusFailed     AnalysisStatus = "failed"
)

// IsTerminal returns true if the status is completed or failed
func (s AnalysisStatus) IsTerminal() bool {
	return s == AnalysisStatusCompleted || s == AnalysisStatusFailed
}

// CanTransition reports whether a transition from s to next is legal
func (s AnalysisStatus) CanTransition(next AnalysisStatus) bool {
	switch s {
	case AnalysisStatusPending:
		return next == AnalysisStatusInProgress
	case AnalysisStatusInProgress:
		return next == AnalysisStatusCompleted || next == AnalysisStatusFailed
	default:
		return false
	}
}

// Analysis is the persistent record of one competitive analysis job.
// Owned exclusively by the progress tracker; all mutations go through it.
type Analysis struct {
	ID                string          `json:"id" badgerhold:"key"`
	Title             string          `json:"title"`
	Status            AnalysisStatus  `json:"status"`
	Progress          int             `json:"progress"` // 0..100, monotonically non-decreasing while in_progress
	SelectedProviders []string        `json:"selectedProviders"`
	SelectedPrompts   []string        `json:"selectedPrompts"`
	Results           *AnalysisResults `json:"results,omitempty"`
	Error             string          `json:"error,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// NewAnalysis creates a pending analysis job
func NewAnalysis(id, title string, providers, prompts []string) *Analysis {
	now := time.Now()
	return &Analysis{
		ID:                id,
		Title:             title,
		Status:            AnalysisStatusPending,
		Progress:          0,
		SelectedProviders: providers,
		SelectedPrompts:   prompts,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Validate validates the analysis job
func (a *Analysis) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("analysis ID is required")
	}
	if a.Title == "" {
		return fmt.Errorf("analysis title is required")
	}
	if len(a.SelectedProviders) == 0 {
		return fmt.Errorf("at least one provider is required")
	}
	if len(a.SelectedPrompts) == 0 {
		return fmt.Errorf("at least one prompt is required")
	}
	if a.Progress < 0 || a.Progress > 100 {
		return fmt.Errorf("progress out of range: %d", a.Progress)
	}
	return nil
}

// TotalCalls returns the size of the provider x prompt matrix
func (a *Analysis) TotalCalls() int {
	return len(a.SelectedProviders) * len(a.SelectedPrompts)
}

// -----------------------------------------------------------------------
// Persisted result payload
// -----------------------------------------------------------------------

// AnalysisResults is the persisted result payload of an analysis job.
// The JSON key names are a wire contract consumed by external callers
// and must not change.
type AnalysisResults struct {
	CompetitorResults    []CompetitorResult    `json:"competitorResults"`
	StructuredResponses  []StructuredResponse  `json:"structuredResponses,omitempty"`
	AggregatedAnalysis   *AggregatedAnalysis   `json:"aggregatedAnalysis,omitempty"`
	TopRecommendedBrands []TopRecommendedBrand `json:"topRecommendedBrands,omitempty"`
	ResultsByPrompt      []PromptBreakdown     `json:"resultsByPrompt,omitempty"`
	EnhancedPrompt       string                `json:"enhancedPrompt,omitempty"`
	AIRecommendation     string                `json:"aiRecommendation,omitempty"`
}

// CompetitorResult is one provider's answer to one prompt, with the brands
// recommended in it (structured, or heuristically extracted from raw text)
type CompetitorResult struct {
	Prompt            string             `json:"prompt"`
	Provider          string             `json:"provider"`
	Response          string             `json:"response"`
	RecommendedBrands []RecommendedBrand `json:"recommendedBrands"`
}

// RecommendedBrand is a single brand mention inside one provider response
type RecommendedBrand struct {
	Name    string `json:"name"`
	Ranking int    `json:"ranking"`
	Reason  string `json:"reason"`
}

// StructuredResponse holds a provider response that parsed into the fixed
// brand-list schema
type StructuredResponse struct {
	Prompt         string             `json:"prompt"`
	Provider       string             `json:"provider"`
	StructuredData StructuredBrandSet `json:"structuredData"`
}

// StructuredBrandSet is the fixed schema providers are asked to return
type StructuredBrandSet struct {
	Brands []StructuredBrand `json:"brands"`
}

// StructuredBrand is one ranked brand in a structured provider response
type StructuredBrand struct {
	Name             string    `json:"name"`
	Ranking          int       `json:"ranking"`
	Positives        []string  `json:"positives"`
	Negatives        []string  `json:"negatives"`
	OverallSentiment Sentiment `json:"overallSentiment"`
}

// Sentiment is a provider's overall stance on a brand
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// -----------------------------------------------------------------------
// Aggregated report
// -----------------------------------------------------------------------

// AggregatedAnalysis is the cross-provider reduction of all observations
type AggregatedAnalysis struct {
	ReportByProvider []ProviderReport `json:"reportByProvider"`
	ReportByBrand    []BrandReport    `json:"reportByBrand"`
}

// ProviderReport preserves one provider's brand rankings as that provider
// stated them
type ProviderReport struct {
	Provider      string         `json:"provider"`
	BrandRankings []BrandRanking `json:"brandRankings"`
}

// BrandRanking is one brand entry within a provider report
type BrandRanking struct {
	Name      string   `json:"name"`
	Ranking   int      `json:"ranking"`
	Positives []string `json:"positives"`
	Negatives []string `json:"negatives"`
}

// BrandReport is the per-brand view: overall rank plus each provider's
// contribution to it
type BrandReport struct {
	BrandName        string             `json:"brandName"`
	OverallRanking   int                `json:"overallRanking"`
	ProviderInsights []ProviderInsight  `json:"providerInsights"`
	AIProvidersThink ConsolidatedAspects `json:"aiProvidersThink"`
}

// ProviderInsight is one provider's take on one brand
type ProviderInsight struct {
	Provider  string   `json:"provider"`
	Ranking   int      `json:"ranking"`
	Positives []string `json:"positives"`
	Negatives []string `json:"negatives"`
}

// ConsolidatedAspects merges aspect lists for a brand across all providers
type ConsolidatedAspects struct {
	PositiveAspects []string `json:"positiveAspects"`
	NegativeAspects []string `json:"negativeAspects"`
	KeyFeatures     []string `json:"keyFeatures"`
}

// TopRecommendedBrand is one entry in the final cross-provider ranking
type TopRecommendedBrand struct {
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	Reasoning string    `json:"reasoning"`
	Sentiment Sentiment `json:"sentiment"`
}

// PromptBreakdown groups provider recommendations under the prompt that
// elicited them
type PromptBreakdown struct {
	Prompt    string             `json:"prompt"`
	Providers []ProviderVerdict  `json:"providers"`
}

// ProviderVerdict is one provider's top recommendation for one prompt
type ProviderVerdict struct {
	Provider         string    `json:"provider"`
	RecommendedBrand string    `json:"recommendedBrand"`
	Reasoning        string    `json:"reasoning"`
	Sentiment        Sentiment `json:"sentiment"`
}
