// -----------------------------------------------------------------------
// Provider Observation - Tagged result of one (provider, prompt) query
// -----------------------------------------------------------------------

package models

// ObservationKind discriminates the two observation shapes
type ObservationKind string

const (
	// ObservationStructured means the provider response parsed into the
	// fixed brand-list schema
	ObservationStructured ObservationKind = "structured"
	// ObservationRaw means the response is retained as free text with
	// heuristically extracted brand candidates
	ObservationRaw ObservationKind = "raw"
)

// Observation is one result of querying one provider with one prompt.
// Exactly one of Structured or Raw is set, selected by Kind. Aggregation
// branches exhaustively over the tag.
type Observation struct {
	Provider string          `json:"provider"`
	Prompt   string          `json:"prompt"`
	Kind     ObservationKind `json:"kind"`

	Structured *StructuredBrandSet `json:"structured,omitempty"`
	Raw        *RawObservation     `json:"raw,omitempty"`
}

// RawObservation holds a free-text provider response and the candidates
// mined from it
type RawObservation struct {
	ResponseText string           `json:"responseText"`
	Candidates   []BrandCandidate `json:"candidates"`
}

// BrandCandidate is one heuristically extracted brand mention
type BrandCandidate struct {
	BrandName      string `json:"brandName"`
	Rank           int    `json:"rank"`
	ContextSnippet string `json:"contextSnippet"`
}

// NewStructuredObservation creates a structured observation
func NewStructuredObservation(provider, prompt string, data *StructuredBrandSet) Observation {
	return Observation{
		Provider:   provider,
		Prompt:     prompt,
		Kind:       ObservationStructured,
		Structured: data,
	}
}

// NewRawObservation creates a raw observation with extracted candidates
func NewRawObservation(provider, prompt, responseText string, candidates []BrandCandidate) Observation {
	return Observation{
		Provider: provider,
		Prompt:   prompt,
		Kind:     ObservationRaw,
		Raw: &RawObservation{
			ResponseText: responseText,
			Candidates:   candidates,
		},
	}
}

// NewPlaceholderObservation creates the empty observation recorded when a
// provider call fails entirely. The matrix continues; aggregation treats
// the pair as contributing no brands.
func NewPlaceholderObservation(provider, prompt, reason string) Observation {
	return Observation{
		Provider: provider,
		Prompt:   prompt,
		Kind:     ObservationRaw,
		Raw: &RawObservation{
			ResponseText: reason,
			Candidates:   []BrandCandidate{},
		},
	}
}

// IsPlaceholder reports whether the observation carries no brand data
func (o *Observation) IsPlaceholder() bool {
	switch o.Kind {
	case ObservationStructured:
		return o.Structured == nil || len(o.Structured.Brands) == 0
	case ObservationRaw:
		return o.Raw == nil || len(o.Raw.Candidates) == 0
	}
	return true
}
