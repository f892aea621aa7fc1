package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/brandscope/internal/interfaces"
	"github.com/ternarybob/brandscope/internal/models"
)

// StructuredParseError means a provider answered but its response could
// not be parsed into the brand-list schema. Distinct from transport
// failures: the caller retries the same pair in freeform mode.
type StructuredParseError struct {
	Provider string
	Err      error
}

func (e *StructuredParseError) Error() string {
	return fmt.Sprintf("structured parse failed for provider %s: %v", e.Provider, e.Err)
}

func (e *StructuredParseError) Unwrap() error {
	return e.Err
}

// Executor sends one prompt to one provider. Structured mode requests a
// JSON-object response and parses it with leniency; freeform mode
// returns raw text and mines it for brand candidates. Query runs the
// full chain: structured, then freeform on parse failure. Transport
// errors propagate typed so the orchestrator can record a placeholder.
type Executor struct {
	transport interfaces.CompletionTransport
	extractor *Extractor
	logger    arbor.ILogger
}

// NewExecutor creates a provider query executor
func NewExecutor(transport interfaces.CompletionTransport, extractor *Extractor, logger arbor.ILogger) *Executor {
	return &Executor{
		transport: transport,
		extractor: extractor,
		logger:    logger,
	}
}

// Query runs the structured-then-freeform chain for one pair and returns
// exactly one observation, or a transport error when the provider is
// unreachable in both modes.
func (e *Executor) Query(ctx context.Context, providerID, prompt string) (models.Observation, error) {
	structured, err := e.QueryStructured(ctx, providerID, prompt)
	if err == nil {
		return models.NewStructuredObservation(providerID, prompt, structured), nil
	}

	var parseErr *StructuredParseError
	if !errors.As(err, &parseErr) {
		return models.Observation{}, err
	}

	e.logger.Debug().
		Str("provider", providerID).
		Err(parseErr.Err).
		Msg("Structured parse failed, retrying freeform")

	text, err := e.QueryFreeform(ctx, providerID, prompt)
	if err != nil {
		return models.Observation{}, err
	}

	candidates := e.extractor.Extract(text, prompt)
	return models.NewRawObservation(providerID, prompt, text, candidates), nil
}

// QueryStructured requests a JSON-object response and parses it into the
// brand-list schema. Parse failures return *StructuredParseError.
func (e *Executor) QueryStructured(ctx context.Context, providerID, prompt string) (*models.StructuredBrandSet, error) {
	completion, err := e.transport.Complete(ctx, providerID, prompt, interfaces.CompletionOptions{
		StructuredOutput: true,
	})
	if err != nil {
		return nil, err
	}

	set, err := parseStructuredResponse(completion.Text)
	if err != nil {
		return nil, &StructuredParseError{Provider: providerID, Err: err}
	}

	e.logger.Debug().
		Str("provider", providerID).
		Int("brands", len(set.Brands)).
		Msg("Structured provider response parsed")

	return set, nil
}

// QueryFreeform requests a plain-text response with no parsing
func (e *Executor) QueryFreeform(ctx context.Context, providerID, prompt string) (string, error) {
	completion, err := e.transport.Complete(ctx, providerID, prompt, interfaces.CompletionOptions{})
	if err != nil {
		return "", err
	}
	return completion.Text, nil
}

// parseStructuredResponse parses a provider response into the brand-list
// schema. Leniencies: strip markdown fences, then locate the first
// balanced object span when prose surrounds the JSON.
func parseStructuredResponse(text string) (*models.StructuredBrandSet, error) {
	cleaned := CleanMarkdownFences(text)

	var set models.StructuredBrandSet
	if err := json.Unmarshal([]byte(cleaned), &set); err == nil && len(set.Brands) > 0 {
		return &set, nil
	}

	extracted := ExtractJSONObject(cleaned)
	if extracted == "" {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	set = models.StructuredBrandSet{}
	if err := json.Unmarshal([]byte(extracted), &set); err != nil {
		return nil, fmt.Errorf("failed to parse brand list: %w", err)
	}
	if len(set.Brands) == 0 {
		return nil, fmt.Errorf("response JSON contains no brands")
	}

	return &set, nil
}
