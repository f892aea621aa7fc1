package interfaces

import (
	"context"
)

// CompletionOptions controls one provider-transport call
type CompletionOptions struct {
	StructuredOutput bool    // Request a JSON-object response
	MaxTokens        int     // 0 uses the transport default
	Temperature      float32 // 0 uses the transport default
}

// Completion is the result of one provider-transport call
type Completion struct {
	Text string
}

// CompletionTransport sends one prompt to one provider endpoint and returns
// its completion. Implementations must honor context deadlines and return
// the typed errors from services/llm so callers can distinguish
// authorization, rate/quota, and generic transport failures.
type CompletionTransport interface {
	Complete(ctx context.Context, providerID, prompt string, opts CompletionOptions) (*Completion, error)
	VerifyKey(ctx context.Context, apiKey string) error
}

// GenerateRequest is a secondary-model content generation request
// (prompt enhancement, semantic aggregation, one-line recommendation)
type GenerateRequest struct {
	Prompt      string
	Model       string  // Empty uses the provider default
	Temperature float32 // 0 uses the provider default
	MaxTokens   int     // 0 uses the provider default
	JSONOutput  bool    // Ask the model to emit a single JSON object
}

// ContentGenerator generates text with the configured secondary model
type ContentGenerator interface {
	GenerateContent(ctx context.Context, req *GenerateRequest) (string, error)
}
