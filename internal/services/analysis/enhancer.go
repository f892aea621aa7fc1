package analysis

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/brandscope/internal/interfaces"
)

// structuredResponseSchema is the JSON shape the enhanced prompt asks
// providers to return
const structuredResponseSchema = `{"brands": [{"name": "string", "ranking": 1, "positives": ["string"], "negatives": ["string"], "overallSentiment": "positive|neutral|negative"}]}`

const enhancerInstruction = `You are a prompt engineer. Rewrite the user prompt below so that a language model answering it will return a ranked comparison of the %d most relevant brands or companies.

The rewritten prompt must instruct the model to:
1. Name real brands or companies only
2. Rank them from best to worst
3. List concrete positive and negative aspects for each
4. State an overall sentiment for each (positive, neutral, or negative)
5. Respond with a single JSON object matching exactly this schema, with no surrounding prose:
%s

Return only the rewritten prompt text, nothing else.

User prompt:
%s`

// Enhancer rewrites a raw user prompt into one engineered to elicit a
// ranked, structured brand comparison. Enhancement failure is a
// recoverable degradation: the original prompt is used unchanged.
type Enhancer struct {
	generator interfaces.ContentGenerator
	model     string
	maxBrands int
	logger    arbor.ILogger
}

// NewEnhancer creates a prompt enhancer backed by the secondary model
func NewEnhancer(generator interfaces.ContentGenerator, model string, maxBrands int, logger arbor.ILogger) *Enhancer {
	if maxBrands <= 0 {
		maxBrands = 7
	}
	return &Enhancer{
		generator: generator,
		model:     model,
		maxBrands: maxBrands,
		logger:    logger,
	}
}

// Enhance rewrites the prompt. On any failure it returns the original
// prompt and logs the degradation so a later failure review can see it.
func (e *Enhancer) Enhance(ctx context.Context, prompt string) string {
	enhancerPrompt := fmt.Sprintf(enhancerInstruction, e.maxBrands, structuredResponseSchema, prompt)

	text, err := e.generator.GenerateContent(ctx, &interfaces.GenerateRequest{
		Prompt: enhancerPrompt,
		Model:  e.model,
	})
	if err != nil {
		e.logger.Warn().
			Err(err).
			Msg("Prompt enhancement failed, using original prompt")
		return prompt
	}

	enhanced := CleanMarkdownFences(text)
	if enhanced == "" {
		e.logger.Warn().Msg("Prompt enhancement returned empty text, using original prompt")
		return prompt
	}

	e.logger.Debug().
		Int("original_length", len(prompt)).
		Int("enhanced_length", len(enhanced)).
		Msg("Prompt enhanced")

	return enhanced
}
