package analysis

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/ternarybob/arbor"
)

func TestEnhancer_RewritesPrompt(t *testing.T) {
	generator := &mockGenerator{responses: []string{
		"Compare the top 7 CRM platforms for startups. Rank them best to worst and return JSON with positives, negatives, and sentiment per brand.",
	}}
	enhancer := NewEnhancer(generator, "gemini-2.5-flash", 7, arbor.NewLogger())

	enhanced := enhancer.Enhance(context.Background(), "best crm for startups")
	if enhanced == "best crm for startups" {
		t.Error("Expected the prompt to be rewritten")
	}
	if !strings.Contains(enhanced, "Rank") {
		t.Errorf("Unexpected enhanced prompt: %q", enhanced)
	}
}

func TestEnhancer_FailureReturnsOriginal(t *testing.T) {
	generator := &mockGenerator{err: fmt.Errorf("model unavailable")}
	enhancer := NewEnhancer(generator, "gemini-2.5-flash", 7, arbor.NewLogger())

	original := "best crm for startups"
	if enhanced := enhancer.Enhance(context.Background(), original); enhanced != original {
		t.Errorf("Expected original prompt on failure, got %q", enhanced)
	}
}

func TestEnhancer_EmptyResponseReturnsOriginal(t *testing.T) {
	generator := &mockGenerator{responses: []string{"   "}}
	enhancer := NewEnhancer(generator, "gemini-2.5-flash", 7, arbor.NewLogger())

	original := "best crm"
	if enhanced := enhancer.Enhance(context.Background(), original); enhanced != original {
		t.Errorf("Expected original prompt on empty enhancement, got %q", enhanced)
	}
}
