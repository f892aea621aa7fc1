package analysis

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ternarybob/arbor"
)

func TestExtractor_NumberedList(t *testing.T) {
	extractor := NewExtractor(arbor.NewLogger())

	text := "Here are my picks:\n1. Stripe is the most developer friendly option.\n2. Square works well for retail.\n3. PayPal has the widest adoption."
	candidates := extractor.Extract(text, "best payment processors")

	if len(candidates) < 3 {
		t.Fatalf("Expected at least 3 candidates, got %d", len(candidates))
	}

	names := []string{candidates[0].BrandName, candidates[1].BrandName, candidates[2].BrandName}
	expected := []string{"Stripe", "Square", "PayPal"}
	if !reflect.DeepEqual(names, expected) {
		t.Errorf("Expected %v, got %v", expected, names)
	}

	for i, c := range candidates {
		if c.Rank != i+1 {
			t.Errorf("Expected sequential ranks starting at 1, got rank %d at position %d", c.Rank, i)
		}
	}
}

func TestExtractor_DuplicateSuppression(t *testing.T) {
	extractor := NewExtractor(arbor.NewLogger())

	text := "1. Acme Corp is excellent for small teams. 2. Acme Corp also works for enterprises."
	candidates := extractor.Extract(text, "")

	count := 0
	for _, c := range candidates {
		if strings.EqualFold(c.BrandName, "Acme Corp") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected exactly one entry for Acme Corp, got %d", count)
	}
	if len(candidates) == 0 || candidates[0].BrandName != "Acme Corp" {
		t.Errorf("Expected Acme Corp first with its original rank, got %+v", candidates)
	}
	if candidates[0].Rank != 1 {
		t.Errorf("Expected first-seen rank 1 retained, got %d", candidates[0].Rank)
	}
}

func TestExtractor_CaseInsensitiveDedup(t *testing.T) {
	extractor := NewExtractor(arbor.NewLogger())

	text := "1. HubSpot leads the pack.\nWe recommend HUBSPOT for most teams."
	candidates := extractor.Extract(text, "")

	count := 0
	for _, c := range candidates {
		if strings.EqualFold(c.BrandName, "hubspot") {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected case-insensitive dedup to keep one entry, got %d", count)
	}
}

func TestExtractor_Deterministic(t *testing.T) {
	extractor := NewExtractor(arbor.NewLogger())

	text := "1. Notion is flexible.\n**Asana** stands out for task tracking.\nWe also recommend Trello for simple boards.\nMonday: a visual alternative."

	first := extractor.Extract(text, "")
	for i := 0; i < 10; i++ {
		again := extractor.Extract(text, "")
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("Extraction is not deterministic: run %d differed", i)
		}
	}
}

func TestExtractor_PatternPriority(t *testing.T) {
	extractor := NewExtractor(arbor.NewLogger())

	// Numbered-list hits outrank bold hits even when the bold span
	// appears earlier in the text
	text := "**Zendesk** has a loyal following.\n1. Freshdesk tops the list."
	candidates := extractor.Extract(text, "")

	if len(candidates) < 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].BrandName != "Freshdesk" {
		t.Errorf("Expected numbered-list candidate first, got %q", candidates[0].BrandName)
	}
	if candidates[1].BrandName != "Zendesk" {
		t.Errorf("Expected bold candidate second, got %q", candidates[1].BrandName)
	}
}

func TestExtractor_StoplistAndLengthBounds(t *testing.T) {
	extractor := NewExtractor(arbor.NewLogger())

	t.Run("Stoplist phrases rejected", func(t *testing.T) {
		text := "**Overall** the market is crowded.\n**Conclusion**: pick what fits.\n**Shopify** remains the leader."
		candidates := extractor.Extract(text, "")

		for _, c := range candidates {
			lower := strings.ToLower(c.BrandName)
			if lower == "overall" || lower == "conclusion" {
				t.Errorf("Stoplist phrase accepted as brand: %q", c.BrandName)
			}
		}

		found := false
		for _, c := range candidates {
			if c.BrandName == "Shopify" {
				found = true
			}
		}
		if !found {
			t.Error("Expected Shopify to survive the stoplist")
		}
	})

	t.Run("Too-short names rejected", func(t *testing.T) {
		candidates := extractor.Extract("1. Go is a language", "")
		for _, c := range candidates {
			if len(c.BrandName) < minBrandNameLen {
				t.Errorf("Accepted name below length bound: %q", c.BrandName)
			}
		}
	})

	t.Run("Too-long names rejected", func(t *testing.T) {
		long := strings.Repeat("Verylongbrandname ", 5)
		candidates := extractor.Extract("1. "+long+"is the option", "")
		for _, c := range candidates {
			if len(c.BrandName) > maxBrandNameLen {
				t.Errorf("Accepted name above length bound: %q", c.BrandName)
			}
		}
	})
}

func TestExtractor_ContextSnippet(t *testing.T) {
	extractor := NewExtractor(arbor.NewLogger())

	prefix := strings.Repeat("x", 300)
	text := prefix + "\n1. Datadog is the monitoring leader.\n" + strings.Repeat("y", 300)
	candidates := extractor.Extract(text, "")

	if len(candidates) == 0 {
		t.Fatal("Expected a candidate")
	}
	snippet := candidates[0].ContextSnippet
	if !strings.Contains(snippet, "Datadog") {
		t.Errorf("Expected context snippet to contain the match, got %q", snippet)
	}
	if len(snippet) > 2*contextRadius+10 {
		t.Errorf("Context snippet too large: %d chars", len(snippet))
	}
}

func TestExtractor_EmptyAndNoise(t *testing.T) {
	extractor := NewExtractor(arbor.NewLogger())

	if candidates := extractor.Extract("", ""); len(candidates) != 0 {
		t.Errorf("Expected no candidates from empty text, got %d", len(candidates))
	}

	noise := "it depends on your needs and budget, there is no single answer here."
	if candidates := extractor.Extract(noise, ""); len(candidates) != 0 {
		t.Errorf("Expected no candidates from lowercase prose, got %+v", candidates)
	}
}
