package analysis

import (
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/brandscope/internal/models"
)

const (
	minBrandNameLen = 3
	maxBrandNameLen = 49
	contextRadius   = 150
)

// patternMatch is one raw hit from a matcher strategy
type patternMatch struct {
	name   string
	offset int
}

// matcherStrategy scans text for brand-name candidates. Each strategy is
// a pure function over the input text; strategy order defines candidate
// priority, so earlier strategies win ties against later ones.
type matcherStrategy struct {
	name  string
	match func(text string) []patternMatch
}

// capitalized token run, optionally with a parenthesized abbreviation
const brandToken = `[A-Z][A-Za-z0-9&.\-']*(?:\s+[A-Z][A-Za-z0-9&.\-']*)*(?:\s*\([A-Z][A-Za-z0-9]*\))?`

// Lead-in keywords match either case; the captured token itself must
// look like a proper name, so the case-insensitive flag stays off the
// whole pattern.
var (
	numberedItemPattern = regexp.MustCompile(`(?:^|\s)\d+[.)]\s+\**(` + brandToken + `)`)
	boldSpanPattern     = regexp.MustCompile(`\*\*([^*\n]+?)\*\*`)
	ordinalLeadPattern  = regexp.MustCompile(`\b(?:[Ff]irst|[Ss]econd|[Tt]hird|[Ff]ourth|[Ff]ifth|[Ss]ixth|[Ss]eventh)(?:ly)?[,:]?\s+(?:there(?:'s| is)\s+|is\s+|we have\s+)?(` + brandToken + `)`)
	recommendPattern    = regexp.MustCompile(`\b(?:[Rr]ecommend(?:ed|s|ing)?|[Cc]onsider(?:ing)?|[Ss]uggest(?:ed|s|ing)?)\s+(?:using\s+|trying\s+|checking out\s+)?(` + brandToken + `)`)
	assertionPattern    = regexp.MustCompile(`(` + brandToken + `)\s+(?:is|are|stands out|offers|provides|excels)\b`)
	colonLabelPattern   = regexp.MustCompile(`(?m)^\s*[-*]?\s*\**(` + brandToken + `)\**\s*:`)
)

// regexMatcher adapts a single-capture-group pattern into a strategy
func regexMatcher(name string, pattern *regexp.Regexp) matcherStrategy {
	return matcherStrategy{
		name: name,
		match: func(text string) []patternMatch {
			var matches []patternMatch
			for _, loc := range pattern.FindAllStringSubmatchIndex(text, -1) {
				if loc[2] < 0 {
					continue
				}
				matches = append(matches, patternMatch{
					name:   text[loc[2]:loc[3]],
					offset: loc[2],
				})
			}
			return matches
		},
	}
}

// defaultStrategies returns the pattern battery in priority order
func defaultStrategies() []matcherStrategy {
	return []matcherStrategy{
		regexMatcher("numbered_list", numberedItemPattern),
		regexMatcher("bold_span", boldSpanPattern),
		regexMatcher("ordinal_lead", ordinalLeadPattern),
		regexMatcher("recommendation", recommendPattern),
		regexMatcher("assertion", assertionPattern),
		regexMatcher("colon_label", colonLabelPattern),
	}
}

// stoplist holds lowercased phrases that pattern-match like brand names but
// are structural prose. Checked against the cleaned candidate name.
var stoplist = map[string]bool{
	"here":            true,
	"here are":        true,
	"the best":        true,
	"best options":    true,
	"top picks":       true,
	"in conclusion":   true,
	"in summary":      true,
	"overall":         true,
	"however":         true,
	"for example":     true,
	"for instance":    true,
	"keep in mind":    true,
	"note":            true,
	"pros":            true,
	"cons":            true,
	"pros and cons":   true,
	"key features":    true,
	"pricing":         true,
	"summary":         true,
	"conclusion":      true,
	"recommendation":  true,
	"recommendations": true,
	"final thoughts":  true,
	"my top pick":     true,
	"top pick":        true,
	"honorable mention": true,
	"it":              true,
	"this":            true,
	"that":            true,
	"these":           true,
	"those":           true,
	"they":            true,
	"there":           true,
	"when":            true,
	"while":           true,
	"although":        true,
	"additionally":    true,
	"finally":         true,
	"lastly":          true,
}

// Extractor mines raw provider text for brand-name candidates when a
// structured response is unavailable. Best effort: it over-selects and
// relies on downstream aggregation to filter noise. Output is
// deterministic for a fixed input text.
type Extractor struct {
	strategies []matcherStrategy
	logger     arbor.ILogger
}

// NewExtractor creates an extractor with the default pattern battery
func NewExtractor(logger arbor.ILogger) *Extractor {
	return &Extractor{
		strategies: defaultStrategies(),
		logger:     logger,
	}
}

// Extract returns candidate brands from raw response text in rank order.
// The prompt is accepted for logging context only and is never parsed.
func (e *Extractor) Extract(text, prompt string) []models.BrandCandidate {
	var candidates []models.BrandCandidate
	seen := make(map[string]bool)
	rank := 1

	for _, strategy := range e.strategies {
		for _, m := range strategy.match(text) {
			name := cleanCandidateName(m.name)
			if !acceptableCandidate(name) {
				continue
			}

			key := strings.ToLower(name)
			if seen[key] {
				continue
			}
			seen[key] = true

			candidates = append(candidates, models.BrandCandidate{
				BrandName:      name,
				Rank:           rank,
				ContextSnippet: contextSnippet(text, m.offset),
			})
			rank++
		}
	}

	if e.logger != nil {
		e.logger.Debug().
			Int("candidates", len(candidates)).
			Int("text_length", len(text)).
			Msg("Heuristic brand extraction complete")
	}

	return candidates
}

// cleanCandidateName strips emphasis markers and dangling punctuation
func cleanCandidateName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.Trim(name, "*_`")
	name = strings.TrimRight(name, ".,;:!?-")
	return strings.TrimSpace(name)
}

// acceptableCandidate applies the stoplist and length bounds
func acceptableCandidate(name string) bool {
	if len(name) < minBrandNameLen || len(name) > maxBrandNameLen {
		return false
	}
	return !stoplist[strings.ToLower(name)]
}

// contextSnippet captures surrounding text for downstream review
func contextSnippet(text string, offset int) string {
	start := offset - contextRadius
	if start < 0 {
		start = 0
	}
	end := offset + contextRadius
	if end > len(text) {
		end = len(text)
	}
	return strings.TrimSpace(text[start:end])
}
