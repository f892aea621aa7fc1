// Package analysis implements the competitive analysis engine: prompt
// enhancement, the provider query matrix, heuristic brand extraction,
// progress tracking, aggregation, and orchestration.
package analysis

import (
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile(`(?s)^\s*` + "```" + `(?:json|JSON)?\s*\n?(.*?)\n?\s*` + "```" + `\s*$`)

// CleanMarkdownFences robustly removes markdown code fences from a model response
func CleanMarkdownFences(s string) string {
	s = strings.TrimSpace(s)

	// Match: ```json\n or ```\n at start, and ``` at end
	if matches := fencePattern.FindStringSubmatch(s); len(matches) > 1 {
		s = matches[1]
	}

	// Fallback: simple prefix/suffix trimming
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}

// ExtractJSONObject locates the first balanced {...} span in text.
// Models often surround the JSON payload with prose; this finds the
// object boundaries while respecting string literals and escapes.
// Returns an empty string when no balanced object exists.
func ExtractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}

		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}

	return ""
}

var trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)

// RepairJSON attempts light repair of common model JSON defects:
// trailing commas before a closing brace/bracket, and a truncated
// response cut off inside a string literal or before closing braces.
// Returns the repaired string; callers re-attempt parsing on the result.
func RepairJSON(s string) string {
	s = strings.TrimSpace(s)

	// Remove trailing commas
	s = trailingCommaPattern.ReplaceAllString(s, "$1")

	// Close an unterminated string literal from a truncated response
	inString := false
	escaped := false
	var open []byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				open = append(open, c)
			}
		case '}', ']':
			if !inString && len(open) > 0 {
				open = open[:len(open)-1]
			}
		}
	}

	if inString {
		s += `"`
	}

	// Drop a dangling trailing comma left by truncation
	s = strings.TrimRight(s, " \t\r\n")
	s = strings.TrimSuffix(s, ",")

	// Close unclosed braces and brackets innermost first
	for i := len(open) - 1; i >= 0; i-- {
		if open[i] == '{' {
			s += "}"
		} else {
			s += "]"
		}
	}

	return s
}
