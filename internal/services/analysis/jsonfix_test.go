package analysis

import (
	"encoding/json"
	"testing"
)

func TestCleanMarkdownFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "No fences",
			input:    `{"brands": []}`,
			expected: `{"brands": []}`,
		},
		{
			name:     "JSON fence with language hint",
			input:    "```json\n{\"brands\": []}\n```",
			expected: `{"brands": []}`,
		},
		{
			name:     "Plain fence",
			input:    "```\n{\"brands\": []}\n```",
			expected: `{"brands": []}`,
		},
		{
			name:     "Fence with surrounding whitespace",
			input:    "  ```json\n{\"a\": 1}\n```  ",
			expected: `{"a": 1}`,
		},
		{
			name:     "Empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CleanMarkdownFences(tt.input)
			if result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	t.Run("Object surrounded by prose", func(t *testing.T) {
		input := `Here is the analysis you asked for: {"brands": [{"name": "Acme"}]} Hope this helps!`
		result := ExtractJSONObject(input)
		if result != `{"brands": [{"name": "Acme"}]}` {
			t.Errorf("Unexpected extraction: %q", result)
		}
	})

	t.Run("Braces inside string literals", func(t *testing.T) {
		input := `{"note": "use {placeholders} carefully", "ok": true} trailing`
		result := ExtractJSONObject(input)
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(result), &parsed); err != nil {
			t.Fatalf("Extracted span is not valid JSON: %v", err)
		}
		if parsed["ok"] != true {
			t.Error("Expected ok field to survive extraction")
		}
	})

	t.Run("Nested objects", func(t *testing.T) {
		input := `prefix {"a": {"b": {"c": 1}}} suffix`
		result := ExtractJSONObject(input)
		if result != `{"a": {"b": {"c": 1}}}` {
			t.Errorf("Unexpected extraction: %q", result)
		}
	})

	t.Run("No object present", func(t *testing.T) {
		if result := ExtractJSONObject("no json here"); result != "" {
			t.Errorf("Expected empty string, got %q", result)
		}
	})

	t.Run("Unbalanced object", func(t *testing.T) {
		if result := ExtractJSONObject(`{"a": 1`); result != "" {
			t.Errorf("Expected empty string for unbalanced input, got %q", result)
		}
	})
}

func TestRepairJSON(t *testing.T) {
	t.Run("Trailing comma in object", func(t *testing.T) {
		repaired := RepairJSON(`{"a": 1, "b": 2,}`)
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
			t.Fatalf("Repaired JSON still invalid: %v", err)
		}
	})

	t.Run("Trailing comma in array", func(t *testing.T) {
		repaired := RepairJSON(`{"items": [1, 2, 3,]}`)
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
			t.Fatalf("Repaired JSON still invalid: %v", err)
		}
	})

	t.Run("Truncated inside string", func(t *testing.T) {
		repaired := RepairJSON(`{"brands": [{"name": "Acme Co`)
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
			t.Fatalf("Repaired JSON still invalid: %v", err)
		}
	})

	t.Run("Truncated after value", func(t *testing.T) {
		repaired := RepairJSON(`{"brands": [{"name": "Acme", "ranking": 1},`)
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
			t.Fatalf("Repaired JSON still invalid: %v", err)
		}
	})

	t.Run("Valid JSON unchanged", func(t *testing.T) {
		input := `{"a":1}`
		if repaired := RepairJSON(input); repaired != input {
			t.Errorf("Expected valid JSON untouched, got %q", repaired)
		}
	})
}
