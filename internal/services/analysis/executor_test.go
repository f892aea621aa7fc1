package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/brandscope/internal/models"
	"github.com/ternarybob/brandscope/internal/services/llm"
)

func newTestExecutor(transport *mockTransport) *Executor {
	logger := arbor.NewLogger()
	return NewExecutor(transport, NewExtractor(logger), logger)
}

func TestExecutor_StructuredSuccess(t *testing.T) {
	transport := newMockTransport()
	transport.responses["openai/gpt-4o"] = validStructuredResponse("Salesforce", "HubSpot")
	executor := newTestExecutor(transport)

	obs, err := executor.Query(context.Background(), "openai/gpt-4o", "best crm")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if obs.Kind != models.ObservationStructured {
		t.Fatalf("Expected structured observation, got %s", obs.Kind)
	}
	if len(obs.Structured.Brands) != 2 {
		t.Errorf("Expected 2 brands, got %d", len(obs.Structured.Brands))
	}
	if transport.callCount("openai/gpt-4o") != 1 {
		t.Errorf("Expected a single provider call, got %d", transport.callCount("openai/gpt-4o"))
	}
}

func TestExecutor_StructuredWithFencesAndProse(t *testing.T) {
	transport := newMockTransport()
	transport.responses["p1"] = "Here is my analysis:\n```json\n" + validStructuredResponse("Stripe") + "\n```\nLet me know if you need more."
	executor := newTestExecutor(transport)

	obs, err := executor.Query(context.Background(), "p1", "payments")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if obs.Kind != models.ObservationStructured {
		t.Fatalf("Expected leniency to recover structured observation, got %s", obs.Kind)
	}
	if obs.Structured.Brands[0].Name != "Stripe" {
		t.Errorf("Unexpected brand: %q", obs.Structured.Brands[0].Name)
	}
}

func TestExecutor_FreeformRetryOnParseFailure(t *testing.T) {
	transport := newMockTransport()
	transport.responses["p1"] = "1. Notion is my pick for flexible teams.\n2. Asana works well for task tracking."
	executor := newTestExecutor(transport)

	obs, err := executor.Query(context.Background(), "p1", "best tool")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if obs.Kind != models.ObservationRaw {
		t.Fatalf("Expected raw observation after parse failure, got %s", obs.Kind)
	}
	if len(obs.Raw.Candidates) < 2 {
		t.Errorf("Expected extracted candidates, got %d", len(obs.Raw.Candidates))
	}
	// Structured attempt first, then the freeform retry
	if transport.callCount("p1") != 2 {
		t.Errorf("Expected 2 provider calls, got %d", transport.callCount("p1"))
	}
	if !transport.calls[0].structured || transport.calls[1].structured {
		t.Error("Expected structured mode first, freeform second")
	}
}

func TestExecutor_TransportErrorPropagates(t *testing.T) {
	transport := newMockTransport()
	transport.errors["down"] = &llm.TransportError{Provider: "down", Message: "connection refused"}
	executor := newTestExecutor(transport)

	_, err := executor.Query(context.Background(), "down", "prompt")
	if err == nil {
		t.Fatal("Expected transport error")
	}
	if !llm.IsProviderUnavailable(err) {
		t.Errorf("Expected a provider-unavailable error, got %v", err)
	}

	var parseErr *StructuredParseError
	if errors.As(err, &parseErr) {
		t.Error("Transport failure must not masquerade as a parse failure")
	}
}

func TestExecutor_AuthErrorPropagates(t *testing.T) {
	transport := newMockTransport()
	transport.errors["p1"] = &llm.AuthError{Provider: "p1", StatusCode: 401, Message: "bad key"}
	executor := newTestExecutor(transport)

	_, err := executor.Query(context.Background(), "p1", "prompt")
	if err == nil {
		t.Fatal("Expected auth error")
	}

	var authErr *llm.AuthError
	if !errors.As(err, &authErr) {
		t.Errorf("Expected typed auth error, got %v", err)
	}
}

func TestExecutor_ParseStructuredResponse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name:    "Clean JSON",
			input:   validStructuredResponse("Acme"),
			wantErr: false,
		},
		{
			name:    "Fenced JSON",
			input:   "```json\n" + validStructuredResponse("Acme") + "\n```",
			wantErr: false,
		},
		{
			name:    "Prose around JSON",
			input:   "Sure! " + validStructuredResponse("Acme") + " Anything else?",
			wantErr: false,
		},
		{
			name:    "Empty brand list",
			input:   `{"brands": []}`,
			wantErr: true,
		},
		{
			name:    "Plain prose",
			input:   "I think Acme is the best choice overall.",
			wantErr: true,
		},
		{
			name:    "Truncated JSON",
			input:   `{"brands": [{"name": "Acme"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseStructuredResponse(tt.input)
			if tt.wantErr && err == nil {
				t.Error("Expected parse error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected parse error: %v", err)
			}
		})
	}
}
