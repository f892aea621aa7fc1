package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/brandscope/internal/interfaces"
	"github.com/ternarybob/brandscope/internal/models"
)

// ProviderHandler serves the provider catalog and key verification endpoints
type ProviderHandler struct {
	transport interfaces.CompletionTransport
	logger    arbor.ILogger
}

// NewProviderHandler creates a provider handler
func NewProviderHandler(transport interfaces.CompletionTransport, logger arbor.ILogger) *ProviderHandler {
	return &ProviderHandler{
		transport: transport,
		logger:    logger,
	}
}

// ListModels handles GET /api/models
func (h *ProviderHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"models": models.AvailableModels,
	})
}

// testKeyRequest is the POST /api/models/test-key payload
type testKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// TestKey handles POST /api/models/test-key. A failed verification is a
// valid=false response, not an error status.
func (h *ProviderHandler) TestKey(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req testKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.APIKey == "" {
		WriteError(w, http.StatusBadRequest, "API key is required")
		return
	}

	if err := h.transport.VerifyKey(r.Context(), req.APIKey); err != nil {
		h.logger.Warn().Err(err).Msg("API key verification failed")
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"valid": true,
	})
}
