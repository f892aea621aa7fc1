package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/brandscope/internal/common"
)

// APIHandler serves the service-level endpoints (health, version)
type APIHandler struct {
	startTime time.Time
	logger    arbor.ILogger
}

// NewAPIHandler creates an API handler
func NewAPIHandler(logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		startTime: time.Now(),
		logger:    logger,
	}
}

// Health handles GET /api/health
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"uptime": time.Since(h.startTime).String(),
	})
}

// Version handles GET /api/version
func (h *APIHandler) Version(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version": common.Version,
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}
