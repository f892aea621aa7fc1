package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/brandscope/internal/common"
	"github.com/ternarybob/brandscope/internal/interfaces"
	"github.com/ternarybob/brandscope/internal/services/analysis"
)

// CreateAnalysisRequest is the POST /api/analyses payload
type CreateAnalysisRequest struct {
	Title     string   `json:"title" validate:"required"`
	Providers []string `json:"providers" validate:"required,min=1"`
	Prompts   []string `json:"prompts" validate:"required,min=1"`
}

// AnalysisHandler serves the analysis job endpoints
type AnalysisHandler struct {
	tracker      *analysis.Tracker
	orchestrator *analysis.Orchestrator
	validator    *validator.Validate
	logger       arbor.ILogger
}

// NewAnalysisHandler creates an analysis handler
func NewAnalysisHandler(tracker *analysis.Tracker, orchestrator *analysis.Orchestrator, logger arbor.ILogger) *AnalysisHandler {
	return &AnalysisHandler{
		tracker:      tracker,
		orchestrator: orchestrator,
		validator:    validator.New(),
		logger:       logger,
	}
}

// Create handles POST /api/analyses. The analysis job is created pending
// and the run is launched on a background goroutine; callers poll the job
// record for progress.
func (h *AnalysisHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req CreateAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.tracker.Create(r.Context(), req.Title, req.Providers, req.Prompts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create analysis")
		WriteError(w, http.StatusInternalServerError, "Failed to create analysis")
		return
	}

	analysisID := created.ID
	common.SafeGo(h.logger, "analysis-run-"+analysisID, func() {
		if err := h.orchestrator.Run(context.Background(), analysisID); err != nil {
			h.logger.Error().
				Str("analysis_id", analysisID).
				Err(err).
				Msg("Analysis run failed")
		}
	})

	WriteJSON(w, http.StatusAccepted, created)
}

// List handles GET /api/analyses with optional status filter
func (h *AnalysisHandler) List(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit, offset := GetListParams(r)
	opts := &interfaces.AnalysisListOptions{
		Status: r.URL.Query().Get("status"),
		Limit:  limit,
		Offset: offset,
	}

	analyses, err := h.tracker.List(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list analyses")
		WriteError(w, http.StatusInternalServerError, "Failed to list analyses")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"analyses": analyses,
		"count":    len(analyses),
		"limit":    limit,
		"offset":   offset,
	})
}

// Get handles GET /api/analyses/{id}
func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	id := pathSuffix(r.URL.Path, "/api/analyses/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Analysis ID is required")
		return
	}

	job, err := h.tracker.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrAnalysisNotFound) {
			WriteError(w, http.StatusNotFound, "Analysis not found")
			return
		}
		h.logger.Error().Str("analysis_id", id).Err(err).Msg("Failed to get analysis")
		WriteError(w, http.StatusInternalServerError, "Failed to get analysis")
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// Delete handles DELETE /api/analyses/{id}. Jobs still running are
// refused; only terminal jobs can be removed.
func (h *AnalysisHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}

	id := pathSuffix(r.URL.Path, "/api/analyses/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "Analysis ID is required")
		return
	}

	job, err := h.tracker.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrAnalysisNotFound) {
			WriteError(w, http.StatusNotFound, "Analysis not found")
			return
		}
		h.logger.Error().Str("analysis_id", id).Err(err).Msg("Failed to get analysis")
		WriteError(w, http.StatusInternalServerError, "Failed to get analysis")
		return
	}

	if !job.Status.IsTerminal() {
		WriteError(w, http.StatusConflict, "Analysis is still running")
		return
	}

	if err := h.tracker.Delete(r.Context(), id); err != nil {
		h.logger.Error().Str("analysis_id", id).Err(err).Msg("Failed to delete analysis")
		WriteError(w, http.StatusInternalServerError, "Failed to delete analysis")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "deleted",
		"id":     id,
	})
}

// ServeByID routes /api/analyses/{id} by method
func (h *AnalysisHandler) ServeByID(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.Get(w, r)
	case http.MethodDelete:
		h.Delete(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ServeCollection routes /api/analyses by method
func (h *AnalysisHandler) ServeCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.List(w, r)
	case http.MethodPost:
		h.Create(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// pathSuffix returns the path segment after prefix, rejecting nested paths
func pathSuffix(path, prefix string) string {
	suffix := strings.TrimPrefix(path, prefix)
	if suffix == path || suffix == "" || strings.Contains(suffix, "/") {
		return ""
	}
	return suffix
}
