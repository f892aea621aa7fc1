package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/brandscope/internal/services/company"
)

// CompanyHandler serves the company metadata extraction endpoint
type CompanyHandler struct {
	service *company.Service
	logger  arbor.ILogger
}

// NewCompanyHandler creates a company handler
func NewCompanyHandler(service *company.Service, logger arbor.ILogger) *CompanyHandler {
	return &CompanyHandler{
		service: service,
		logger:  logger,
	}
}

// extractRequest is the POST /api/company/extract payload
type extractRequest struct {
	URL string `json:"url"`
}

// Extract handles POST /api/company/extract
func (h *CompanyHandler) Extract(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.URL == "" {
		WriteError(w, http.StatusBadRequest, "URL is required")
		return
	}

	info, err := h.service.Extract(r.Context(), req.URL)
	if err != nil {
		h.logger.Warn().Str("url", req.URL).Err(err).Msg("Company extraction failed")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, info)
}
