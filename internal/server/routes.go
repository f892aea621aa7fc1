package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Analyses
	mux.HandleFunc("/api/analyses", s.app.AnalysisHandler.ServeCollection) // GET (list), POST (create)
	mux.HandleFunc("/api/analyses/", s.app.AnalysisHandler.ServeByID)      // GET/DELETE /{id}

	// API routes - Provider catalog
	mux.HandleFunc("/api/models", s.app.ProviderHandler.ListModels)
	mux.HandleFunc("/api/models/test-key", s.app.ProviderHandler.TestKey)

	// API routes - Company metadata
	mux.HandleFunc("/api/company/extract", s.app.CompanyHandler.Extract)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.Version)
	mux.HandleFunc("/api/health", s.app.APIHandler.Health)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.notFoundHandler)

	return mux
}

// notFoundHandler returns a JSON 404 for unmatched API routes
func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"status":"error","error":"Not found"}`))
}
