package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleListDeployments returns recent deployments, newest first.
//
// Query parameters:
//   - device: filter by device address
//   - limit: maximum rows (default 50, max 200)
func (s *Server) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeServiceUnavailable(w, "deployment history is not enabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records, err := s.history.List(r.Context(), r.URL.Query().Get("device"), limit)
	if err != nil {
		s.logger.Error("listing deployments failed", "error", err)
		writeInternalError(w, "failed to list deployments")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deployments": records, "count": len(records)})
}

// handleGetDeployment returns one deployment with the config it pushed.
func (s *Server) handleGetDeployment(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeServiceUnavailable(w, "deployment history is not enabled")
		return
	}

	rec, err := s.history.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.logger.Error("reading deployment failed", "error", err)
		writeInternalError(w, "failed to read deployment")
		return
	}
	if rec == nil {
		writeNotFound(w, "deployment not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
