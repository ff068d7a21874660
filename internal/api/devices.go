package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleListDevices returns every device in the cache, sorted by IP.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.registry.List()
	writeJSON(w, http.StatusOK, map[string]any{"devices": devices, "count": len(devices)})
}

// handleGetDevice looks a device up by IP, name or serial number.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if rec, ok := s.registry.FindByIP(id); ok {
		writeJSON(w, http.StatusOK, rec)
		return
	}
	if rec, ok := s.registry.FindByIdentifier(id); ok {
		writeJSON(w, http.StatusOK, rec)
		return
	}
	writeNotFound(w, "device not found")
}
