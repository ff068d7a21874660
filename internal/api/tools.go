package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/moku-core/internal/tools"
)

// handleListTools returns the tool catalog.
func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	catalog := tools.Catalog()
	writeJSON(w, http.StatusOK, map[string]any{"tools": catalog, "count": len(catalog)})
}

// handleCallTool runs one tool. The request body is the JSON object of
// arguments (it may be empty). The response is the tool's result or error
// envelope, exactly as an MCP client would see it.
func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil || !claims.Role.CanInvokeTools() {
		writeForbidden(w, "this token may not invoke tools")
		return
	}

	name := chi.URLParam(r, "name")
	if _, ok := tools.Lookup(name); !ok {
		writeJSON(w, http.StatusNotFound, s.tools.Call(r.Context(), name, nil))
		return
	}

	var args map[string]any
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "request body must be a JSON object of tool arguments")
		return
	}

	ctx := tools.WithSource(r.Context(), tools.SourceAPI)
	s.logger.Debug("tool invoked over HTTP", "tool", name, "subject", claims.Subject)
	writeJSON(w, http.StatusOK, s.tools.Call(ctx, name, args))
}

// handleGetSession reports the ownership session without taking the tool
// dispatch lock.
func (s *Server) handleGetSession(w http.ResponseWriter, _ *http.Request) {
	if s.session == nil {
		writeServiceUnavailable(w, "session not available")
		return
	}
	resp := map[string]any{"state": s.session.State().String()}
	if info, err := s.session.Info(); err == nil {
		resp["device"] = info
		resp["connected_at"] = s.session.ConnectedAt()
	}
	writeJSON(w, http.StatusOK, resp)
}
