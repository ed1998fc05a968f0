package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/jwebster45206/archetype-engine/internal/storage"
	"github.com/jwebster45206/archetype-engine/pkg/scenario"
	"github.com/jwebster45206/archetype-engine/pkg/state"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

func methodNotAllowed(w http.ResponseWriter, logger *slog.Logger, r *http.Request, allowed string) {
	logger.Warn("Method not allowed", "method", r.Method, "path", r.URL.Path)
	w.Header().Set("Allow", allowed)
	writeError(w, logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: "+allowed)
}

// sessionID parses the {id} path value.
func sessionID(w http.ResponseWriter, logger *slog.Logger, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		logger.Warn("Invalid session ID", "id", r.PathValue("id"), "error", err)
		writeError(w, logger, http.StatusBadRequest, "Invalid session ID format")
		return uuid.Nil, false
	}
	return id, true
}

type loadedSession struct {
	scenario *scenario.Scenario
	state    *state.SessionState
}

// loadSession fetches a session and its scenario, writing the error response
// itself when either is missing.
func loadSession(w http.ResponseWriter, r *http.Request, logger *slog.Logger, store storage.SessionStore, registry *storage.Registry, id uuid.UUID) (loadedSession, bool) {
	st, err := store.LoadSession(r.Context(), id)
	if err != nil {
		logger.Error("Failed to load session", "error", err, "session_id", id.String())
		writeError(w, logger, http.StatusInternalServerError, "Failed to load session")
		return loadedSession{}, false
	}
	if st == nil {
		writeError(w, logger, http.StatusNotFound, "Session not found")
		return loadedSession{}, false
	}
	sc, ok := registry.Get(st.ScenarioID)
	if !ok {
		logger.Error("Session references unknown scenario", "session_id", id.String(), "scenario_id", st.ScenarioID)
		writeError(w, logger, http.StatusInternalServerError, "Session scenario is no longer available")
		return loadedSession{}, false
	}
	return loadedSession{scenario: sc, state: st}, true
}

// lockSession takes the per-session lock. The caller must call release when ok.
func lockSession(w http.ResponseWriter, r *http.Request, logger *slog.Logger, locker storage.SessionLocker, id uuid.UUID) (func(), bool) {
	release, ok, err := locker.TryLock(r.Context(), id)
	if err != nil {
		logger.Error("Failed to acquire session lock", "error", err, "session_id", id.String())
		writeError(w, logger, http.StatusInternalServerError, "Failed to acquire session lock")
		return nil, false
	}
	if !ok {
		logger.Info("Session busy", "session_id", id.String())
		writeError(w, logger, http.StatusConflict, "A turn is already in progress for this session")
		return nil, false
	}
	return release, true
}
