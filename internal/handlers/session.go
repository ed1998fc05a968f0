package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/archetype-engine/internal/storage"
	"github.com/jwebster45206/archetype-engine/pkg/scenario"
	"github.com/jwebster45206/archetype-engine/pkg/state"
)

// CreateSessionRequest starts a new session.
type CreateSessionRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// SessionResponse is a session together with what the client shows next.
type SessionResponse struct {
	Session      *state.SessionState `json:"session"`
	Title        string              `json:"title"`
	TurnCount    int                 `json:"turn_count"`
	Complete     bool                `json:"complete"`
	Beat         *scenario.Beat      `json:"beat,omitempty"` // the beat being answered, absent once complete
	InitialScene string              `json:"initial_scene,omitempty"`
}

func newSessionResponse(sc *scenario.Scenario, st *state.SessionState) SessionResponse {
	resp := SessionResponse{
		Session:   st,
		Title:     sc.Title,
		TurnCount: sc.TurnCount(),
		Complete:  st.IsComplete(sc),
		Beat:      sc.Beat(st.CurrentTurn),
	}
	if st.CurrentTurn == 1 {
		resp.InitialScene = sc.InitialScene
	}
	return resp
}

// SessionHandler creates, reads and deletes sessions.
// Routes:
// POST   /v1/sessions      - Start a session for a scenario
// GET    /v1/sessions/{id} - Session state and current beat
// DELETE /v1/sessions/{id} - Discard a session
type SessionHandler struct {
	logger   *slog.Logger
	store    storage.SessionStore
	registry *storage.Registry
}

func NewSessionHandler(logger *slog.Logger, store storage.SessionStore, registry *storage.Registry) *SessionHandler {
	return &SessionHandler{
		logger:   logger,
		store:    store,
		registry: registry,
	}
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleCreate(w, r)
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodDelete:
		h.handleDelete(w, r)
	default:
		methodNotAllowed(w, h.logger, r, "GET, POST, DELETE")
	}
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in create session request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.ScenarioID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "scenario_id is required")
		return
	}

	sc, ok := h.registry.Get(req.ScenarioID)
	if !ok {
		h.logger.Warn("Unknown scenario requested", "scenario_id", req.ScenarioID)
		writeError(w, h.logger, http.StatusNotFound, "Scenario not found")
		return
	}

	st := state.NewSessionState(sc)
	if err := h.store.SaveSession(r.Context(), st); err != nil {
		h.logger.Error("Failed to save new session", "error", err, "scenario_id", sc.ID)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create session")
		return
	}

	h.logger.Info("Session created", "session_id", st.ID.String(), "scenario_id", sc.ID)
	writeJSON(w, h.logger, http.StatusCreated, newSessionResponse(sc, st))
}

func (h *SessionHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, h.logger, r)
	if !ok {
		return
	}
	sess, found := loadSession(w, r, h.logger, h.store, h.registry, id)
	if !found {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newSessionResponse(sess.scenario, sess.state))
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, h.logger, r)
	if !ok {
		return
	}
	if err := h.store.DeleteSession(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete session", "error", err, "session_id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	h.logger.Info("Session deleted", "session_id", id.String())
	w.WriteHeader(http.StatusNoContent)
}
