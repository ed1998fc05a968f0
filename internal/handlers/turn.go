package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/archetype-engine/internal/engine"
	"github.com/jwebster45206/archetype-engine/internal/logger"
	"github.com/jwebster45206/archetype-engine/internal/observability"
	"github.com/jwebster45206/archetype-engine/internal/storage"
	"github.com/jwebster45206/archetype-engine/pkg/turn"
)

// TurnHandler submits a user's answer to the current beat.
// Route: POST /v1/sessions/{id}/turns
//
// Both success and needs_retry results are 200; the client inspects status.
type TurnHandler struct {
	logger    *slog.Logger
	store     storage.Storage
	registry  *storage.Registry
	processor *engine.TurnProcessor
}

func NewTurnHandler(logger *slog.Logger, store storage.Storage, registry *storage.Registry, processor *engine.TurnProcessor) *TurnHandler {
	return &TurnHandler{
		logger:    logger,
		store:     store,
		registry:  registry,
		processor: processor,
	}
}

func (h *TurnHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, h.logger, r, "POST")
		return
	}

	id, ok := sessionID(w, h.logger, r)
	if !ok {
		return
	}

	var req turn.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in turn request", "error", err, "session_id", id.String())
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	release, ok := lockSession(w, r, h.logger, h.store, id)
	if !ok {
		return
	}
	defer release()

	sess, ok := loadSession(w, r, h.logger, h.store, h.registry, id)
	if !ok {
		return
	}
	sc, st := sess.scenario, sess.state
	log := logger.WithSession(h.logger, st.ID.String(), sc.ID)

	if st.IsComplete(sc) {
		writeError(w, log, http.StatusConflict, engine.MsgScenarioComplete)
		return
	}

	ctx := observability.WithSessionID(r.Context(), st.ID.String())
	out := h.processor.SubmitTurn(ctx, sc, st, req.Message)

	if out.Result.OK() {
		if err := h.store.SaveSession(ctx, st); err != nil {
			log.Error("Failed to save session after turn", "error", err, "turn", out.Result.Turn)
			writeError(w, log, http.StatusInternalServerError, "Failed to save session")
			return
		}
	}

	log.Info("Turn processed", "status", out.Result.Status, "phase", out.Final(), "turn", st.CurrentTurn)
	writeJSON(w, log, http.StatusOK, out.Result)
}
