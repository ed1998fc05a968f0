package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/jwebster45206/archetype-engine/internal/engine"
	"github.com/jwebster45206/archetype-engine/internal/logger"
	"github.com/jwebster45206/archetype-engine/internal/observability"
	"github.com/jwebster45206/archetype-engine/internal/services"
	"github.com/jwebster45206/archetype-engine/internal/storage"
)

// ResultsHandler returns the archetype and outcome texts of a completed session.
// Route: GET /v1/sessions/{id}/results
type ResultsHandler struct {
	logger    *slog.Logger
	store     storage.Storage
	registry  *storage.Registry
	processor *engine.TurnProcessor
}

func NewResultsHandler(logger *slog.Logger, store storage.Storage, registry *storage.Registry, processor *engine.TurnProcessor) *ResultsHandler {
	return &ResultsHandler{
		logger:    logger,
		store:     store,
		registry:  registry,
		processor: processor,
	}
}

func (h *ResultsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, h.logger, r, "GET")
		return
	}

	id, ok := sessionID(w, h.logger, r)
	if !ok {
		return
	}

	// Generation writes the texts back to the session.
	release, ok := lockSession(w, r, h.logger, h.store, id)
	if !ok {
		return
	}
	defer release()

	res, ok := concludeSession(w, r, h.logger, h.store, h.registry, h.processor, id)
	if !ok {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, res)
}

// concludeSession loads a session and resolves its results, saving any newly
// generated texts. It writes the error response itself on failure.
func concludeSession(w http.ResponseWriter, r *http.Request, base *slog.Logger, store storage.SessionStore, registry *storage.Registry, processor *engine.TurnProcessor, id uuid.UUID) (*engine.Results, bool) {
	sess, ok := loadSession(w, r, base, store, registry, id)
	if !ok {
		return nil, false
	}
	sc, st := sess.scenario, sess.state
	log := logger.WithSession(base, st.ID.String(), sc.ID)

	ctx := observability.WithSessionID(r.Context(), st.ID.String())
	res, err := processor.Conclude(ctx, sc, st)
	switch {
	case errors.Is(err, engine.ErrScenarioIncomplete):
		writeError(w, log, http.StatusConflict, "Scenario is not complete yet")
		return nil, false
	case errors.Is(err, services.ErrServiceUnavailable),
		errors.Is(err, services.ErrEmptyOutput),
		errors.Is(err, services.ErrMalformedOutput):
		log.Error("LLM could not produce results", "error", err)
		writeError(w, log, http.StatusServiceUnavailable, "Results are temporarily unavailable. Please try again.")
		return nil, false
	case err != nil:
		log.Error("Failed to conclude session", "error", err)
		writeError(w, log, http.StatusInternalServerError, "Failed to produce results")
		return nil, false
	}

	if res.Generated {
		if err := store.SaveSession(ctx, st); err != nil {
			// the texts are still returned; they will be regenerated next time
			log.Error("Failed to save concluded session", "error", err)
		}
	}
	log.Info("Session concluded", "archetype", res.Archetype.ID, "generated", res.Generated)
	return res, true
}
