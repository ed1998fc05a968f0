package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/archetype-engine/internal/storage"
)

// ScenarioHandler serves the read-only scenario registry.
// Routes:
// GET /v1/scenarios      - List scenario summaries
// GET /v1/scenarios/{id} - Full scenario definition
type ScenarioHandler struct {
	log      *slog.Logger
	registry *storage.Registry
}

func NewScenarioHandler(log *slog.Logger, registry *storage.Registry) *ScenarioHandler {
	return &ScenarioHandler{
		log:      log,
		registry: registry,
	}
}

func (h *ScenarioHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, h.log, r, "GET")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, h.log, http.StatusOK, h.registry.List())
		return
	}

	sc, ok := h.registry.Get(id)
	if !ok {
		writeError(w, h.log, http.StatusNotFound, "Scenario not found")
		return
	}
	writeJSON(w, h.log, http.StatusOK, sc)
}
