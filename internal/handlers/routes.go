package handlers

import (
	"log/slog"
	"net/http"

	"github.com/jwebster45206/archetype-engine/internal/engine"
	"github.com/jwebster45206/archetype-engine/internal/storage"
)

// Register mounts every API route on mux.
func Register(mux *http.ServeMux, logger *slog.Logger, store storage.Storage, registry *storage.Registry, processor *engine.TurnProcessor) {
	mux.Handle("/health", NewHealthHandler(store, logger))

	scenarios := NewScenarioHandler(logger, registry)
	mux.Handle("/v1/scenarios", scenarios)
	mux.Handle("/v1/scenarios/{id}", scenarios)

	sessions := NewSessionHandler(logger, store, registry)
	mux.Handle("/v1/sessions", sessions)
	mux.Handle("/v1/sessions/{id}", sessions)
	mux.Handle("/v1/sessions/{id}/turns", NewTurnHandler(logger, store, registry, processor))
	mux.Handle("/v1/sessions/{id}/results", NewResultsHandler(logger, store, registry, processor))
	mux.Handle("/v1/sessions/{id}/export.pdf", NewExportHandler(logger, store, registry, processor))
}
