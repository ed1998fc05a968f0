package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jwebster45206/archetype-engine/internal/engine"
	"github.com/jwebster45206/archetype-engine/internal/report"
	"github.com/jwebster45206/archetype-engine/internal/storage"
)

// ExportHandler renders a session as a PDF. In-progress sessions export the
// transcript so far; completed ones include the archetype and outcome texts.
// Route: GET /v1/sessions/{id}/export.pdf
type ExportHandler struct {
	logger    *slog.Logger
	store     storage.Storage
	registry  *storage.Registry
	processor *engine.TurnProcessor
}

func NewExportHandler(logger *slog.Logger, store storage.Storage, registry *storage.Registry, processor *engine.TurnProcessor) *ExportHandler {
	return &ExportHandler{
		logger:    logger,
		store:     store,
		registry:  registry,
		processor: processor,
	}
}

func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, h.logger, r, "GET")
		return
	}

	id, ok := sessionID(w, h.logger, r)
	if !ok {
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

	var res *engine.Results
	if sess.state.IsComplete(sess.scenario) {
		if res, ok = concludeSession(w, r, h.logger, h.store, h.registry, h.processor, id); !ok {
			return
		}
	}

	var buf bytes.Buffer
	if err := report.WritePDF(&buf, sess.scenario, sess.state, res); err != nil {
		h.logger.Error("Failed to render PDF", "error", err, "session_id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to render PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sess.scenario.ID+"-"+id.String()+".pdf"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("Failed to write PDF response", "error", err, "session_id", id.String())
	}
}
