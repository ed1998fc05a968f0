package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/jwebster45206/archetype-engine/internal/config"
)

func TestSetup_ProductionIsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := setup(&buf, &config.Config{Environment: "production", LogLevel: slog.LevelInfo})

	WithSession(log, "abc", "remix").Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["session_id"] != "abc" || entry["scenario_id"] != "remix" {
		t.Errorf("Expected session attributes, got %v", entry)
	}
}

func TestSetup_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := setup(&buf, &config.Config{Environment: "development", LogLevel: slog.LevelWarn})

	log.Info("quiet")
	WithRequestID(log, "req-1").Warn("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("Info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "request_id=req-1") {
		t.Errorf("Expected text handler output with request id, got %q", out)
	}
}
