package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureDefault(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		requestID string
		wantCode  int
		wantLevel string
	}{
		{
			name:      "implicit ok",
			handler:   func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("hi")) },
			wantCode:  http.StatusOK,
			wantLevel: "INFO",
		},
		{
			name:      "client error keeps request id",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusConflict) },
			requestID: "req-123",
			wantCode:  http.StatusConflict,
			wantLevel: "WARN",
		},
		{
			name:      "server error",
			handler:   func(w http.ResponseWriter, r *http.Request) { http.Error(w, "boom", http.StatusInternalServerError) },
			wantCode:  http.StatusInternalServerError,
			wantLevel: "ERROR",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureDefault(t)

			req := httptest.NewRequest(http.MethodGet, "/v1/scenarios", nil)
			if tt.requestID != "" {
				req.Header.Set(RequestIDHeader, tt.requestID)
			}
			rr := httptest.NewRecorder()
			Logger(tt.handler).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantCode, rr.Code)
			gotID := rr.Header().Get(RequestIDHeader)
			require.NotEmpty(t, gotID)
			if tt.requestID != "" {
				assert.Equal(t, tt.requestID, gotID)
			}

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, "/v1/scenarios", entry["path"])
			assert.Equal(t, float64(tt.wantCode), entry["status"])
			assert.Equal(t, gotID, entry["request_id"])
		})
	}
}
