package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGateway_Generate(t *testing.T) {
	tests := []struct {
		name      string
		shape     Shape
		reply     string
		replyErr  error
		wantKind  error
		wantText  string
		wantField string
	}{
		{
			name:     "plain text is trimmed",
			shape:    ShapePlainText,
			reply:    "  The room falls silent.  \n",
			wantText: "The room falls silent.",
		},
		{
			name:     "empty plain text",
			shape:    ShapePlainText,
			reply:    " \n\t ",
			wantKind: ErrEmptyOutput,
		},
		{
			name:      "json object",
			shape:     ShapeJSON,
			reply:     `{"classification": "Momentum"}`,
			wantField: "Momentum",
		},
		{
			name:      "fenced json",
			shape:     ShapeJSON,
			reply:     "```json\n{\"classification\": \"Method\"}\n```",
			wantField: "Method",
		},
		{
			name:      "json with prose around it",
			shape:     ShapeJSON,
			reply:     "Sure! Here you go: {\"classification\": \"Frame\"} Hope that helps.",
			wantField: "Frame",
		},
		{
			name:     "json that does not parse",
			shape:    ShapeJSON,
			reply:    `{"classification": `,
			wantKind: ErrMalformedOutput,
		},
		{
			name:     "json array is not an object",
			shape:    ShapeJSON,
			reply:    `["Momentum"]`,
			wantKind: ErrMalformedOutput,
		},
		{
			name:     "provider failure",
			shape:    ShapePlainText,
			replyErr: errors.New("connection refused"),
			wantKind: ErrServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockLLM("Momentum")
			mock.SetReply(PurposeClassify, tt.reply)
			if tt.replyErr != nil {
				mock.SetError(PurposeClassify, tt.replyErr)
			}
			gw := NewGateway(mock, time.Second, testLogger())

			resp, err := gw.Generate(context.Background(), Request{
				Purpose:   PurposeClassify,
				Prompt:    "classify this",
				MaxTokens: 100,
				Shape:     tt.shape,
			})

			if tt.wantKind != nil {
				if err == nil {
					t.Fatalf("expected %v, got nil error", tt.wantKind)
				}
				if !errors.Is(err, tt.wantKind) {
					t.Errorf("expected error kind %v, got %v", tt.wantKind, err)
				}
				var gwErr *GatewayError
				if !errors.As(err, &gwErr) {
					t.Fatalf("expected *GatewayError, got %T", err)
				}
				if gwErr.Purpose != PurposeClassify {
					t.Errorf("expected purpose %q, got %q", PurposeClassify, gwErr.Purpose)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantText != "" && resp.Text != tt.wantText {
				t.Errorf("expected text %q, got %q", tt.wantText, resp.Text)
			}
			if tt.wantField != "" {
				got, ok := resp.StringField("classification")
				if !ok || got != tt.wantField {
					t.Errorf("expected classification %q, got %q (ok=%v)", tt.wantField, got, ok)
				}
			}
		})
	}
}

func TestGateway_ProviderErrorIsUnwrappable(t *testing.T) {
	cause := errors.New("status 529: overloaded")
	mock := NewMockLLM("Momentum")
	mock.SetError(PurposeNarrate, cause)
	gw := NewGateway(mock, time.Second, testLogger())

	_, err := gw.Generate(context.Background(), Request{Purpose: PurposeNarrate, Prompt: "go"})
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected underlying cause to be preserved, got %v", err)
	}
}

func TestGateway_Timeout(t *testing.T) {
	mock := NewMockLLM("Momentum")
	mock.Delay = time.Second
	gw := NewGateway(mock, 20*time.Millisecond, testLogger())

	start := time.Now()
	_, err := gw.Generate(context.Background(), Request{Purpose: PurposeGuardRail, Prompt: "ok?"})
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable on timeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded cause, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("timeout not enforced, call took %v", elapsed)
	}
}

func TestGateway_NoRetries(t *testing.T) {
	mock := NewMockLLM("Momentum")
	mock.SetError(PurposeNarrate, errors.New("boom"))
	gw := NewGateway(mock, time.Second, testLogger())

	_, _ = gw.Generate(context.Background(), Request{Purpose: PurposeNarrate, Prompt: "go"})
	if got := mock.CallCount(PurposeNarrate); got != 1 {
		t.Errorf("expected exactly 1 provider call, got %d", got)
	}
}

func TestGateway_PassesParameters(t *testing.T) {
	mock := NewMockLLM("Momentum")
	gw := NewGateway(mock, time.Second, testLogger())

	_, err := gw.Generate(context.Background(), Request{
		Purpose:     PurposeClassify,
		Prompt:      "classify",
		MaxTokens:   100,
		Temperature: 0,
		Shape:       ShapeJSON,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calls := mock.GetCalls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].MaxTokens != 100 || !calls[0].JSON || calls[0].Prompt != "classify" {
		t.Errorf("unexpected completion request: %+v", calls[0])
	}
}

func TestParseJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"bare object", `{"a": "b"}`, false},
		{"fenced without language", "```\n{\"a\": \"b\"}\n```", false},
		{"null", "null", true},
		{"no braces", "classification: Momentum", true},
		{"reversed braces", "} nope {", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSONObject(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseJSONObject(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestNewProvider(t *testing.T) {
	ctx := context.Background()
	if _, err := NewProvider(ctx, ProviderConfig{Name: ProviderAnthropic}, testLogger()); err == nil {
		t.Error("expected error for missing api key")
	}
	if _, err := NewProvider(ctx, ProviderConfig{Name: "ollama", APIKey: "k"}, testLogger()); err == nil {
		t.Error("expected error for unsupported provider")
	}
	p, err := NewProvider(ctx, ProviderConfig{Name: ProviderOpenAI, APIKey: "k"}, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != ProviderOpenAI {
		t.Errorf("expected openai provider, got %s", p.Name())
	}
}
