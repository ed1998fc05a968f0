package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Provider names
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

// DefaultTimeout bounds a single gateway call.
const DefaultTimeout = 30 * time.Second

// Provider performs one single-prompt completion against a model backend.
// Implementations must be safe for concurrent use.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest is what a provider needs to make one call.
type CompletionRequest struct {
	Purpose     Purpose
	Prompt      string
	MaxTokens   int
	Temperature float64
	JSON        bool // ask the backend for a JSON object when it supports it
}

// ProviderConfig carries the credential and endpoint for a provider. The
// gateway never reads them from the environment itself.
type ProviderConfig struct {
	Name    string
	APIKey  string
	Model   string
	BaseURL string        // optional override, used by tests and proxies
	Timeout time.Duration // per-call timeout applied by the Gateway
}

// NewProvider builds the provider named in cfg.
func NewProvider(ctx context.Context, cfg ProviderConfig, logger *slog.Logger) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required for provider %q", cfg.Name)
	}
	switch cfg.Name {
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg, logger), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg, logger), nil
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Name)
	}
}
