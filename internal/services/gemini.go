package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiProvider implements Provider with Google's Generative AI SDK.
type GeminiProvider struct {
	client    *genai.Client
	modelName string
	logger    *slog.Logger
}

func NewGeminiProvider(ctx context.Context, cfg ProviderConfig, logger *slog.Logger) (*GeminiProvider, error) {
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{client: client, modelName: model, logger: logger}, nil
}

func (g *GeminiProvider) Name() string { return ProviderGemini }

// Complete builds a model handle per call so generation settings never leak
// between concurrent requests.
func (g *GeminiProvider) Complete(ctx context.Context, cr CompletionRequest) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(float32(cr.Temperature))
	if cr.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(cr.MaxTokens))
	}
	if cr.JSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(cr.Prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate content failed: %w", err)
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		break
	}

	g.logger.Debug("Gemini completion", "purpose", cr.Purpose, "model", g.modelName, "candidates", len(resp.Candidates))
	return sb.String(), nil
}

func (g *GeminiProvider) Close() error {
	return g.client.Close()
}
