package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultOpenAIModel = openai.GPT4oMini

// OpenAIProvider implements Provider with the Chat Completions API.
type OpenAIProvider struct {
	client    *openai.Client
	modelName string
	logger    *slog.Logger
}

func NewOpenAIProvider(cfg ProviderConfig, logger *slog.Logger) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(clientCfg),
		modelName: model,
		logger:    logger,
	}
}

func (o *OpenAIProvider) Name() string { return ProviderOpenAI }

func (o *OpenAIProvider) Complete(ctx context.Context, cr CompletionRequest) (string, error) {
	temperature := float32(cr.Temperature)
	if temperature == 0 {
		// omitempty would drop a literal zero and fall back to the API default.
		temperature = math.SmallestNonzeroFloat32
	}

	req := openai.ChatCompletionRequest{
		Model: o.modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: cr.Prompt},
		},
		MaxTokens:   cr.MaxTokens,
		Temperature: temperature,
	}
	if cr.JSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}

	o.logger.Debug("OpenAI completion",
		"purpose", cr.Purpose,
		"model", resp.Model,
		"finish_reason", resp.Choices[0].FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return resp.Choices[0].Message.Content, nil
}
