package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Purpose names what a call is for. It labels logs, metrics and spans.
type Purpose string

const (
	PurposeGuardRail  Purpose = "guard_rail"
	PurposeClassify   Purpose = "classify"
	PurposeNarrate    Purpose = "narrate"
	PurposeConclusion Purpose = "conclusion"
	PurposeDebrief    Purpose = "debrief"
)

// Shape is the response shape the caller expects.
type Shape int

const (
	ShapePlainText Shape = iota
	ShapeJSON
)

// Request is one gateway call.
type Request struct {
	Purpose     Purpose
	Prompt      string
	MaxTokens   int
	Temperature float64
	Shape       Shape
}

// Response is a successful gateway call. Fields is set for ShapeJSON.
type Response struct {
	Text     string
	Fields   map[string]any
	Duration time.Duration
}

// Gateway is the single entry point for model calls. It is stateless apart
// from its configuration and safe for concurrent use.
type Gateway struct {
	provider Provider
	timeout  time.Duration
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewGateway(provider Provider, timeout time.Duration, logger *slog.Logger) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
		tracer:   otel.Tracer("archetype-engine/services"),
	}
}

// Generate runs one call under the gateway timeout and classifies failures
// as ErrServiceUnavailable, ErrEmptyOutput or ErrMalformedOutput. There are
// no retries.
func (g *Gateway) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, span := g.tracer.Start(ctx, "llm."+string(req.Purpose), trace.WithAttributes(
		attribute.String("llm.provider", g.provider.Name()),
		attribute.String("llm.purpose", string(req.Purpose)),
		attribute.Int("llm.max_tokens", req.MaxTokens),
		attribute.Float64("llm.temperature", req.Temperature),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	text, err := g.provider.Complete(ctx, CompletionRequest{
		Purpose:     req.Purpose,
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		JSON:        req.Shape == ShapeJSON,
	})
	elapsed := time.Since(start)
	llmRequestDuration.WithLabelValues(string(req.Purpose)).Observe(elapsed.Seconds())

	resp, err := g.interpret(req, text, err)
	if err != nil {
		outcome := outcomeLabel(err)
		llmRequestsTotal.WithLabelValues(string(req.Purpose), g.provider.Name(), outcome).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		g.logger.Warn("LLM call failed",
			"purpose", req.Purpose,
			"provider", g.provider.Name(),
			"duration_ms", elapsed.Milliseconds(),
			"error", err)
		return nil, err
	}

	llmRequestsTotal.WithLabelValues(string(req.Purpose), g.provider.Name(), "ok").Inc()
	resp.Duration = elapsed
	g.logger.Debug("LLM call completed",
		"purpose", req.Purpose,
		"provider", g.provider.Name(),
		"duration_ms", elapsed.Milliseconds(),
		"output_chars", len(resp.Text))
	return resp, nil
}

func (g *Gateway) interpret(req Request, text string, err error) (*Response, error) {
	if err != nil {
		return nil, &GatewayError{Purpose: req.Purpose, Kind: ErrServiceUnavailable, Err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &GatewayError{Purpose: req.Purpose, Kind: ErrEmptyOutput}
	}
	if req.Shape != ShapeJSON {
		return &Response{Text: text}, nil
	}

	fields, err := ParseJSONObject(text)
	if err != nil {
		return nil, &GatewayError{Purpose: req.Purpose, Kind: ErrMalformedOutput, Err: err}
	}
	return &Response{Text: text, Fields: fields}, nil
}

// ParseJSONObject parses model output as a JSON object. Markdown code
// fences and prose around a single object are tolerated.
func ParseJSONObject(text string) (map[string]any, error) {
	body := stripCodeFences(text)
	if !strings.HasPrefix(body, "{") {
		start, end := strings.Index(body, "{"), strings.LastIndex(body, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no JSON object in output")
		}
		body = body[start : end+1]
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return nil, fmt.Errorf("failed to parse JSON object: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("output is null, not an object")
	}
	return fields, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the language tag line, e.g. ```json
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// StringField returns a string field from a parsed JSON response.
func (r *Response) StringField(key string) (string, bool) {
	if r == nil || r.Fields == nil {
		return "", false
	}
	v, ok := r.Fields[key].(string)
	return v, ok
}
