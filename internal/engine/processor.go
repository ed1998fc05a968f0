// Package engine runs the turn pipeline: guard rail, classification and
// narration, and the end-of-scenario outcome.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jwebster45206/archetype-engine/internal/services"
	"github.com/jwebster45206/archetype-engine/pkg/prompts"
	"github.com/jwebster45206/archetype-engine/pkg/scenario"
	"github.com/jwebster45206/archetype-engine/pkg/state"
	"github.com/jwebster45206/archetype-engine/pkg/textfilter"
	"github.com/jwebster45206/archetype-engine/pkg/turn"
)

// Per-call generation settings.
const (
	guardRailMaxTokens     = 10
	classifyMaxTokens      = 100
	narrateMaxTokens       = 400
	narrateTemperature     = 0.8
	conclusionMaxTokens    = 800
	debriefMaxTokens       = 600
	reflectionTemperature  = 0.7
	classificationFieldKey = "classification"
)

// User-facing retry messages
const (
	MsgEmptyInput       = "Please enter a response before submitting."
	MsgInputTooLong     = "Your response is too long. Please shorten it and try again."
	MsgScenarioComplete = "This scenario is already complete."
	MsgServiceTrouble   = "Sorry, something went wrong while processing your response. Please try again."
)

// Generator is the slice of the LLM gateway the engine needs.
type Generator interface {
	Generate(ctx context.Context, req services.Request) (*services.Response, error)
}

// TurnProcessor advances a session by one turn. It holds no per-session state
// and is safe for concurrent use across sessions.
type TurnProcessor struct {
	llm    Generator
	filter *textfilter.ProfanityFilter
	logger *slog.Logger
	tracer trace.Tracer
}

func NewTurnProcessor(llm Generator, logger *slog.Logger) *TurnProcessor {
	return &TurnProcessor{
		llm:    llm,
		filter: textfilter.NewProfanityFilter(),
		logger: logger,
		tracer: otel.Tracer("archetype-engine/engine"),
	}
}

// phaseTracker records and logs phase transitions for one turn.
type phaseTracker struct {
	trace  []Phase
	logger *slog.Logger
}

func (t *phaseTracker) enter(p Phase) {
	t.trace = append(t.trace, p)
	t.logger.Debug("Turn phase", "phase", p)
}

func (t *phaseTracker) outcome(r turn.Result) Outcome {
	return Outcome{Result: r, Trace: t.trace}
}

// SubmitTurn runs one turn for st. st is mutated only when the turn succeeds;
// on any NeedsRetry result it is left exactly as it was.
func (p *TurnProcessor) SubmitTurn(ctx context.Context, sc *scenario.Scenario, st *state.SessionState, userInput string) Outcome {
	ctx, span := p.tracer.Start(ctx, "turn.submit", trace.WithAttributes(
		attribute.String("scenario_id", sc.ID),
		attribute.String("session_id", st.ID.String()),
		attribute.Int("turn", st.CurrentTurn),
	))
	defer span.End()

	log := p.logger.With("session_id", st.ID.String(), "scenario_id", sc.ID, "turn", st.CurrentTurn)
	tr := &phaseTracker{logger: log}
	tr.enter(PhaseAwaitingInput)

	out := p.submit(ctx, log, tr, sc, st, userInput)

	final := out.Final()
	turnsTotal.WithLabelValues(sc.ID, string(final)).Inc()
	span.SetAttributes(attribute.String("phase", string(final)))
	if final == PhaseFailed {
		span.SetStatus(codes.Error, out.Result.ErrorMessage)
	}
	return out
}

func (p *TurnProcessor) submit(ctx context.Context, log *slog.Logger, tr *phaseTracker, sc *scenario.Scenario, st *state.SessionState, userInput string) Outcome {
	if st.IsComplete(sc) {
		tr.enter(PhaseScenarioComplete)
		return tr.outcome(turn.NeedsRetry(MsgScenarioComplete))
	}
	switch err := (turn.Request{Message: userInput}).Validate(); {
	case errors.Is(err, turn.ErrEmptyInput):
		return tr.outcome(turn.NeedsRetry(MsgEmptyInput))
	case err != nil:
		return tr.outcome(turn.NeedsRetry(MsgInputTooLong))
	}
	input := strings.TrimSpace(userInput)

	tr.enter(PhaseGuardRailPending)
	approved, err := p.checkGuardRail(ctx, sc, input)
	if err != nil {
		log.Error("Guard rail call failed", "error", err)
		tr.enter(PhaseFailed)
		return tr.outcome(turn.NeedsRetry(MsgServiceTrouble))
	}
	if !approved {
		log.Info("User input blocked by guard rail")
		tr.enter(PhaseBlocked)
		return tr.outcome(turn.NeedsRetry(sc.GuardRail.Retry()))
	}
	tr.enter(PhaseApproved)

	tr.enter(PhaseClassifyAndNarratePending)
	label, narrative, err := p.classifyAndNarrate(ctx, log, sc, st, input)
	if err != nil {
		log.Error("Turn failed", "error", err)
		tr.enter(PhaseFailed)
		return tr.outcome(turn.NeedsRetry(MsgServiceTrouble))
	}

	if sc.CleanLanguage {
		if n := p.filter.Count(narrative); n > 0 {
			log.Debug("Filtering narration", "words", n)
			narrative = p.filter.FilterText(narrative)
		}
	}
	summary := turn.SummarizeAction(input)
	if summary == "" {
		summary = input
	}

	st.ApplyTurn(turn.Record{
		Input:          input,
		Classification: label,
		ActionSummary:  summary,
		Narrative:      narrative,
	})
	classificationsTotal.WithLabelValues(sc.ID, label).Inc()
	tr.enter(PhaseTurnComplete)

	res := turn.Success(label, summary, narrative)
	res.Turn = st.CurrentTurn
	if st.IsComplete(sc) {
		res.Complete = true
		tr.enter(PhaseScenarioComplete)
	} else if b := sc.Beat(st.CurrentTurn); b != nil {
		res.NextQuestion = b.Question
	}
	log.Info("Turn completed", "classification", label, "complete", res.Complete)
	return tr.outcome(res)
}

func (p *TurnProcessor) checkGuardRail(ctx context.Context, sc *scenario.Scenario, input string) (bool, error) {
	resp, err := p.llm.Generate(ctx, services.Request{
		Purpose:     services.PurposeGuardRail,
		Prompt:      prompts.GuardRailPrompt(sc, input),
		MaxTokens:   guardRailMaxTokens,
		Temperature: 0,
		Shape:       services.ShapePlainText,
	})
	if err != nil {
		return false, err
	}
	return sc.GuardRail.Approves(resp.Text), nil
}

// classifyAndNarrate runs the two content calls. In parallel mode they run
// concurrently and both must finish; in two-stage mode the label feeds the
// narration prompt.
func (p *TurnProcessor) classifyAndNarrate(ctx context.Context, log *slog.Logger, sc *scenario.Scenario, st *state.SessionState, input string) (string, string, error) {
	turnIndex := st.CurrentTurn
	nextBeat := sc.Beat(turnIndex + 1)

	if sc.IsTwoStage() {
		label, err := p.classify(ctx, log, sc, turnIndex, input)
		if err != nil {
			return "", "", err
		}
		narrative, err := p.narrate(ctx, sc, st.StorySoFar, input, nextBeat, label)
		if err != nil {
			return "", "", err
		}
		return label, narrative, nil
	}

	var label, narrative string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		label, err = p.classify(gctx, log, sc, turnIndex, input)
		return err
	})
	g.Go(func() error {
		var err error
		narrative, err = p.narrate(gctx, sc, st.StorySoFar, input, nextBeat, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return label, narrative, nil
}

// classify returns the canonical label for input. Output that is malformed,
// empty or outside the taxonomy degrades to Unknown; only an unavailable
// service is an error.
func (p *TurnProcessor) classify(ctx context.Context, log *slog.Logger, sc *scenario.Scenario, turnIndex int, input string) (string, error) {
	resp, err := p.llm.Generate(ctx, services.Request{
		Purpose:     services.PurposeClassify,
		Prompt:      prompts.ClassificationPrompt(sc, turnIndex, input),
		MaxTokens:   classifyMaxTokens,
		Temperature: 0,
		Shape:       services.ShapeJSON,
	})
	switch {
	case errors.Is(err, services.ErrMalformedOutput), errors.Is(err, services.ErrEmptyOutput):
		log.Warn("Classification output unusable, recording Unknown", "error", err)
		return scenario.UnknownLabel, nil
	case err != nil:
		return "", fmt.Errorf("classification failed: %w", err)
	}

	raw, _ := resp.StringField(classificationFieldKey)
	label, ok := sc.Taxonomy.Match(raw)
	if !ok {
		log.Warn("Classification outside taxonomy, recording Unknown", "raw", raw)
		return scenario.UnknownLabel, nil
	}
	return label, nil
}

func (p *TurnProcessor) narrate(ctx context.Context, sc *scenario.Scenario, story, input string, nextBeat *scenario.Beat, label string) (string, error) {
	prompt, err := prompts.NarrationPrompt(sc, input, story, nextBeat, label)
	if err != nil {
		return "", fmt.Errorf("failed to build narration prompt: %w", err)
	}
	resp, err := p.llm.Generate(ctx, services.Request{
		Purpose:     services.PurposeNarrate,
		Prompt:      prompt,
		MaxTokens:   narrateMaxTokens,
		Temperature: narrateTemperature,
		Shape:       services.ShapePlainText,
	})
	if err != nil {
		return "", fmt.Errorf("narration failed: %w", err)
	}
	return resp.Text, nil
}
