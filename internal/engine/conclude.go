package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/jwebster45206/archetype-engine/internal/services"
	"github.com/jwebster45206/archetype-engine/pkg/insights"
	"github.com/jwebster45206/archetype-engine/pkg/prompts"
	"github.com/jwebster45206/archetype-engine/pkg/scenario"
	"github.com/jwebster45206/archetype-engine/pkg/state"
)

// ErrScenarioIncomplete is returned when results are requested before every
// beat has been answered.
var ErrScenarioIncomplete = errors.New("scenario is not complete")

// Results is the end-of-scenario read-out.
type Results struct {
	ScenarioID string                  `json:"scenario_id"`
	Title      string                  `json:"title"`
	Archetype  *scenario.Archetype     `json:"archetype"`
	Score      int                     `json:"score"`
	Path       []string                `json:"user_path"`
	Insights   insights.Insights       `json:"insights"`
	Conclusion []string                `json:"conclusion"`
	Debrief    string                  `json:"debrief"`
	Transcript []state.TranscriptEntry `json:"transcript"`

	// Generated is set when the texts were produced by this call and st now
	// holds them; the caller should save the session.
	Generated bool `json:"-"`
}

// Conclude resolves the archetype for a completed session and produces the
// conclusion and debrief texts. The texts are cached on st, so they are only
// generated once per session.
func (p *TurnProcessor) Conclude(ctx context.Context, sc *scenario.Scenario, st *state.SessionState) (*Results, error) {
	ctx, span := p.tracer.Start(ctx, "turn.conclude", trace.WithAttributes(
		attribute.String("scenario_id", sc.ID),
		attribute.String("session_id", st.ID.String()),
	))
	defer span.End()

	if !st.IsComplete(sc) {
		return nil, ErrScenarioIncomplete
	}

	arch, err := sc.Resolve(st.UserPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve archetype: %w", err)
	}
	score, err := sc.Score(st.UserPath)
	if err != nil {
		return nil, fmt.Errorf("failed to score path: %w", err)
	}

	res := &Results{
		ScenarioID: sc.ID,
		Title:      sc.Title,
		Archetype:  arch,
		Score:      score,
		Path:       st.UserPath,
		Insights:   insights.Generate(sc, st.UserPath),
		Conclusion: st.Conclusion,
		Debrief:    st.Debrief,
		Transcript: st.Transcript(sc),
	}
	if len(st.Conclusion) > 0 && st.Debrief != "" {
		return res, nil
	}

	var conclusion []string
	var debrief string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := p.llm.Generate(gctx, services.Request{
			Purpose:     services.PurposeConclusion,
			Prompt:      prompts.ConclusionPrompt(sc, st),
			MaxTokens:   conclusionMaxTokens,
			Temperature: reflectionTemperature,
		})
		if err != nil {
			return fmt.Errorf("conclusion failed: %w", err)
		}
		conclusion = prompts.ParseConclusion(resp.Text)
		if len(conclusion) == 0 {
			return fmt.Errorf("conclusion failed: no paragraphs: %w", services.ErrEmptyOutput)
		}
		return nil
	})
	g.Go(func() error {
		resp, err := p.llm.Generate(gctx, services.Request{
			Purpose:     services.PurposeDebrief,
			Prompt:      prompts.DebriefPrompt(sc, st),
			MaxTokens:   debriefMaxTokens,
			Temperature: reflectionTemperature,
		})
		if err != nil {
			return fmt.Errorf("debrief failed: %w", err)
		}
		debrief = resp.Text
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if sc.CleanLanguage {
		for i := range conclusion {
			if p.filter.ContainsProfanity(conclusion[i]) {
				conclusion[i] = p.filter.FilterText(conclusion[i])
			}
		}
		if p.filter.ContainsProfanity(debrief) {
			debrief = p.filter.FilterText(debrief)
		}
	}

	st.Conclusion = conclusion
	st.Debrief = debrief
	st.UpdatedAt = time.Now().UTC()

	res.Conclusion = conclusion
	res.Debrief = debrief
	res.Generated = true
	archetypesTotal.WithLabelValues(sc.ID, arch.ID).Inc()
	p.logger.Info("Scenario concluded", "session_id", st.ID.String(), "scenario_id", sc.ID, "archetype", arch.ID, "score", score)
	return res, nil
}
