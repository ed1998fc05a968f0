package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/archetype-engine/pkg/scenario"
)

// storyOmitted precedes a story whose beginning was cut to fit the budget.
const storyOmitted = "[earlier events omitted]\n"

// Builder constructs the narration prompt using a fluent interface.
type Builder struct {
	scenario       *scenario.Scenario
	story          string
	userInput      string
	nextBeat       *scenario.Beat
	classification string
}

// New creates a new narration prompt builder.
func New() *Builder {
	return &Builder{}
}

// WithScenario sets the scenario, which also supplies the story budget.
func (b *Builder) WithScenario(s *scenario.Scenario) *Builder {
	b.scenario = s
	return b
}

// WithStory sets the accumulated story log.
func (b *Builder) WithStory(story string) *Builder {
	b.story = story
	return b
}

// WithUserInput sets the user's latest action.
func (b *Builder) WithUserInput(input string) *Builder {
	b.userInput = input
	return b
}

// WithNextBeat sets the upcoming beat whose tone hint steers the narration.
// The beat's question is never revealed.
func (b *Builder) WithNextBeat(beat *scenario.Beat) *Builder {
	b.nextBeat = beat
	return b
}

// WithClassification passes the turn's label to the narrator. It is only
// used by two-stage scenarios.
func (b *Builder) WithClassification(label string) *Builder {
	b.classification = label
	return b
}

// Build renders the prompt.
func (b *Builder) Build() (string, error) {
	if b.scenario == nil {
		return "", fmt.Errorf("scenario is required")
	}
	if strings.TrimSpace(b.userInput) == "" {
		return "", fmt.Errorf("user input is required")
	}

	narrator := b.scenario.Narrator
	if narrator == "" {
		narrator = defaultNarrator
	}

	return fmt.Sprintf(NarrationTemplate,
		narrator,
		embed(b.recentStory()),
		embed(b.userInput),
		b.guidance(),
	), nil
}

func (b *Builder) recentStory() string {
	story := TruncateStory(b.story, b.scenario.ContextLimit())
	if story != b.story {
		return storyOmitted + story
	}
	return story
}

func (b *Builder) guidance() string {
	var sb strings.Builder
	if b.classification != "" && b.scenario.IsTwoStage() {
		sb.WriteString("\n# 3. Their Approach\n")
		sb.WriteString("The user's approach was classified as " + b.classification)
		if l, ok := b.scenario.Taxonomy.Label(b.classification); ok && l.Description != "" {
			sb.WriteString(" (" + strings.TrimSuffix(l.Description, ".") + ")")
		}
		sb.WriteString(". Let the consequences reflect that approach.\n")
	}
	if b.nextBeat != nil && b.nextBeat.Hint != "" {
		sb.WriteString("\n# Tone\n")
		sb.WriteString("Steer the scene toward this: " + b.nextBeat.Hint + ". Do not resolve it yet.\n")
	}
	return sb.String()
}

// NarrationPrompt is a convenience function for the common case.
func NarrationPrompt(sc *scenario.Scenario, userInput, storySoFar string, nextBeat *scenario.Beat, classification string) (string, error) {
	return New().
		WithScenario(sc).
		WithStory(storySoFar).
		WithUserInput(userInput).
		WithNextBeat(nextBeat).
		WithClassification(classification).
		Build()
}
