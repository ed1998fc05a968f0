package scenario

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Narration modes
const (
	NarrationParallel = "parallel"  // classify and narrate concurrently
	NarrationTwoStage = "two_stage" // classify first, then narrate with the label
)

// DefaultStoryContextLimit is the trailing character budget for story history in
// narration prompts when a scenario does not set one.
const DefaultStoryContextLimit = 2000

// Scenario is the static definition of one playable simulation. It is loaded once
// and never mutated at runtime.
type Scenario struct {
	ID                string         `json:"id"`                            // stable identifier, e.g. "remix"
	Version           int            `json:"version,omitempty"`             // bumped when prompts or tables change
	Title             string         `json:"title"`                         // display name
	Description       string         `json:"description"`                   // one-liner for scenario lists
	InitialScene      string         `json:"initial_scene"`                 // seeds the story log
	Beats             []Beat         `json:"beats"`                         // one scripted beat per turn
	Taxonomy          Taxonomy       `json:"taxonomy"`                      // classification labels
	Archetypes        ArchetypeTable `json:"archetypes"`                    // aggregation policy and buckets
	GuardRail         GuardRail      `json:"guard_rail"`                    // input gate configuration
	StoryContextLimit int            `json:"story_context_limit,omitempty"` // trailing runes of story kept in prompts
	NarrationMode     string         `json:"narration_mode,omitempty"`      // parallel (default) or two_stage
	CleanLanguage     bool           `json:"clean_language,omitempty"`      // filter profanity from generated text
	Narrator          string         `json:"narrator,omitempty"`            // narrator persona for story prompts
	Insights          InsightTable   `json:"insights,omitempty"`            // wording for personal insights
	DebriefContext    string         `json:"debrief_context,omitempty"`     // scenario summary for the debrief prompt
}

// Beat is one scripted decision point.
type Beat struct {
	Intro    []string `json:"intro,omitempty"` // optional pages shown before the question
	Question string   `json:"question"`        // the prompt the user answers
	Hint     string   `json:"hint,omitempty"`  // tone steer for the narration leading into this beat
}

// TurnCount is the fixed number of turns in the scenario.
func (s *Scenario) TurnCount() int {
	return len(s.Beats)
}

// Beat returns the beat for a 1-indexed turn, or nil when out of range.
func (s *Scenario) Beat(turn int) *Beat {
	if turn < 1 || turn > len(s.Beats) {
		return nil
	}
	return &s.Beats[turn-1]
}

// ContextLimit returns the story context budget, falling back to the default.
func (s *Scenario) ContextLimit() int {
	if s.StoryContextLimit > 0 {
		return s.StoryContextLimit
	}
	return DefaultStoryContextLimit
}

// IsTwoStage reports whether narration waits for the classification.
func (s *Scenario) IsTwoStage() bool {
	return s.NarrationMode == NarrationTwoStage
}

// Summary is the listing view of a scenario.
type Summary struct {
	ID          string `json:"id"`
	Version     int    `json:"version,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Turns       int    `json:"turns"`
}

func (s *Scenario) Summary() Summary {
	return Summary{
		ID:          s.ID,
		Version:     s.Version,
		Title:       s.Title,
		Description: s.Description,
		Turns:       s.TurnCount(),
	}
}

// Decode strictly parses a scenario document. Unknown fields are rejected so
// that typos in scenario files surface at load time.
func Decode(r io.Reader) (*Scenario, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}
	s.ID = strings.TrimSpace(s.ID)
	return &s, nil
}
