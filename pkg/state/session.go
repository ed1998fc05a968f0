package state

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/archetype-engine/pkg/scenario"
	"github.com/jwebster45206/archetype-engine/pkg/turn"
)

// SessionState is one player's progress through a scenario. It is persisted
// as a single JSON blob.
type SessionState struct {
	ID            uuid.UUID `json:"id"`
	ScenarioID    string    `json:"scenario_id"`
	CurrentTurn   int       `json:"current_turn"`   // 1-indexed; TurnCount+1 once complete
	StorySoFar    string    `json:"story_so_far"`   // append-only story log
	UserResponses []string  `json:"user_responses"` // raw inputs per completed turn
	UserPath      []string  `json:"user_path"`      // classification per completed turn
	UserActions   []string  `json:"user_actions"`   // action summary per completed turn
	Conclusion    []string  `json:"conclusion,omitempty"`
	Debrief       string    `json:"debrief,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewSessionState starts a fresh session at turn 1 with the scene seeded.
func NewSessionState(sc *scenario.Scenario) *SessionState {
	now := time.Now().UTC()
	return &SessionState{
		ID:            uuid.New(),
		ScenarioID:    sc.ID,
		CurrentTurn:   1,
		StorySoFar:    "SCENE: " + sc.InitialScene,
		UserResponses: make([]string, 0, sc.TurnCount()),
		UserPath:      make([]string, 0, sc.TurnCount()),
		UserActions:   make([]string, 0, sc.TurnCount()),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ApplyTurn merges a completed turn. It is the only mutator of the per-turn
// arrays, and extends all of them together.
func (s *SessionState) ApplyTurn(rec turn.Record) {
	s.UserResponses = append(s.UserResponses, rec.Input)
	s.UserPath = append(s.UserPath, rec.Classification)
	s.UserActions = append(s.UserActions, rec.ActionSummary)
	s.StorySoFar += fmt.Sprintf("\nUSER'S ACTION: \"%s\"\nNARRATIVE CONTINUATION: \"%s\"", rec.Input, rec.Narrative)
	s.CurrentTurn++
	s.UpdatedAt = time.Now().UTC()
}

// IsComplete reports whether every beat of sc has been answered.
func (s *SessionState) IsComplete(sc *scenario.Scenario) bool {
	return s.CurrentTurn > sc.TurnCount()
}

// Validate checks the array-length invariant. A state failing it was
// corrupted outside ApplyTurn.
func (s *SessionState) Validate() error {
	if s.CurrentTurn < 1 {
		return fmt.Errorf("current_turn %d must be at least 1", s.CurrentTurn)
	}
	want := s.CurrentTurn - 1
	if len(s.UserResponses) != want || len(s.UserPath) != want || len(s.UserActions) != want {
		return fmt.Errorf("session %s has %d responses, %d classifications and %d actions at turn %d",
			s.ID, len(s.UserResponses), len(s.UserPath), len(s.UserActions), s.CurrentTurn)
	}
	return nil
}

// DeepCopy returns an independent copy.
func (s *SessionState) DeepCopy() *SessionState {
	if s == nil {
		return nil
	}
	c := *s
	c.UserResponses = slices.Clone(s.UserResponses)
	c.UserPath = slices.Clone(s.UserPath)
	c.UserActions = slices.Clone(s.UserActions)
	c.Conclusion = slices.Clone(s.Conclusion)
	return &c
}

// TranscriptEntry pairs a beat's question with the user's answer.
type TranscriptEntry struct {
	Turn           int    `json:"turn"`
	Question       string `json:"question"`
	Response       string `json:"response"`
	Classification string `json:"classification"`
	Action         string `json:"action"`
}

func (s *SessionState) Transcript(sc *scenario.Scenario) []TranscriptEntry {
	entries := make([]TranscriptEntry, 0, len(s.UserResponses))
	for i, resp := range s.UserResponses {
		e := TranscriptEntry{Turn: i + 1, Response: resp}
		if b := sc.Beat(i + 1); b != nil {
			e.Question = b.Question
		}
		if i < len(s.UserPath) {
			e.Classification = s.UserPath[i]
		}
		if i < len(s.UserActions) {
			e.Action = s.UserActions[i]
		}
		entries = append(entries, e)
	}
	return entries
}
