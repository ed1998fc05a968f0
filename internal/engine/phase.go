package engine

import "github.com/jwebster45206/archetype-engine/pkg/turn"

// Phase is a step of the turn state machine.
type Phase string

const (
	PhaseAwaitingInput             Phase = "awaiting_input"
	PhaseGuardRailPending          Phase = "guard_rail_pending"
	PhaseBlocked                   Phase = "blocked"
	PhaseApproved                  Phase = "approved"
	PhaseClassifyAndNarratePending Phase = "classify_and_narrate_pending"
	PhaseTurnComplete              Phase = "turn_complete"
	PhaseFailed                    Phase = "failed"
	PhaseScenarioComplete          Phase = "scenario_complete"
)

// Outcome is what SubmitTurn returns: the user-facing result plus the phases
// the turn passed through, in order.
type Outcome struct {
	Result turn.Result
	Trace  []Phase
}

// Final returns the last phase reached.
func (o Outcome) Final() Phase {
	if len(o.Trace) == 0 {
		return PhaseAwaitingInput
	}
	return o.Trace[len(o.Trace)-1]
}
