package runner

import (
	"time"

	"github.com/google/uuid"
)

// TestSuite plays one session of a scenario from start to finish.
// It is either a regular case with Steps or a sequence of other Cases.
type TestSuite struct {
	Name     string          `json:"name"`
	Scenario string          `json:"scenario,omitempty"` // scenario id; used for regular tests
	Steps    []TestStep      `json:"steps,omitempty"`    // used for regular tests
	Results  *ResultsExpects `json:"results,omitempty"`  // checked after the last step
	Cases    []string        `json:"cases,omitempty"`    // used for sequence suites
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep submits one message to the current beat.
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	UserPrompt   string       `json:"user_prompt"`
	Expectations Expectations `json:"expect"`
}

// Expectations are checked against the turn result and the session after it.
type Expectations struct {
	Status           *string  `json:"status,omitempty"`            // success or needs_retry
	ClassificationIn []string `json:"classification_in,omitempty"` // any of these labels
	Turn             *int     `json:"turn,omitempty"`              // turn the session is on afterwards
	Complete         *bool    `json:"complete,omitempty"`

	// Response Analysis (narration on success, the retry message otherwise)
	ResponseContains    []string `json:"response_contains,omitempty"`
	ResponseNotContains []string `json:"response_not_contains,omitempty"`
	ResponseRegex       string   `json:"response_regex,omitempty"`
	ResponseMinLength   *int     `json:"response_min_length,omitempty"`
	ResponseMaxLength   *int     `json:"response_max_length,omitempty"`
}

// ResultsExpects are checked against GET /results once the scenario is complete.
type ResultsExpects struct {
	ArchetypeIn       []string `json:"archetype_in,omitempty"`
	ConclusionMinSize *int     `json:"conclusion_min_paragraphs,omitempty"`
	DebriefContains   []string `json:"debrief_contains,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	ResponseText string
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	Session  uuid.UUID // ID of the session used for this test
}
