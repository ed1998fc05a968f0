package scenario

import (
	"strings"
	"unicode"
)

// Guard-rail polarities. The gate has no disabled setting.
const (
	AffirmativeApproves = "affirmative_approves" // YES means the input is a serious attempt
	AffirmativeBlocks   = "affirmative_blocks"   // YES means the input should be rejected
)

const (
	VerdictYes = "YES"
	VerdictNo  = "NO"
)

// DefaultRetryMessage is shown when a scenario does not configure one.
const DefaultRetryMessage = "Please provide a serious response to the scenario."

// GuardRail configures the cheap input gate that runs before generation.
type GuardRail struct {
	Polarity     string `json:"polarity"`
	Question     string `json:"question"`                // yes/no question posed to the model
	Context      string `json:"context,omitempty"`       // one-paragraph scenario context
	RetryMessage string `json:"retry_message,omitempty"` // shown to the user when blocked
}

// NormalizeVerdict trims whitespace and punctuation from a raw verdict and
// upper-cases the first word.
func NormalizeVerdict(raw string) string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// Approves interprets a raw verdict under the configured polarity. Anything
// other than the approving token blocks.
func (g GuardRail) Approves(raw string) bool {
	v := NormalizeVerdict(raw)
	switch g.Polarity {
	case AffirmativeApproves:
		return v == VerdictYes
	case AffirmativeBlocks:
		return v == VerdictNo
	default:
		return false
	}
}

// Retry returns the message shown to a blocked user.
func (g GuardRail) Retry() string {
	if g.RetryMessage != "" {
		return g.RetryMessage
	}
	return DefaultRetryMessage
}
