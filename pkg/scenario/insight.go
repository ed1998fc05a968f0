package scenario

// InsightTable holds the wording used to turn a classification path into
// personal insights. Per-label strengths and blind spots live on the labels.
type InsightTable struct {
	Patterns              map[string]string `json:"patterns,omitempty"`                // keyed by labels joined with "-"
	DefaultPattern        string            `json:"default_pattern,omitempty"`         // used when no pattern matches
	ConsistentStrength    string            `json:"consistent_strength,omitempty"`     // every turn had the same label
	EscalatingStrength    string            `json:"escalating_strength,omitempty"`     // weights strictly increase
	FlexibleStrength      string            `json:"flexible_strength,omitempty"`       // neither of the above
	ConsistentBlindSpot   string            `json:"consistent_blind_spot,omitempty"`   // same label every turn
	InconsistentBlindSpot string            `json:"inconsistent_blind_spot,omitempty"` // labels changed
	Limit                 int               `json:"limit,omitempty"`                   // max strengths and blind spots; default 3
}
