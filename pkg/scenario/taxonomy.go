package scenario

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// UnknownLabel is recorded when the classifier's answer cannot be mapped onto
// the taxonomy.
const UnknownLabel = "Unknown"

// Taxonomy is the fixed set of behavioral labels a scenario classifies into.
type Taxonomy struct {
	Axis          string     `json:"axis,omitempty"`           // what the labels measure
	Labels        []Label    `json:"labels"`                   // ordered label set
	Examples      []Exemplar `json:"examples,omitempty"`       // few-shot exemplars
	UnknownWeight int        `json:"unknown_weight,omitempty"` // score of UnknownLabel; 0 means minimum label weight
}

// Label is one classification outcome.
type Label struct {
	Name        string   `json:"name"`
	Icon        string   `json:"icon,omitempty"`
	Description string   `json:"description"`
	Weight      int      `json:"weight,omitempty"` // used by the weighted_sum policy, 1-3
	Strengths   []string `json:"strengths,omitempty"`
	BlindSpots  []string `json:"blind_spots,omitempty"`
}

// Exemplar is a worked classification example.
type Exemplar struct {
	Input string `json:"input"`
	Label string `json:"label"`
}

var folder = cases.Fold()

// Match maps a raw classifier answer onto a canonical label name. Matching is
// case-insensitive and ignores surrounding quotes, punctuation and emoji.
func (t *Taxonomy) Match(raw string) (string, bool) {
	cleaned := strings.TrimFunc(raw, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if cleaned == "" {
		return "", false
	}
	want := folder.String(cleaned)
	for _, l := range t.Labels {
		if folder.String(l.Name) == want {
			return l.Name, true
		}
	}
	return "", false
}

// Label returns the label with the given canonical name.
func (t *Taxonomy) Label(name string) (*Label, bool) {
	for i := range t.Labels {
		if t.Labels[i].Name == name {
			return &t.Labels[i], true
		}
	}
	return nil, false
}

// Has reports whether name is a canonical label or the Unknown sentinel.
func (t *Taxonomy) Has(name string) bool {
	if name == UnknownLabel {
		return true
	}
	_, ok := t.Label(name)
	return ok
}

// Weight returns the score of a label under the weighted_sum policy.
func (t *Taxonomy) Weight(name string) (int, bool) {
	if name == UnknownLabel {
		return t.unknownWeight(), true
	}
	l, ok := t.Label(name)
	if !ok {
		return 0, false
	}
	return l.Weight, true
}

func (t *Taxonomy) unknownWeight() int {
	if t.UnknownWeight > 0 {
		return t.UnknownWeight
	}
	lo, _ := t.WeightRange()
	return lo
}

// WeightRange returns the smallest and largest label weight.
func (t *Taxonomy) WeightRange() (int, int) {
	if len(t.Labels) == 0 {
		return 0, 0
	}
	lo, hi := t.Labels[0].Weight, t.Labels[0].Weight
	for _, l := range t.Labels[1:] {
		lo = min(lo, l.Weight)
		hi = max(hi, l.Weight)
	}
	return lo, hi
}

// Names returns the canonical label names in order.
func (t *Taxonomy) Names() []string {
	names := make([]string, len(t.Labels))
	for i, l := range t.Labels {
		names[i] = l.Name
	}
	return names
}
