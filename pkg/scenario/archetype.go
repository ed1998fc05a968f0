package scenario

import (
	"errors"
	"fmt"
)

// Aggregation policies
const (
	PolicyCount       = "count"        // count one distinguished label
	PolicyWeightedSum = "weighted_sum" // sum label weights
)

var (
	ErrEmptyPath    = errors.New("user path is empty")
	ErrPathLength   = errors.New("user path length does not match turn count")
	ErrUnknownLabel = errors.New("user path contains a label outside the taxonomy")
)

// Archetype is one discrete outcome category.
type Archetype struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon,omitempty"`
	Subtitle    string `json:"subtitle,omitempty"`
	Description string `json:"description"`
}

// Bucket claims the inclusive score range [Min, Max].
type Bucket struct {
	Min       int       `json:"min"`
	Max       int       `json:"max"`
	Archetype Archetype `json:"archetype"`
}

func (b Bucket) contains(score int) bool {
	return score >= b.Min && score <= b.Max
}

// ArchetypeTable maps an aggregated score onto archetypes.
type ArchetypeTable struct {
	Policy     string   `json:"policy"`
	CountLabel string   `json:"count_label,omitempty"` // required by the count policy
	Buckets    []Bucket `json:"buckets"`
}

// Resolve maps a full classification path onto one archetype. It never
// falls back to a default: an incomplete or inconsistent path is an error.
func (s *Scenario) Resolve(userPath []string) (*Archetype, error) {
	if len(userPath) == 0 {
		return nil, ErrEmptyPath
	}
	if len(userPath) != s.TurnCount() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrPathLength, len(userPath), s.TurnCount())
	}
	for i, label := range userPath {
		if !s.Taxonomy.Has(label) {
			return nil, fmt.Errorf("%w: turn %d has %q", ErrUnknownLabel, i+1, label)
		}
	}

	score, err := s.Score(userPath)
	if err != nil {
		return nil, err
	}
	for i := range s.Archetypes.Buckets {
		if s.Archetypes.Buckets[i].contains(score) {
			a := s.Archetypes.Buckets[i].Archetype
			return &a, nil
		}
	}
	return nil, &ConfigurationError{
		ScenarioID: s.ID,
		Problems:   []string{fmt.Sprintf("no archetype bucket claims score %d", score)},
	}
}

// Score aggregates a path under the scenario's policy. Labels are assumed to
// be members of the taxonomy.
func (s *Scenario) Score(userPath []string) (int, error) {
	score := 0
	switch s.Archetypes.Policy {
	case PolicyCount:
		for _, label := range userPath {
			if label == s.Archetypes.CountLabel {
				score++
			}
		}
	case PolicyWeightedSum:
		for _, label := range userPath {
			w, ok := s.Taxonomy.Weight(label)
			if !ok {
				return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
			}
			score += w
		}
	default:
		return 0, &ConfigurationError{
			ScenarioID: s.ID,
			Problems:   []string{fmt.Sprintf("unsupported archetype policy %q", s.Archetypes.Policy)},
		}
	}
	return score, nil
}

// ScoreRange returns the lowest and highest score any full path can produce.
func (s *Scenario) ScoreRange() (int, int) {
	n := s.TurnCount()
	if s.Archetypes.Policy == PolicyCount {
		return 0, n
	}
	lo, hi := s.Taxonomy.WeightRange()
	return lo * n, hi * n
}

// Coverage maps every score in ScoreRange to the archetype IDs claiming it.
// A well-formed table has exactly one claimant per score.
func (s *Scenario) Coverage() map[int][]string {
	lo, hi := s.ScoreRange()
	cov := make(map[int][]string, hi-lo+1)
	for score := lo; score <= hi; score++ {
		cov[score] = nil
		for _, b := range s.Archetypes.Buckets {
			if b.contains(score) {
				cov[score] = append(cov[score], b.Archetype.ID)
			}
		}
	}
	return cov
}
