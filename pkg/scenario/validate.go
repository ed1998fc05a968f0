package scenario

import (
	"fmt"
	"sort"
	"strings"
)

// ConfigurationError reports a scenario whose data cannot be used. It is
// fatal at load time.
type ConfigurationError struct {
	ScenarioID string
	Problems   []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid scenario %q: %s", e.ScenarioID, strings.Join(e.Problems, "; "))
}

// Validate checks the scenario for every data-integrity problem at once and
// returns a *ConfigurationError listing them, or nil.
func (s *Scenario) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if s.ID == "" {
		add("id is required")
	}
	if s.Title == "" {
		add("title is required")
	}
	if s.InitialScene == "" {
		add("initial_scene is required")
	}
	if len(s.Beats) == 0 {
		add("at least one beat is required")
	}
	for i, b := range s.Beats {
		if strings.TrimSpace(b.Question) == "" {
			add("beat %d has no question", i+1)
		}
	}
	if s.NarrationMode != "" && s.NarrationMode != NarrationParallel && s.NarrationMode != NarrationTwoStage {
		add("unknown narration_mode %q", s.NarrationMode)
	}
	if s.StoryContextLimit < 0 {
		add("story_context_limit must not be negative")
	}

	switch s.GuardRail.Polarity {
	case AffirmativeApproves, AffirmativeBlocks:
	default:
		add("guard_rail.polarity must be %q or %q, got %q", AffirmativeApproves, AffirmativeBlocks, s.GuardRail.Polarity)
	}
	if s.GuardRail.Question == "" {
		add("guard_rail.question is required")
	}

	problems = append(problems, s.validateTaxonomy()...)
	problems = append(problems, s.validateArchetypes()...)

	if len(problems) > 0 {
		return &ConfigurationError{ScenarioID: s.ID, Problems: problems}
	}
	return nil
}

func (s *Scenario) validateTaxonomy() []string {
	var problems []string
	if len(s.Taxonomy.Labels) < 2 {
		problems = append(problems, "taxonomy needs at least two labels")
	}
	seen := make(map[string]bool)
	for _, l := range s.Taxonomy.Labels {
		key := folder.String(l.Name)
		switch {
		case l.Name == "":
			problems = append(problems, "taxonomy label with empty name")
		case folder.String(UnknownLabel) == key:
			problems = append(problems, fmt.Sprintf("label %q is reserved", l.Name))
		case seen[key]:
			problems = append(problems, fmt.Sprintf("duplicate label %q", l.Name))
		}
		seen[key] = true
		if s.Archetypes.Policy == PolicyWeightedSum && (l.Weight < 1 || l.Weight > 3) {
			problems = append(problems, fmt.Sprintf("label %q weight %d outside 1-3", l.Name, l.Weight))
		}
	}
	if s.Taxonomy.UnknownWeight != 0 {
		lo, hi := s.Taxonomy.WeightRange()
		if s.Taxonomy.UnknownWeight < lo || s.Taxonomy.UnknownWeight > hi {
			problems = append(problems, fmt.Sprintf("unknown_weight %d outside label weight range %d-%d", s.Taxonomy.UnknownWeight, lo, hi))
		}
	}
	for i, ex := range s.Taxonomy.Examples {
		if _, ok := s.Taxonomy.Match(ex.Label); !ok {
			problems = append(problems, fmt.Sprintf("example %d uses unknown label %q", i+1, ex.Label))
		}
	}
	return problems
}

func (s *Scenario) validateArchetypes() []string {
	var problems []string
	switch s.Archetypes.Policy {
	case PolicyCount:
		if _, ok := s.Taxonomy.Label(s.Archetypes.CountLabel); !ok {
			problems = append(problems, fmt.Sprintf("count_label %q is not a taxonomy label", s.Archetypes.CountLabel))
		}
	case PolicyWeightedSum:
	default:
		return append(problems, fmt.Sprintf("archetypes.policy must be %q or %q, got %q", PolicyCount, PolicyWeightedSum, s.Archetypes.Policy))
	}

	ids := make(map[string]bool)
	for i, b := range s.Archetypes.Buckets {
		if b.Min > b.Max {
			problems = append(problems, fmt.Sprintf("bucket %d has min %d greater than max %d", i+1, b.Min, b.Max))
		}
		if b.Archetype.ID == "" || b.Archetype.Name == "" {
			problems = append(problems, fmt.Sprintf("bucket %d archetype needs an id and name", i+1))
		}
		if ids[b.Archetype.ID] {
			problems = append(problems, fmt.Sprintf("duplicate archetype id %q", b.Archetype.ID))
		}
		ids[b.Archetype.ID] = true
	}
	if len(s.Beats) == 0 || len(s.Taxonomy.Labels) == 0 {
		return problems
	}

	cov := s.Coverage()
	scores := make([]int, 0, len(cov))
	for score := range cov {
		scores = append(scores, score)
	}
	sort.Ints(scores)
	for _, score := range scores {
		switch claimants := cov[score]; len(claimants) {
		case 1:
		case 0:
			problems = append(problems, fmt.Sprintf("score %d is not covered by any bucket", score))
		default:
			problems = append(problems, fmt.Sprintf("score %d is claimed by %s", score, strings.Join(claimants, ", ")))
		}
	}
	return problems
}
