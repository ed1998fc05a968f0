package scenario

import (
	"errors"
	"strings"
	"testing"
)

func countScenario() *Scenario {
	return &Scenario{
		ID:           "crisis",
		Title:        "Crisis",
		InitialScene: "Dashboards are red.",
		Beats:        []Beat{{Question: "Q1"}, {Question: "Q2"}, {Question: "Q3"}},
		Taxonomy: Taxonomy{Labels: []Label{
			{Name: "Momentum", Description: "act now"},
			{Name: "Method", Description: "analyze first"},
		}},
		Archetypes: ArchetypeTable{
			Policy:     PolicyCount,
			CountLabel: "Momentum",
			Buckets: []Bucket{
				{Min: 0, Max: 0, Archetype: Archetype{ID: "systems_architect", Name: "Systems Architect"}},
				{Min: 1, Max: 1, Archetype: Archetype{ID: "systematic_solver", Name: "Systematic Solver"}},
				{Min: 2, Max: 2, Archetype: Archetype{ID: "rapid_strategist", Name: "Rapid Strategist"}},
				{Min: 3, Max: 3, Archetype: Archetype{ID: "crisis_catalyst", Name: "Crisis Catalyst"}},
			},
		},
		GuardRail: GuardRail{Polarity: AffirmativeApproves, Question: "Serious?"},
	}
}

func weightedScenario() *Scenario {
	return &Scenario{
		ID:           "remix",
		Title:        "Remix",
		InitialScene: "It went viral.",
		Beats:        []Beat{{Question: "Q1"}, {Question: "Q2"}, {Question: "Q3"}},
		Taxonomy: Taxonomy{Labels: []Label{
			{Name: "Escalate", Weight: 3},
			{Name: "Defer", Weight: 1},
			{Name: "Collaborate", Weight: 2},
			{Name: "Anchor", Weight: 2},
			{Name: "Triangulate", Weight: 2},
			{Name: "Withdraw", Weight: 1},
			{Name: "Frame", Weight: 3},
			{Name: "Justify", Weight: 2},
		}},
		Archetypes: ArchetypeTable{
			Policy: PolicyWeightedSum,
			Buckets: []Bucket{
				{Min: 3, Max: 4, Archetype: Archetype{ID: "bottom", Name: "Bottom"}},
				{Min: 5, Max: 6, Archetype: Archetype{ID: "lower", Name: "Lower"}},
				{Min: 7, Max: 8, Archetype: Archetype{ID: "upper", Name: "Upper"}},
				{Min: 9, Max: 9, Archetype: Archetype{ID: "top", Name: "Top"}},
			},
		},
		GuardRail: GuardRail{Polarity: AffirmativeBlocks, Question: "Nonsense?"},
	}
}

func TestResolve_CountPolicy(t *testing.T) {
	tests := []struct {
		name string
		path []string
		want string
	}{
		{"all momentum", []string{"Momentum", "Momentum", "Momentum"}, "crisis_catalyst"},
		{"all method", []string{"Method", "Method", "Method"}, "systems_architect"},
		{"two momentum", []string{"Momentum", "Method", "Momentum"}, "rapid_strategist"},
		{"one momentum", []string{"Method", "Momentum", "Method"}, "systematic_solver"},
		{"unknown never counts", []string{"Momentum", UnknownLabel, "Momentum"}, "rapid_strategist"},
	}

	sc := countScenario()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sc.Resolve(tt.path)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got.ID != tt.want {
				t.Errorf("Resolve() = %q, want %q", got.ID, tt.want)
			}
		})
	}
}

func TestResolve_WeightedSumPolicy(t *testing.T) {
	tests := []struct {
		name      string
		path      []string
		wantScore int
		want      string
	}{
		{"max weight", []string{"Escalate", "Escalate", "Escalate"}, 9, "top"},
		{"min weight", []string{"Defer", "Withdraw", "Defer"}, 3, "bottom"},
		{"middle", []string{"Collaborate", "Anchor", "Justify"}, 6, "lower"},
		{"upper", []string{"Frame", "Triangulate", "Escalate"}, 8, "upper"},
		{"unknown scores minimum", []string{UnknownLabel, UnknownLabel, UnknownLabel}, 3, "bottom"},
	}

	sc := weightedScenario()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := sc.Score(tt.path)
			if err != nil {
				t.Fatalf("Score() error = %v", err)
			}
			if score != tt.wantScore {
				t.Errorf("Score() = %d, want %d", score, tt.wantScore)
			}
			got, err := sc.Resolve(tt.path)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got.ID != tt.want {
				t.Errorf("Resolve() = %q, want %q", got.ID, tt.want)
			}
		})
	}
}

func TestResolve_Errors(t *testing.T) {
	sc := countScenario()

	tests := []struct {
		name    string
		path    []string
		wantErr error
	}{
		{"nil path", nil, ErrEmptyPath},
		{"empty path", []string{}, ErrEmptyPath},
		{"short path", []string{"Momentum", "Method"}, ErrPathLength},
		{"long path", []string{"Momentum", "Method", "Method", "Method"}, ErrPathLength},
		{"foreign label", []string{"Momentum", "Escalate", "Method"}, ErrUnknownLabel},
		{"wrong case is not canonical", []string{"momentum", "Method", "Method"}, ErrUnknownLabel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sc.Resolve(tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Resolve() error = %v, want %v", err, tt.wantErr)
			}
			if got != nil {
				t.Errorf("Resolve() returned archetype %q alongside error", got.ID)
			}
		})
	}
}

func TestResolve_MissingBucketIsConfigurationError(t *testing.T) {
	sc := countScenario()
	sc.Archetypes.Buckets = sc.Archetypes.Buckets[:3]

	_, err := sc.Resolve([]string{"Momentum", "Momentum", "Momentum"})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Resolve() error = %v, want *ConfigurationError", err)
	}
	if cfgErr.ScenarioID != "crisis" {
		t.Errorf("ScenarioID = %q", cfgErr.ScenarioID)
	}
}

func TestCoverage_ExactlyOneBucketPerScore(t *testing.T) {
	for _, sc := range []*Scenario{countScenario(), weightedScenario()} {
		t.Run(sc.ID, func(t *testing.T) {
			lo, hi := sc.ScoreRange()
			cov := sc.Coverage()
			if len(cov) != hi-lo+1 {
				t.Fatalf("Coverage() has %d scores, want %d", len(cov), hi-lo+1)
			}
			for score := lo; score <= hi; score++ {
				if n := len(cov[score]); n != 1 {
					t.Errorf("score %d claimed by %d buckets: %v", score, n, cov[score])
				}
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Scenario)
		wantErr string
	}{
		{"valid count", func(s *Scenario) {}, ""},
		{
			name:    "gap",
			mutate:  func(s *Scenario) { s.Archetypes.Buckets[1].Max = 0 },
			wantErr: "score 1 is not covered",
		},
		{
			name:    "overlap",
			mutate:  func(s *Scenario) { s.Archetypes.Buckets[2].Min = 1 },
			wantErr: "score 1 is claimed by systematic_solver, rapid_strategist",
		},
		{
			name:    "missing count label",
			mutate:  func(s *Scenario) { s.Archetypes.CountLabel = "Speed" },
			wantErr: `count_label "Speed"`,
		},
		{
			name:    "no polarity",
			mutate:  func(s *Scenario) { s.GuardRail.Polarity = "" },
			wantErr: "guard_rail.polarity",
		},
		{
			name:    "disabled polarity",
			mutate:  func(s *Scenario) { s.GuardRail.Polarity = "disabled" },
			wantErr: "guard_rail.polarity",
		},
		{
			name:    "reserved label",
			mutate:  func(s *Scenario) { s.Taxonomy.Labels[1].Name = "unknown" },
			wantErr: "is reserved",
		},
		{
			name:    "bad narration mode",
			mutate:  func(s *Scenario) { s.NarrationMode = "streaming" },
			wantErr: "narration_mode",
		},
		{
			name:    "example with foreign label",
			mutate:  func(s *Scenario) { s.Taxonomy.Examples = []Exemplar{{Input: "x", Label: "Escalate"}} },
			wantErr: "example 1 uses unknown label",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := countScenario()
			tt.mutate(sc)
			err := sc.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() error = %v, want *ConfigurationError", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_WeightedRanges(t *testing.T) {
	sc := weightedScenario()
	if err := sc.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	sc.Taxonomy.Labels[0].Weight = 4
	err := sc.Validate()
	if err == nil || !strings.Contains(err.Error(), `"Escalate" weight 4 outside 1-3`) {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	sc := countScenario()
	sc.Title = ""
	sc.Beats[1].Question = " "
	sc.GuardRail.Question = ""

	var cfgErr *ConfigurationError
	if !errors.As(sc.Validate(), &cfgErr) {
		t.Fatal("expected *ConfigurationError")
	}
	if len(cfgErr.Problems) != 3 {
		t.Errorf("got %d problems, want 3: %v", len(cfgErr.Problems), cfgErr.Problems)
	}
}

func TestDecode(t *testing.T) {
	t.Run("strict", func(t *testing.T) {
		_, err := Decode(strings.NewReader(`{"id":"x","titel":"typo"}`))
		if err == nil {
			t.Fatal("expected unknown field error")
		}
	})

	t.Run("trims id", func(t *testing.T) {
		sc, err := Decode(strings.NewReader(`{"id":" crisis ","title":"C","beats":[{"question":"Q"}]}`))
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if sc.ID != "crisis" {
			t.Errorf("ID = %q", sc.ID)
		}
		if sc.TurnCount() != 1 || sc.Beat(1).Question != "Q" || sc.Beat(2) != nil {
			t.Errorf("unexpected beats: %+v", sc.Beats)
		}
		if sc.ContextLimit() != DefaultStoryContextLimit {
			t.Errorf("ContextLimit() = %d", sc.ContextLimit())
		}
	})
}
