package insights

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jwebster45206/archetype-engine/pkg/scenario"
)

func testScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Beats: make([]scenario.Beat, 3),
		Taxonomy: scenario.Taxonomy{Labels: []scenario.Label{
			{Name: "Defer", Weight: 1, Strengths: []string{"defer-s1", "defer-s2"}, BlindSpots: []string{"defer-b1"}},
			{Name: "Anchor", Weight: 2, Strengths: []string{"anchor-s1"}, BlindSpots: []string{"anchor-b1", "anchor-b2"}},
			{Name: "Escalate", Weight: 3, Strengths: []string{"esc-s1", "esc-s2", "esc-s3"}, BlindSpots: []string{"esc-b1"}},
		}},
		Insights: scenario.InsightTable{
			Patterns:              map[string]string{"Defer-Anchor-Escalate": "You build up intensity over time."},
			DefaultPattern:        "default pattern",
			ConsistentStrength:    "consistent-s",
			EscalatingStrength:    "escalating-s",
			FlexibleStrength:      "flexible-s",
			ConsistentBlindSpot:   "consistent-b",
			InconsistentBlindSpot: "inconsistent-b",
		},
	}
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name           string
		path           []string
		wantStrengths  []string
		wantBlindSpots []string
		wantPattern    string
		wantDominant   string
	}{
		{
			name:           "escalating",
			path:           []string{"Defer", "Anchor", "Escalate"},
			wantStrengths:  []string{"defer-s1", "defer-s2", "escalating-s"},
			wantBlindSpots: []string{"defer-b1", "inconsistent-b"},
			wantPattern:    "You build up intensity over time.",
			wantDominant:   "Defer",
		},
		{
			name:           "consistent",
			path:           []string{"Anchor", "Anchor", "Anchor"},
			wantStrengths:  []string{"anchor-s1", "consistent-s"},
			wantBlindSpots: []string{"anchor-b1", "anchor-b2", "consistent-b"},
			wantPattern:    "default pattern",
			wantDominant:   "Anchor",
		},
		{
			name:           "limit applies",
			path:           []string{"Escalate", "Defer", "Escalate"},
			wantStrengths:  []string{"esc-s1", "esc-s2", "esc-s3"},
			wantBlindSpots: []string{"esc-b1", "inconsistent-b"},
			wantPattern:    "default pattern",
			wantDominant:   "Escalate",
		},
		{
			name:           "all unknown",
			path:           []string{scenario.UnknownLabel, scenario.UnknownLabel, scenario.UnknownLabel},
			wantStrengths:  []string{"flexible-s"},
			wantBlindSpots: []string{"inconsistent-b"},
			wantPattern:    "default pattern",
			wantDominant:   scenario.UnknownLabel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(testScenario(), tt.path)
			assert.Equal(t, tt.wantStrengths, got.Strengths)
			assert.Equal(t, tt.wantBlindSpots, got.BlindSpots)
			assert.Equal(t, tt.wantPattern, got.Pattern)
			assert.Equal(t, tt.wantDominant, got.Dominant)
		})
	}
}

func TestDominant(t *testing.T) {
	assert.Equal(t, "B", Dominant([]string{"A", "B", "B", "A"}))
	assert.Equal(t, "A", Dominant([]string{"A", scenario.UnknownLabel, scenario.UnknownLabel}))
	assert.Equal(t, "", Dominant(nil))
}

func TestGenerate_DeterministicWithoutWording(t *testing.T) {
	sc := &scenario.Scenario{Taxonomy: scenario.Taxonomy{Labels: []scenario.Label{{Name: "Momentum"}, {Name: "Method"}}}}
	got := Generate(sc, []string{"Momentum", "Method", "Momentum"})
	assert.Empty(t, got.Strengths)
	assert.NotNil(t, got.Strengths)
	assert.Equal(t, "Momentum", got.Dominant)
	assert.False(t, got.Escalating)
}
