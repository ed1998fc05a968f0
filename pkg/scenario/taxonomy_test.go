package scenario

import "testing"

func TestTaxonomy_Match(t *testing.T) {
	tax := weightedScenario().Taxonomy

	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"Escalate", "Escalate", true},
		{"escalate", "Escalate", true},
		{"  TRIANGULATE\n", "Triangulate", true},
		{`"Frame"`, "Frame", true},
		{"🚀 Escalate.", "Escalate", true},
		{"Momentum", "", false},
		{"Escalate and Frame", "", false},
		{"", "", false},
		{"...", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := tax.Match(tt.raw)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Match(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestTaxonomy_Weight(t *testing.T) {
	tax := weightedScenario().Taxonomy

	if w, ok := tax.Weight("Frame"); !ok || w != 3 {
		t.Errorf("Weight(Frame) = (%d, %v)", w, ok)
	}
	if w, ok := tax.Weight(UnknownLabel); !ok || w != 1 {
		t.Errorf("Weight(Unknown) = (%d, %v), want minimum label weight", w, ok)
	}
	if _, ok := tax.Weight("Nope"); ok {
		t.Error("Weight(Nope) should not be found")
	}

	tax.UnknownWeight = 2
	if w, _ := tax.Weight(UnknownLabel); w != 2 {
		t.Errorf("Weight(Unknown) = %d, want configured 2", w)
	}

	lo, hi := tax.WeightRange()
	if lo != 1 || hi != 3 {
		t.Errorf("WeightRange() = (%d, %d)", lo, hi)
	}
}

func TestTaxonomy_Has(t *testing.T) {
	tax := countScenario().Taxonomy
	for name, want := range map[string]bool{
		"Momentum":   true,
		"Method":     true,
		UnknownLabel: true,
		"method":     false,
		"Escalate":   false,
	} {
		if got := tax.Has(name); got != want {
			t.Errorf("Has(%q) = %v, want %v", name, got, want)
		}
	}
}
