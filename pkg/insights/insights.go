// Package insights derives personal strengths, blind spots and a pattern
// sentence from a completed classification path. Wording comes from the
// scenario; the selection is deterministic.
package insights

import (
	"strings"

	"github.com/jwebster45206/archetype-engine/pkg/scenario"
)

const defaultLimit = 3

// Insights is the personalised read-out shown with the archetype.
type Insights struct {
	Strengths  []string `json:"strengths"`
	BlindSpots []string `json:"blind_spots"`
	Pattern    string   `json:"pattern"`
	Dominant   string   `json:"dominant_label,omitempty"`
	Consistent bool     `json:"consistent"`
	Escalating bool     `json:"escalating"`
}

// Generate computes insights for a path of canonical labels.
func Generate(sc *scenario.Scenario, path []string) Insights {
	table := sc.Insights
	limit := table.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	in := Insights{
		Dominant:   Dominant(path),
		Consistent: isConsistent(path),
		Escalating: isEscalating(&sc.Taxonomy, path),
	}

	var strengths, blindSpots []string
	if l, ok := sc.Taxonomy.Label(in.Dominant); ok {
		strengths = append(strengths, l.Strengths...)
		blindSpots = append(blindSpots, l.BlindSpots...)
	}

	switch {
	case in.Consistent:
		strengths = appendNonEmpty(strengths, table.ConsistentStrength)
		blindSpots = appendNonEmpty(blindSpots, table.ConsistentBlindSpot)
	case in.Escalating:
		strengths = appendNonEmpty(strengths, table.EscalatingStrength)
		blindSpots = appendNonEmpty(blindSpots, table.InconsistentBlindSpot)
	default:
		strengths = appendNonEmpty(strengths, table.FlexibleStrength)
		blindSpots = appendNonEmpty(blindSpots, table.InconsistentBlindSpot)
	}

	in.Strengths = head(strengths, limit)
	in.BlindSpots = head(blindSpots, limit)

	in.Pattern = table.Patterns[strings.Join(path, "-")]
	if in.Pattern == "" {
		in.Pattern = table.DefaultPattern
	}
	return in
}

// Dominant returns the most frequent known label. On ties the label that
// reached the top count first wins. Unknown only wins when nothing else was
// recorded.
func Dominant(path []string) string {
	counts := make(map[string]int)
	best, bestCount := "", 0
	for _, label := range path {
		if label == scenario.UnknownLabel {
			continue
		}
		counts[label]++
		if counts[label] > bestCount {
			best, bestCount = label, counts[label]
		}
	}
	if best == "" && len(path) > 0 {
		return scenario.UnknownLabel
	}
	return best
}

func isConsistent(path []string) bool {
	if len(path) < 2 || path[0] == scenario.UnknownLabel {
		return false
	}
	for _, label := range path[1:] {
		if label != path[0] {
			return false
		}
	}
	return true
}

func isEscalating(tax *scenario.Taxonomy, path []string) bool {
	if len(path) < 2 {
		return false
	}
	prev := -1
	for _, label := range path {
		w, ok := tax.Weight(label)
		if !ok || w <= prev {
			return false
		}
		prev = w
	}
	return true
}

func appendNonEmpty(list []string, s string) []string {
	if s == "" {
		return list
	}
	return append(list, s)
}

func head(list []string, n int) []string {
	if list == nil {
		return []string{}
	}
	if len(list) > n {
		return list[:n]
	}
	return list
}
