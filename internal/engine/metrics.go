package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archetype_turns_total",
			Help: "Submitted turns by scenario and final phase.",
		},
		[]string{"scenario", "phase"},
	)
	classificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archetype_classifications_total",
			Help: "Accepted classifications by scenario and label.",
		},
		[]string{"scenario", "label"},
	)
	archetypesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archetype_resolved_total",
			Help: "Resolved archetypes by scenario.",
		},
		[]string{"scenario", "archetype"},
	)
)
