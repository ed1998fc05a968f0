package services

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archetype_llm_requests_total",
			Help: "Total number of LLM gateway calls.",
		},
		[]string{"purpose", "provider", "outcome"},
	)
	llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archetype_llm_request_duration_seconds",
			Help:    "Duration of LLM gateway calls.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"purpose"},
	)
)

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrServiceUnavailable):
		return "unavailable"
	case errors.Is(err, ErrMalformedOutput):
		return "malformed"
	case errors.Is(err, ErrEmptyOutput):
		return "empty"
	default:
		return "error"
	}
}
