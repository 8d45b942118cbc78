// Package metrics exposes Prometheus instrumentation for the review session.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dialog_annotator"

var (
	// SavesTotal counts persisted annotations by outcome (changed, no_change).
	SavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Total number of annotations saved, by outcome",
		},
		[]string{"outcome"},
	)

	// GenerationRequestsTotal counts generation calls by provider and status.
	GenerationRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_requests_total",
			Help:      "Total number of conversation generation requests",
		},
		[]string{"provider", "status"}, // status: success, error
	)

	// PersistenceFailuresTotal counts failed snapshot writes.
	PersistenceFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Total number of failed output file writes",
		},
	)
)
