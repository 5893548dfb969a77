// Package metrics provides Prometheus metrics definitions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "firedispatch"

var (
	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route", "status_code"},
	)

	// DBPoolConnections tracks database connection pool state.
	DBPoolConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "pool_connections",
			Help:      "Number of database connections by state",
		},
		[]string{"state"},
	)

	// IncidentTransitions counts committed incident state transitions.
	IncidentTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "incident_transitions_total",
			Help:      "Committed incident status transitions",
		},
		[]string{"to_status"},
	)

	// TransitionConflicts counts transitions rejected by the atomic
	// conditional update (stale caller, wrong department, double booking).
	TransitionConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "transition_conflicts_total",
			Help:      "Incident transitions rejected by concurrency checks",
		},
		[]string{"operation"},
	)
)

// RecordTransition records a committed incident status transition.
func RecordTransition(toStatus string) {
	IncidentTransitions.WithLabelValues(toStatus).Inc()
}

// RecordConflict records a transition rejected by a concurrency check.
func RecordConflict(operation string) {
	TransitionConflicts.WithLabelValues(operation).Inc()
}
