package gamedb

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	namespace = "gamedb"
	subsystem = "commit"

	commitJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "jobs_total",
			Help:      "Total number of commit jobs by outcome (applied, failed, dropped)",
		},
		[]string{"backend", "outcome"},
	)

	commitOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "operations_total",
			Help:      "Total number of record operations applied to the backend",
		},
		[]string{"backend", "op"},
	)

	commitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duration_seconds",
			Help:      "Duration of applying a commit job in seconds",
		},
		[]string{"backend"},
	)

	commitQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queue_depth",
			Help:      "Number of submitted commit jobs not yet applied",
		},
		[]string{"backend"},
	)

	commitBackpressureTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "backpressure_total",
			Help:      "Total number of commits that blocked waiting for the queue to drain",
		},
		[]string{"backend"},
	)

	commitFaultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "faults_total",
			Help:      "Total number of backend faults that stopped the commit pipeline",
		},
		[]string{"backend"},
	)
)

func recordJob(backend, outcome string) {
	commitJobsTotal.WithLabelValues(backend, outcome).Inc()
}

func recordOperations(backend, op string, count int) {
	if count > 0 {
		commitOperationsTotal.WithLabelValues(backend, op).Add(float64(count))
	}
}

func recordCommitDuration(backend string, duration time.Duration) {
	commitDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

func recordQueueDepth(backend string, depth int) {
	commitQueueDepth.WithLabelValues(backend).Set(float64(depth))
}

func recordBackpressure(backend string) {
	commitBackpressureTotal.WithLabelValues(backend).Inc()
}

func recordFault(backend string) {
	commitFaultsTotal.WithLabelValues(backend).Inc()
}
