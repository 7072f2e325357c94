package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	IdentitiesReconciled = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "shulebook", Name: "sync_identities_total", Help: "Seed users processed by outcome (created, updated, skipped, failed)."},
		[]string{"outcome"},
	)
	BatchesCommitted = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "shulebook", Name: "sync_batches_committed_total", Help: "Profile batches committed successfully."},
	)
	BatchesFailed = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "shulebook", Name: "sync_batches_failed_total", Help: "Profile batches whose commit failed."},
	)
	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Namespace: "shulebook", Name: "sync_run_duration_seconds", Help: "Wall-clock duration of a full synchronization run.", Buckets: prometheus.DefBuckets},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "shulebook", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "shulebook", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(IdentitiesReconciled)
	reg.MustRegister(BatchesCommitted)
	reg.MustRegister(BatchesFailed)
	reg.MustRegister(RunDuration)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
