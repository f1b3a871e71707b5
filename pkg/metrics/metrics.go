package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edunext_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// ActiveSessions tracks live access tokens (not expired/revoked).
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "edunext_active_sessions",
			Help: "Number of live access tokens",
		},
	)

	// SessionEvictions counts tokens removed to enforce the per-user cap.
	SessionEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edunext_session_evictions_total",
			Help: "Total number of access tokens evicted at the session cap",
		},
	)

	// BadgeGrants counts badges awarded, labelled by badge kind.
	BadgeGrants = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edunext_badge_grants_total",
			Help: "Total number of badges granted",
		},
		[]string{"kind"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edunext_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
