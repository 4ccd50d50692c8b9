package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal counts handled requests by route template and status.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "darezone_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	// APIRequestDuration tracks request latency by route template.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "darezone_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// APIRateLimitHits counts rate limiter rejections.
	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "darezone_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// CheckinsTotal counts check-in attempts by outcome (created, duplicate, rejected, error).
	CheckinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "darezone_checkins_total",
			Help: "Total number of check-in attempts",
		},
		[]string{"outcome"},
	)

	// HitchesSentTotal counts reminder notifications recorded.
	HitchesSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "darezone_hitches_sent_total",
			Help: "Total number of hitch reminders recorded",
		},
	)

	// PushDeliveriesTotal counts push attempts by outcome (sent, failed, skipped, circuit_open).
	PushDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "darezone_push_deliveries_total",
			Help: "Total number of push delivery attempts",
		},
		[]string{"outcome"},
	)

	// CircuitBreakerState reports breaker state per name (0 closed, 1 half-open, 2 open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "darezone_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)
