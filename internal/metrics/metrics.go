package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request metrics plus workflow counters. Registered on the default registry
// and served from /metrics.
var (
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "skylane_http_request_duration_seconds",
		Help:    "HTTP request latency by method, route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skylane_checkin_sessions_started_total",
		Help: "Check-in sessions opened.",
	})

	SessionsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skylane_checkin_sessions_completed_total",
		Help: "Check-in sessions that reached confirmation.",
	})

	PaymentFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skylane_payment_failures_total",
		Help: "Provider-reported payment failures.",
	})

	SeatConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skylane_seat_conflicts_total",
		Help: "Seat persistences refused because another session held the seat.",
	})

	SearchCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "skylane_search_cache_requests_total",
		Help: "Flight search cache lookups by outcome.",
	}, []string{"outcome"})
)
