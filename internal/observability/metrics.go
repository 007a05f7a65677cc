// Package observability holds the Prometheus collectors of the service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "carpool"

var (
	SearchesTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "searches_total", Help: "Total ride searches"})
	SearchResults = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_results",
		Help:      "Rides returned per search",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})
	MatchReasonsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "match_reasons_total", Help: "Location matches by the rule that produced them"},
		[]string{"side", "reason"},
	)

	BookingOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "booking_operations_total", Help: "Seat state machine operations by outcome"},
		[]string{"operation", "outcome"},
	)
	RideLockWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ride_lock_wait_seconds",
		Help:      "Time spent acquiring the ride lock",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
	})

	ChatMembershipChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "chat_membership_changes_total", Help: "Chat membership changes"},
		[]string{"change"},
	)

	EventsPublishFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "events_publish_failures_total", Help: "Domain events that could not be published"},
		[]string{"type"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
