// Package metrics exposes Prometheus counters for the marketplace core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_latency_seconds",
			Help:    "Latency of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// Listing lifecycle
	ListingsModerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listings_moderated_total",
			Help: "Total moderation decisions",
		},
		[]string{"decision"}, // approved|rejected
	)
	ListingViews = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "listing_views_total",
			Help: "Total deduplicated listing views granted",
		},
	)

	// Payment lifecycle
	PaymentsInitiated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_initiated_total",
			Help: "Total payment initiations",
		},
		[]string{"provider"},
	)
	PaymentsSettled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_settled_total",
			Help: "Total payments reaching a terminal state",
		},
		[]string{"status"}, // confirmed|cancelled|failed|expired
	)

	// Background sweeps
	SweepExpiredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_expired_total",
			Help: "Total entities transitioned to EXPIRED by sweeps",
		},
		[]string{"entity"}, // listing|payment
	)
)

// Handler serves the /metrics endpoint.
var Handler = promhttp.Handler

func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestLatency)
	prometheus.MustRegister(ListingsModerated)
	prometheus.MustRegister(ListingViews)
	prometheus.MustRegister(PaymentsInitiated)
	prometheus.MustRegister(PaymentsSettled)
	prometheus.MustRegister(SweepExpiredTotal)
}
