// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpdatesHandled counts Telegram updates by kind (message, callback)
	UpdatesHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dotastats",
		Name:      "updates_handled_total",
		Help:      "Telegram updates processed, by kind.",
	}, []string{"kind"})

	// UpstreamErrors counts failed stats and vanity API calls by endpoint
	UpstreamErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dotastats",
		Name:      "upstream_errors_total",
		Help:      "Failed calls to external APIs, by endpoint.",
	}, []string{"endpoint"})

	// UpstreamDuration observes external API latency
	UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dotastats",
		Name:      "upstream_request_duration_seconds",
		Help:      "Latency of external API calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"api"})

	// StorageErrors counts failed storage operations
	StorageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dotastats",
		Name:      "storage_errors_total",
		Help:      "Failed storage operations, by operation.",
	}, []string{"operation"})

	// ProfilesBound counts successful profile bindings
	ProfilesBound = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dotastats",
		Name:      "profiles_bound_total",
		Help:      "Successful profile bindings.",
	})
)
