package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ── HTTP request metrics (RED method) ──────────────────────────────────

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portfolio_exporter",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status_code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portfolio_exporter",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "portfolio_exporter",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being processed.",
	})
)

// ── Collection metrics ─────────────────────────────────────────────────

var (
	CollectTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portfolio_exporter",
		Subsystem: "collect",
		Name:      "total",
		Help:      "Total number of collection runs per source.",
	}, []string{"source", "status"})

	CollectDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "portfolio_exporter",
		Subsystem: "collect",
		Name:      "duration_seconds",
		Help:      "Duration of a collection run per source in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"source"})

	SubSourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portfolio_exporter",
		Subsystem: "collect",
		Name:      "sub_source_failures_total",
		Help:      "Per-app fetch failures contained within a collection run.",
	}, []string{"source"})
)
