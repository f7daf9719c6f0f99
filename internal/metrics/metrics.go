package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pass outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeFallback   = "fallback"
	OutcomeError      = "error"
	OutcomeSuperseded = "superseded"
)

var (
	Passes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagedpreview_passes_total",
			Help: "Total number of pagination passes",
		},
		[]string{"backend", "outcome"},
	)

	MeasuredBlocks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagedpreview_measured_blocks_total",
			Help: "Total number of blocks measured",
		},
		[]string{"backend"},
	)

	PassDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pagedpreview_pass_duration_seconds",
			Help:    "Pagination pass duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"backend"},
	)

	PageCount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pagedpreview_pages",
			Help:    "Number of pages per completed pass",
			Buckets: []float64{1, 2, 3, 5, 10, 20, 50, 100},
		},
	)

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pagedpreview_session_cache_hits_total",
			Help: "Session updates answered without re-pagination",
		},
	)

	RequestCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pagedpreview_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
)
