// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LookupsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solon_lookups_completed_total",
			Help: "Total number of lookups completed",
		},
		[]string{"court"},
	)

	LookupsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solon_lookups_failed_total",
			Help: "Total number of lookups failed",
		},
		[]string{"court", "error_code"},
	)

	LookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solon_lookup_duration_seconds",
			Help:    "Duration of a full scrape-and-normalize pass in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 60, 90, 120},
		},
		[]string{"court"},
	)

	SnapshotCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "solon_snapshot_cache_hits_total",
			Help: "Lookups served from a fresh snapshot without scraping",
		},
	)

	FieldRepairsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solon_field_repairs_total",
			Help: "Normalization repairs applied per heuristic",
		},
		[]string{"heuristic"},
	)
)
