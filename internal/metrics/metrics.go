package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	CacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobassist_cache_requests_total",
			Help: "Total number of cache lookups by result.",
		},
		[]string{"result"},
	)

	CacheEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobassist_cache_evictions_total",
			Help: "Total number of cache entries removed by reason.",
		},
		[]string{"reason"},
	)

	CacheWriteFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobassist_cache_write_failures_total",
			Help: "Total number of cache writes abandoned by reason.",
		},
		[]string{"reason"},
	)

	CacheCleanupDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobassist_cache_cleanup_duration_seconds",
			Help:    "Duration of cache cleanup passes in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"tier"},
	)

	CacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobassist_cache_entries",
			Help: "Number of entries tracked by the cache index.",
		},
	)

	CacheStorageUsageRatio = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobassist_cache_storage_usage_ratio",
			Help: "Bytes in use divided by the store quota.",
		},
	)

	AnalyzerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobassist_analyzer_requests_total",
			Help: "Total number of job analyses by outcome.",
		},
		[]string{"outcome"},
	)

	AnalyzerRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobassist_analyzer_request_duration_seconds",
			Help:    "Duration of remote analyzer calls in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"endpoint", "status"},
	)
)

// All lists every jobassist collector.
var All = []prometheus.Collector{
	CacheRequestsTotal,
	CacheEvictionsTotal,
	CacheWriteFailuresTotal,
	CacheCleanupDurationSeconds,
	CacheEntries,
	CacheStorageUsageRatio,
	AnalyzerRequestsTotal,
	AnalyzerRequestDurationSeconds,
}

var registerOnce sync.Once

// Register registers all jobassist metrics with the default Prometheus
// registry. Repeated calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(All...)
	})
}
