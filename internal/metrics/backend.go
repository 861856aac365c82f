package metrics

import "github.com/prometheus/client_golang/prometheus"

// Backend fetch and resolution metrics.
var (
	BackendFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "factserve",
			Name:      "backend_fetch_duration_seconds",
			Help:      "Backend fetch duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service", "status"},
	)

	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "factserve",
			Name:      "resolutions_total",
			Help:      "Fact resolutions by outcome",
		},
		[]string{"service", "outcome"}, // "found" / "empty" / "invalid_pattern" / "backend_error"
	)

	RecordCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "factserve",
			Name:      "record_cache_total",
			Help:      "Record cache hits and misses",
		},
		[]string{"service", "result"}, // "hit" / "miss"
	)
)

// RegisterBackendMetrics registers backend metrics explicitly (no init()).
func RegisterBackendMetrics() {
	prometheus.MustRegister(BackendFetchDuration)
	prometheus.MustRegister(ResolutionsTotal)
	prometheus.MustRegister(RecordCacheTotal)
}
