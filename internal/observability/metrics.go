// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Cache metrics
	CacheHits          *prometheus.CounterVec
	CacheMisses        *prometheus.CounterVec
	CacheFetchFailures *prometheus.CounterVec
	CacheEntries       *prometheus.GaugeVec

	// Feature extraction metrics
	ExtractionsTotal    prometheus.Counter
	ExtractionLatency   prometheus.Histogram
	ExtractorSoftFails  *prometheus.CounterVec
	ExtractorLatency    *prometheus.HistogramVec

	// Deployment gate metrics
	GateRunsTotal     *prometheus.CounterVec
	CheckFailures     *prometheus.CounterVec
	ModelLoadDuration prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Quote feed metrics
	QuotesReceived prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "quant_model_lab"
	}

	return &Metrics{
		// Cache metrics
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits by cache name",
		}, []string{"cache"}),
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses by cache name",
		}, []string{"cache"}),
		CacheFetchFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "fetch_failures_total",
			Help:      "Total number of fetches that exhausted retries",
		}, []string{"cache"}),
		CacheEntries: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Current number of cache entries by cache name",
		}, []string{"cache"}),

		// Feature extraction metrics
		ExtractionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "features",
			Name:      "extractions_total",
			Help:      "Total number of feature vector extractions",
		}),
		ExtractionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "features",
			Name:      "extraction_latency_seconds",
			Help:      "Full vector extraction latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		ExtractorSoftFails: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "features",
			Name:      "extractor_soft_failures_total",
			Help:      "Total number of extractors degraded to the neutral default",
		}, []string{"feature", "reason"}),
		ExtractorLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "features",
			Name:      "extractor_latency_seconds",
			Help:      "Per-extractor latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"feature"}),

		// Deployment gate metrics
		GateRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "runs_total",
			Help:      "Total number of deployment gate runs by result",
		}, []string{"result"}),
		CheckFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "check_failures_total",
			Help:      "Total number of failed validation checks by check",
		}, []string{"check"}),
		ModelLoadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gate",
			Name:      "model_load_duration_seconds",
			Help:      "Measured model load callback duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Quote feed metrics
		QuotesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quotes",
			Name:      "received_total",
			Help:      "Total number of streamed quotes received",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit(cache string) {
	DefaultMetrics.CacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss(cache string) {
	DefaultMetrics.CacheMisses.WithLabelValues(cache).Inc()
}

// RecordCacheFetchFailure records a fetch that exhausted retries.
func RecordCacheFetchFailure(cache string) {
	DefaultMetrics.CacheFetchFailures.WithLabelValues(cache).Inc()
}

// UpdateCacheEntries updates the entry count gauge for a cache.
func UpdateCacheEntries(cache string, n int) {
	DefaultMetrics.CacheEntries.WithLabelValues(cache).Set(float64(n))
}

// RecordExtraction records one full vector extraction.
func RecordExtraction(seconds float64) {
	DefaultMetrics.ExtractionsTotal.Inc()
	DefaultMetrics.ExtractionLatency.Observe(seconds)
}

// RecordExtractorSoftFail records an extractor degraded to the default value.
func RecordExtractorSoftFail(feature, reason string) {
	DefaultMetrics.ExtractorSoftFails.WithLabelValues(feature, reason).Inc()
}

// RecordExtractorLatency records one extractor invocation.
func RecordExtractorLatency(feature string, seconds float64) {
	DefaultMetrics.ExtractorLatency.WithLabelValues(feature).Observe(seconds)
}

// RecordGateRun records a deployment gate run.
func RecordGateRun(passed bool) {
	result := "pass"
	if !passed {
		result = "fail"
	}
	DefaultMetrics.GateRunsTotal.WithLabelValues(result).Inc()
}

// RecordCheckFailure records a failed validation check.
func RecordCheckFailure(check string) {
	DefaultMetrics.CheckFailures.WithLabelValues(check).Inc()
}

// RecordModelLoad records a measured model load duration.
func RecordModelLoad(seconds float64) {
	DefaultMetrics.ModelLoadDuration.Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordQuoteReceived increments the streamed quote counter.
func RecordQuoteReceived() {
	DefaultMetrics.QuotesReceived.Inc()
}
