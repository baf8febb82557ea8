// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector aggregates the Prometheus metrics of the extraction
// pipeline: translation, compilation, provider calls, and caches.
type Collector struct {
	translationsTotal *prometheus.CounterVec

	compilesTotal   *prometheus.CounterVec
	compileDuration prometheus.Histogram

	extractionsTotal   *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec
	extractionAttempts prometheus.Histogram

	providerRequestsTotal   *prometheus.CounterVec
	providerRequestDuration *prometheus.HistogramVec
	tokensUsed              *prometheus.CounterVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector creates a metrics collector under the given namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.translationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "translations_total",
			Help:      "Total number of schema translations",
		},
		[]string{"status"},
	)

	c.compilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compiles_total",
			Help:      "Total number of compiler invocations by outcome",
		},
		[]string{"result"},
	)

	c.compileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compile_duration_seconds",
			Help:      "External compiler invocation duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	c.extractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extractions_total",
			Help:      "Total number of structured extractions",
		},
		[]string{"model", "status"},
	)

	c.extractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "End-to-end extraction duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"model"},
	)

	c.extractionAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_attempts",
			Help:      "Generation attempts consumed per extraction",
			Buckets:   []float64{1, 2, 3},
		},
	)

	c.providerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of provider requests",
		},
		[]string{"provider", "model", "status"},
	)

	c.providerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Provider request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	c.tokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_used_total",
			Help:      "Total number of tokens consumed",
		},
		[]string{"model", "type"},
	)

	c.cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache"},
	)

	c.cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache"},
	)

	return c
}

// RecordTranslation records one schema translation outcome.
func (c *Collector) RecordTranslation(status string) {
	c.translationsTotal.WithLabelValues(status).Inc()
}

// RecordCompile records one compiler invocation.
func (c *Collector) RecordCompile(result string, duration time.Duration) {
	c.compilesTotal.WithLabelValues(result).Inc()
	if result != "cache_hit" {
		c.compileDuration.Observe(duration.Seconds())
	}
}

// RecordExtraction records one completed extraction.
func (c *Collector) RecordExtraction(model, status string, attempts int, duration time.Duration) {
	c.extractionsTotal.WithLabelValues(model, status).Inc()
	c.extractionDuration.WithLabelValues(model).Observe(duration.Seconds())
	if attempts > 0 {
		c.extractionAttempts.Observe(float64(attempts))
	}
}

// RecordProviderRequest records one provider round-trip.
func (c *Collector) RecordProviderRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int) {
	c.providerRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.providerRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	if promptTokens > 0 {
		c.tokensUsed.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		c.tokensUsed.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}

// RecordCacheHit records a hit on the named cache.
func (c *Collector) RecordCacheHit(cache string) {
	c.cacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a miss on the named cache.
func (c *Collector) RecordCacheMiss(cache string) {
	c.cacheMisses.WithLabelValues(cache).Inc()
}
