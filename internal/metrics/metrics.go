// Package metrics declares the Prometheus series exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	subsystemCache   = "cache"
	subsystemBacking = "backing_store"
	subsystemBreaker = "circuit_breaker"
	subsystemAPI     = "api"
)

var (
	requestLabels = []string{"endpoint", "method", "status"}
	latencyAPI    = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5}
	latencyCache  = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 1}
	latencyStore  = []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5}
)

// Cache medium, as seen through the Store. result is one of ok, hit, miss, error, skipped.
var (
	CacheOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystemCache, Name: "operations_total",
		Help: "Cache medium operations by outcome.",
	}, []string{"op", "result"})

	CacheOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Subsystem: subsystemCache, Name: "operation_duration_seconds",
		Help: "Latency of cache medium operations.", Buckets: latencyCache,
	}, []string{"op"})

	CacheHealthy = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: subsystemCache, Name: "healthy",
		Help: "1 when the last health check of the cache medium succeeded.",
	})

	CacheCorruptEntries = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystemCache, Name: "corrupt_entries_total",
		Help: "Cached payloads that failed to decode and were dropped.",
	})
)

// Read-through lookups and invalidation. Lookup result is hit, miss or fallback.
var (
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystemCache, Name: "lookups_total",
		Help: "Read-through lookups by key category and outcome.",
	}, []string{"category", "result"})

	CacheInvalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystemCache, Name: "invalidations_total",
		Help: "Invalidation requests by scope (product, user, all).",
	}, []string{"scope"})
)

// Sampled from the medium by the Collector.
var (
	CacheItems = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: subsystemCache, Name: "items",
		Help: "Approximate number of cached entries.",
	})

	CacheSizeBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: subsystemCache, Name: "size_bytes",
		Help: "Approximate bytes held by the cache medium.",
	})

	CacheEvictions = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: subsystemCache, Name: "evictions",
		Help: "Evictions reported by the cache medium since it started.",
	})

	MetricsCollectionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "metrics_collection_errors_total",
		Help: "Failed metric samples by collector.",
	}, []string{"collector"})
)

// Product catalog. status is success, not_found, error or circuit_open.
var (
	BackingStoreRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystemBacking, Name: "requests_total",
		Help: "Catalog reads by operation and status.",
	}, []string{"operation", "status"})

	BackingStoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Subsystem: subsystemBacking, Name: "duration_seconds",
		Help: "Latency of catalog reads including retries.", Buckets: latencyStore,
	}, []string{"operation"})

	BackingStoreRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystemBacking, Name: "retries_total",
		Help: "Catalog read retries.",
	}, []string{"operation"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: subsystemBreaker, Name: "state",
		Help: "Breaker state: 0 closed, 1 open, 2 half-open.",
	}, []string{"component"})

	CircuitBreakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystemBreaker, Name: "trips_total",
		Help: "Transitions into the open state.",
	}, []string{"component"})
)

// HTTP surface, labelled by route template.
var (
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystemAPI, Name: "requests_total",
		Help: "HTTP requests served.",
	}, requestLabels)

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Subsystem: subsystemAPI, Name: "request_duration_seconds",
		Help: "HTTP request latency.", Buckets: latencyAPI,
	}, requestLabels)
)
