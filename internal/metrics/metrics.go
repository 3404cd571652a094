package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_price_http_requests_total",
			Help: "The total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "token_price_http_request_duration_seconds",
			Help:    "The HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Resolution metrics
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_price_resolutions_total",
			Help: "The total number of price resolutions by source tier",
		},
		[]string{"source"},
	)

	ResolutionNotFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "token_price_resolution_not_found_total",
			Help: "The total number of resolutions that exhausted every tier",
		},
	)

	ResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "token_price_resolution_duration_seconds",
			Help:    "The price resolution latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	TierErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_price_tier_errors_total",
			Help: "The total number of resolution tier errors degraded to misses",
		},
		[]string{"tier"},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_price_cache_hits_total",
			Help: "The total number of cache hits",
		},
		[]string{"cache_backend"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_price_cache_misses_total",
			Help: "The total number of cache misses",
		},
		[]string{"cache_backend"},
	)

	CacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "token_price_cache_operation_duration_seconds",
			Help:    "The cache operation latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"cache_backend", "operation"},
	)

	// Provider metrics
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_price_provider_requests_total",
			Help: "The total number of provider API requests",
		},
		[]string{"operation", "status_code"},
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "token_price_provider_request_duration_seconds",
			Help:    "The provider API request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	ProviderRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_price_provider_retries_total",
			Help: "The total number of provider request retries",
		},
		[]string{"operation"},
	)

	ProviderRateLimitDrops = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_price_provider_rate_limit_drops_total",
			Help: "The total number of provider requests rejected with a rate limit",
		},
		[]string{"operation"},
	)

	// Backfill job metrics
	JobTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_price_job_transitions_total",
			Help: "The total number of backfill job state transitions",
		},
		[]string{"status"},
	)

	JobBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "token_price_job_batches_total",
			Help: "The total number of backfill batches processed",
		},
	)

	JobPointsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "token_price_job_points_persisted_total",
			Help: "The total number of price points persisted by backfill jobs",
		},
	)

	// Service info
	ServiceInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "token_price_service_info",
			Help: "Information about the token price service",
		},
		[]string{"version", "cache_backend", "store_backend"},
	)
)

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordResolution records a successful resolution tagged with its source tier
func RecordResolution(source string, duration time.Duration) {
	ResolutionsTotal.WithLabelValues(source).Inc()
	ResolutionDuration.Observe(duration.Seconds())
}

// RecordResolutionNotFound records a resolution that found no data at any tier
func RecordResolutionNotFound(duration time.Duration) {
	ResolutionNotFound.Inc()
	ResolutionDuration.Observe(duration.Seconds())
}

// RecordTierError records a tier failure that was degraded to a miss
func RecordTierError(tier string) {
	TierErrors.WithLabelValues(tier).Inc()
}

// RecordCacheHit records a cache hit
func RecordCacheHit(backend string) {
	CacheHitsTotal.WithLabelValues(backend).Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss(backend string) {
	CacheMissesTotal.WithLabelValues(backend).Inc()
}

// RecordCacheOperation records cache operation duration
func RecordCacheOperation(backend, operation string, duration time.Duration) {
	CacheOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordProviderRequest records provider API request metrics
func RecordProviderRequest(operation string, statusCode int, duration time.Duration) {
	ProviderRequestsTotal.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
	ProviderRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordProviderRetry records a provider request retry
func RecordProviderRetry(operation string) {
	ProviderRetries.WithLabelValues(operation).Inc()
}

// RecordProviderRateLimitDrop records a provider rate limit rejection
func RecordProviderRateLimitDrop(operation string) {
	ProviderRateLimitDrops.WithLabelValues(operation).Inc()
}

// RecordJobTransition records a backfill job state transition
func RecordJobTransition(status string) {
	JobTransitionsTotal.WithLabelValues(status).Inc()
}

// RecordJobBatch records one processed backfill batch and its persisted points
func RecordJobBatch(pointsPersisted int) {
	JobBatchesTotal.Inc()
	JobPointsPersisted.Add(float64(pointsPersisted))
}

// SetServiceInfo sets service information
func SetServiceInfo(version, cacheBackend, storeBackend string) {
	ServiceInfo.WithLabelValues(version, cacheBackend, storeBackend).Set(1)
}
