package cache

import (
	"context"
	"time"

	"token-price-service/internal/metrics"
	"token-price-service/internal/model"
)

// InstrumentedCache wraps any Cache implementation with metrics
type InstrumentedCache struct {
	cache   Cache
	backend string
}

// NewInstrumentedCache creates a new instrumented cache wrapper
func NewInstrumentedCache(cache Cache, backend string) *InstrumentedCache {
	return &InstrumentedCache{
		cache:   cache,
		backend: backend,
	}
}

// Get retrieves a cached resolution, recording hit/miss and latency
func (ic *InstrumentedCache) Get(ctx context.Context, key string) (model.Resolution, bool, error) {
	start := time.Now()
	defer func() {
		metrics.RecordCacheOperation(ic.backend, "get", time.Since(start))
	}()

	value, found, err := ic.cache.Get(ctx, key)

	if err == nil {
		if found {
			metrics.RecordCacheHit(ic.backend)
		} else {
			metrics.RecordCacheMiss(ic.backend)
		}
	}

	return value, found, err
}

// Set stores a resolution, recording operation latency
func (ic *InstrumentedCache) Set(ctx context.Context, key string, value model.Resolution, ttl time.Duration) error {
	start := time.Now()
	defer func() {
		metrics.RecordCacheOperation(ic.backend, "set", time.Since(start))
	}()

	return ic.cache.Set(ctx, key, value, ttl)
}

// Connected reports whether the wrapped backend is reachable
func (ic *InstrumentedCache) Connected(ctx context.Context) bool {
	return ic.cache.Connected(ctx)
}

// Close closes the wrapped cache
func (ic *InstrumentedCache) Close() error {
	return ic.cache.Close()
}
