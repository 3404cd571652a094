package cache

import (
	"fmt"
	"strings"
)

// NewCacheFromConfig creates a cache instance based on configuration
func NewCacheFromConfig(backend string, config Config) (Cache, error) {
	var cache Cache
	var err error

	switch strings.ToLower(backend) {
	case "memory", "":
		cache = NewMemoryCache()
	case "redis":
		cache, err = NewRedisCache(config)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", backend)
	}

	// Wrap with instrumented cache for metrics
	return NewInstrumentedCache(cache, strings.ToLower(backend)), nil
}
