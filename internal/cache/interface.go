package cache

import (
	"context"
	"time"

	"token-price-service/internal/model"
)

// DefaultTTL is how long a resolved price stays cached.
const DefaultTTL = 5 * time.Minute

// Cache is a key-value mirror of resolved prices with per-entry TTL. It is
// never authoritative: a miss means "not cached", not "price does not exist".
type Cache interface {
	// Get retrieves a cached resolution if it exists and is still valid
	Get(ctx context.Context, key string) (model.Resolution, bool, error)

	// Set stores a resolution under the identity key with the given TTL
	Set(ctx context.Context, key string, value model.Resolution, ttl time.Duration) error

	// Connected reports whether the backing store is reachable
	Connected(ctx context.Context) bool

	// Close closes any connections and cleans up resources
	Close() error
}

// Config holds configuration for cache implementations
type Config struct {
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}
