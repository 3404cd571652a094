package cache

import (
	"context"
	"sync"
	"time"

	"token-price-service/internal/model"
)

type memoryEntry struct {
	value     model.Resolution
	expiresAt time.Time
}

// MemoryCache is an in-process cache with time-based expiry. Used for
// development and tests; production deployments run the Redis backend.
type MemoryCache struct {
	mutex   sync.RWMutex
	entries map[string]memoryEntry
	done    chan struct{}
	once    sync.Once
}

// NewMemoryCache creates a new in-memory cache instance and starts its
// background eviction loop.
func NewMemoryCache() *MemoryCache {
	mc := &MemoryCache{
		entries: make(map[string]memoryEntry),
		done:    make(chan struct{}),
	}
	go mc.janitor(time.Minute)
	return mc
}

// Get retrieves a cached resolution if it exists and is still valid
func (mc *MemoryCache) Get(_ context.Context, key string) (model.Resolution, bool, error) {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()

	entry, exists := mc.entries[key]
	if !exists || time.Now().After(entry.expiresAt) {
		return model.Resolution{}, false, nil
	}

	return entry.value, true, nil
}

// Set stores a resolution under the identity key with the given TTL
func (mc *MemoryCache) Set(_ context.Context, key string, value model.Resolution, ttl time.Duration) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	mc.entries[key] = memoryEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Connected always reports true for the in-process backend
func (mc *MemoryCache) Connected(_ context.Context) bool {
	return true
}

// Size returns the number of entries currently held, expired or not
func (mc *MemoryCache) Size() int {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()
	return len(mc.entries)
}

// Close stops the eviction loop
func (mc *MemoryCache) Close() error {
	mc.once.Do(func() { close(mc.done) })
	return nil
}

// janitor periodically evicts expired entries so the map does not grow
// unbounded between reads.
func (mc *MemoryCache) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-mc.done:
			return
		case <-ticker.C:
			now := time.Now()
			mc.mutex.Lock()
			for key, entry := range mc.entries {
				if now.After(entry.expiresAt) {
					delete(mc.entries, key)
				}
			}
			mc.mutex.Unlock()
		}
	}
}
