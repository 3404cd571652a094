package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"token-price-service/internal/model"
)

const opTimeout = 5 * time.Second

// RedisCache stores resolved prices in Redis with native key expiry
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a new Redis-backed cache instance
func NewRedisCache(config Config) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{
		client: rdb,
		prefix: "price_hist:",
	}, nil
}

// Get retrieves a cached resolution if it exists and is still valid
func (rc *RedisCache) Get(ctx context.Context, key string) (model.Resolution, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	val, err := rc.client.Get(ctx, rc.prefix+key).Result()
	if err == redis.Nil {
		return model.Resolution{}, false, nil // Key doesn't exist
	}
	if err != nil {
		return model.Resolution{}, false, fmt.Errorf("failed to get cached price: %w", err)
	}

	var res model.Resolution
	if err := json.Unmarshal([]byte(val), &res); err != nil {
		return model.Resolution{}, false, fmt.Errorf("failed to unmarshal cached price: %w", err)
	}

	return res, true, nil
}

// Set stores a resolution under the identity key with the given TTL
func (rc *RedisCache) Set(ctx context.Context, key string, value model.Resolution, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cached price: %w", err)
	}

	return rc.client.Set(ctx, rc.prefix+key, string(data), ttl).Err()
}

// Connected reports whether Redis responds to a ping
func (rc *RedisCache) Connected(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return rc.client.Ping(ctx).Err() == nil
}

// Close closes the Redis connection
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
