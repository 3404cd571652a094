package ratelimit

import (
	"sync"
	"time"

	"token-price-service/internal/logger"
)

// TokenBucket implements a token bucket rate limiter. The provider client
// consumes one token per outbound request so bursts stay within the external
// API's allowance instead of bouncing off its 429s.
type TokenBucket struct {
	capacity     int64
	tokens       int64
	refillRate   int64 // tokens added per refill period
	refillPeriod time.Duration
	lastRefill   time.Time
	mu           sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter, starting full
func NewTokenBucket(capacity int64, refillRate int64, refillPeriod time.Duration) *TokenBucket {
	tb := &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillRate:   refillRate,
		refillPeriod: refillPeriod,
		lastRefill:   time.Now(),
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"capacity":      capacity,
		"refill_rate":   refillRate,
		"refill_period": refillPeriod.String(),
	}).Info("Token bucket rate limiter initialized")

	return tb
}

// Allow tries to consume one token. It returns false when the bucket is empty.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"capacity": tb.capacity,
	}).Debug("Token denied by rate limiter - bucket empty")
	return false
}

// refill adds tokens based on elapsed time. Must be called with mu held.
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)

	if elapsed < tb.refillPeriod {
		return
	}

	intervals := elapsed / tb.refillPeriod
	tokensToAdd := int64(intervals) * tb.refillRate

	if tokensToAdd > 0 {
		tb.tokens += tokensToAdd
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastRefill = now
	}
}

// Tokens returns the number of tokens currently available
func (tb *TokenBucket) Tokens() int64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return tb.tokens
}

// Capacity returns the maximum number of tokens the bucket holds
func (tb *TokenBucket) Capacity() int64 {
	return tb.capacity
}
