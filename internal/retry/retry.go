package retry

import (
	"context"
	"errors"
	"time"

	retrygo "github.com/avast/retry-go/v4"

	"token-price-service/internal/logger"
	"token-price-service/internal/metrics"
)

const (
	// MaxAttempts is the total number of tries per provider call.
	MaxAttempts = 3
	// BaseBackoff is the wait before the first retry; each subsequent wait doubles.
	BaseBackoff = 1000 * time.Millisecond
	// MaxBackoff caps any single wait between attempts.
	MaxBackoff = 5000 * time.Millisecond
)

// Do runs op with the standard provider retry policy: up to MaxAttempts
// attempts, exponential backoff starting at BaseBackoff and capped at
// MaxBackoff per wait. RateLimited and Transient errors are retried;
// everything else, including NotFound, fails fast.
func Do(ctx context.Context, operation string, op func() error) error {
	err := retrygo.Do(
		op,
		retrygo.Attempts(MaxAttempts),
		retrygo.Delay(BaseBackoff),
		retrygo.MaxDelay(MaxBackoff),
		retrygo.DelayType(retrygo.BackOffDelay),
		retrygo.RetryIf(IsRetryable),
		retrygo.Context(ctx),
		retrygo.LastErrorOnly(true),
		retrygo.OnRetry(func(n uint, err error) {
			metrics.RecordProviderRetry(operation)
			if errors.Is(err, ErrRateLimited) {
				metrics.RecordProviderRateLimitDrop(operation)
			}

			logger.GetLogger().WithFields(map[string]interface{}{
				"operation":    operation,
				"attempt":      n + 1,
				"max_attempts": MaxAttempts,
				"error":        err.Error(),
				"rate_limited": errors.Is(err, ErrRateLimited),
			}).Warn("Provider call retry attempt")
		}),
	)
	return err
}
