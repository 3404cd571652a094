package retry

import "errors"

// Error classes for provider and backend failures. RateLimited and Transient
// are retryable; NotFound fails fast. BackendUnavailable marks a cache or
// persistence outage that the resolver degrades to a tier miss.
var (
	ErrNotFound           = errors.New("price data not found")
	ErrRateLimited        = errors.New("rate limited by provider")
	ErrTransient          = errors.New("transient provider failure")
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// IsRetryable reports whether the error should be retried with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient)
}

// IsNotFound reports whether the error is a definitive miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
