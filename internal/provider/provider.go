package provider

import (
	"context"

	"token-price-service/internal/model"
)

// Provider is an external historical price source. Implementations retry
// RateLimited and Transient failures internally with the standard backoff
// policy; NotFound is returned as-is.
type Provider interface {
	// GetPrice returns the price observation closest to timestamp
	GetPrice(ctx context.Context, tokenAddress, network string, timestamp int64) (model.PricePoint, error)

	// GetCreationTimestamp returns the unix time of the token's earliest
	// known price data
	GetCreationTimestamp(ctx context.Context, tokenAddress, network string) (int64, error)

	// GetPricesBatch resolves many timestamps in one call. The result has one
	// slot per input timestamp, in input order; an unresolved timestamp
	// yields a nil slot, never an error.
	GetPricesBatch(ctx context.Context, tokenAddress, network string, timestamps []int64) ([]*model.PricePoint, error)
}
