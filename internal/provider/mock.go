package provider

import (
	"context"
	"math"
	"time"

	"token-price-service/internal/logger"
	"token-price-service/internal/model"
	"token-price-service/internal/retry"
)

// MockProvider implements Provider for development and testing. It generates
// deterministic but plausible-looking prices so the rest of the stack can run
// without an API key.
type MockProvider struct {
	basePrice float64
	ageDays   int64
}

// NewMockProvider creates a mock provider whose tokens all "launched"
// ageDays ago at basePrice.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		basePrice: 1.0,
		ageDays:   90,
	}
}

// priceAt derives a deterministic price from the identity key, oscillating
// around the base so interpolation paths see realistic neighbor spreads.
func (m *MockProvider) priceAt(tokenAddress string, timestamp int64) float64 {
	seed := float64(len(tokenAddress)%7 + 1)
	wave := math.Sin(float64(timestamp/day)) * 0.1
	return m.basePrice*seed + wave
}

// GetPrice returns a deterministic price for any timestamp after creation
func (m *MockProvider) GetPrice(ctx context.Context, tokenAddress, network string, timestamp int64) (model.PricePoint, error) {
	created, _ := m.GetCreationTimestamp(ctx, tokenAddress, network)
	if timestamp < created {
		return model.PricePoint{}, retry.ErrNotFound
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"token":     tokenAddress,
		"network":   network,
		"timestamp": timestamp,
	}).Debug("MockProvider: generated price")

	return model.PricePoint{
		TokenAddress: tokenAddress,
		Network:      network,
		Timestamp:    timestamp,
		Price:        m.priceAt(tokenAddress, timestamp),
	}, nil
}

// GetCreationTimestamp pretends every token launched a fixed number of days ago
func (m *MockProvider) GetCreationTimestamp(_ context.Context, _, _ string) (int64, error) {
	return time.Now().Unix() - m.ageDays*day, nil
}

// GetPricesBatch fills every slot whose timestamp is after creation
func (m *MockProvider) GetPricesBatch(ctx context.Context, tokenAddress, network string, timestamps []int64) ([]*model.PricePoint, error) {
	results := make([]*model.PricePoint, len(timestamps))
	for i, ts := range timestamps {
		p, err := m.GetPrice(ctx, tokenAddress, network, ts)
		if err != nil {
			continue // unresolved slot stays nil
		}
		results[i] = &p
	}
	return results, nil
}
