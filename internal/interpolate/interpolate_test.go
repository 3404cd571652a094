package interpolate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"token-price-service/internal/model"
)

func point(ts int64, price float64) model.PricePoint {
	return model.PricePoint{
		TokenAddress: "0xabc",
		Network:      "eth-mainnet",
		Timestamp:    ts,
		Price:        price,
	}
}

func TestCanInterpolate(t *testing.T) {
	tests := []struct {
		name   string
		before model.PricePoint
		after  model.PricePoint
		target int64
		want   bool
	}{
		{
			name:   "valid bracketing points",
			before: point(1000, 10),
			after:  point(2000, 12),
			target: 1500,
			want:   true,
		},
		{
			name:   "target equals before timestamp",
			before: point(1000, 10),
			after:  point(2000, 12),
			target: 1000,
			want:   false,
		},
		{
			name:   "target equals after timestamp",
			before: point(1000, 10),
			after:  point(2000, 12),
			target: 2000,
			want:   false,
		},
		{
			name:   "target outside bracket",
			before: point(1000, 10),
			after:  point(2000, 12),
			target: 2500,
			want:   false,
		},
		{
			name:   "gap exactly seven days is allowed",
			before: point(0, 10),
			after:  point(604800, 12),
			target: 300000,
			want:   true,
		},
		{
			name:   "gap over seven days",
			before: point(0, 10),
			after:  point(604801, 12),
			target: 300000,
			want:   false,
		},
		{
			name:   "swing exactly fifty percent is allowed",
			before: point(1000, 10),
			after:  point(2000, 15),
			target: 1500,
			want:   true,
		},
		{
			name:   "swing over fifty percent",
			before: point(1000, 10),
			after:  point(2000, 15.01),
			target: 1500,
			want:   false,
		},
		{
			name:   "downward swing over fifty percent",
			before: point(1000, 10),
			after:  point(2000, 4.9),
			target: 1500,
			want:   false,
		},
		{
			name:   "zero before price",
			before: point(1000, 0),
			after:  point(2000, 1),
			target: 1500,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanInterpolate(tt.before, tt.after, tt.target))
		})
	}
}

func TestInterpolate_Linear(t *testing.T) {
	res := Interpolate(1500, point(1000, 10), point(2000, 20))

	assert.Equal(t, 15.0, res.Price)
	assert.Equal(t, 0.5, res.Ratio)
	assert.Equal(t, 10.0, res.BeforePrice)
	assert.Equal(t, 20.0, res.AfterPrice)
	assert.Equal(t, int64(1000), res.BeforeTimestamp)
	assert.Equal(t, int64(2000), res.AfterTimestamp)
}

func TestInterpolate_UnevenRatio(t *testing.T) {
	res := Interpolate(1250, point(1000, 100), point(2000, 104))

	assert.InDelta(t, 0.25, res.Ratio, 1e-9)
	assert.InDelta(t, 101.0, res.Price, 1e-9)
}

func TestInterpolate_FallingPrice(t *testing.T) {
	res := Interpolate(1500, point(1000, 20), point(2000, 10))

	assert.Equal(t, 15.0, res.Price)
}
