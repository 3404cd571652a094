package interpolate

import (
	"math"

	"token-price-service/internal/model"
)

// Policy constants for interpolation eligibility. Changing them changes the
// prices the service reports, so they are fixed.
const (
	// MaxGapSeconds is the widest allowed distance between bracketing points.
	MaxGapSeconds = 7 * 24 * 60 * 60 // 604800
	// MaxPriceSwing is the largest allowed relative price change between points.
	MaxPriceSwing = 0.5
)

// Result carries an interpolated price estimate and the inputs it came from.
type Result struct {
	Price           float64
	Ratio           float64
	BeforePrice     float64
	AfterPrice      float64
	BeforeTimestamp int64
	AfterTimestamp  int64
}

// CanInterpolate reports whether target can be estimated from the bracketing
// points. All conditions must hold: target strictly between the two
// timestamps, gap at most MaxGapSeconds, relative price swing at most
// MaxPriceSwing. A zero before-price makes the swing undefined and the pair
// ineligible.
func CanInterpolate(before, after model.PricePoint, target int64) bool {
	if target <= before.Timestamp || target >= after.Timestamp {
		return false
	}
	if after.Timestamp-before.Timestamp > MaxGapSeconds {
		return false
	}
	if before.Price == 0 {
		return false
	}
	swing := math.Abs(after.Price-before.Price) / before.Price
	return swing <= MaxPriceSwing
}

// Interpolate computes a linear price estimate for target between the two
// bracketing points. Callers must check CanInterpolate first.
func Interpolate(target int64, before, after model.PricePoint) Result {
	ratio := float64(target-before.Timestamp) / float64(after.Timestamp-before.Timestamp)
	price := before.Price + (after.Price-before.Price)*ratio

	return Result{
		Price:           price,
		Ratio:           ratio,
		BeforePrice:     before.Price,
		AfterPrice:      after.Price,
		BeforeTimestamp: before.Timestamp,
		AfterTimestamp:  after.Timestamp,
	}
}
