// Package catalog implements the read-side query pipeline over service
// offerings: discount banding, text search and price ordering.
//
// Every function here is pure and total. Malformed input degrades to a safe
// default (no discount, unchanged order) instead of failing, because the
// results feed a display.
package catalog

import (
	"math"

	"github.com/JonMunkholm/salon/internal/model"
)

// NoDiscount is the factor stored for offerings sold at full price.
const NoDiscount = 1.0

// FactorFromValue reads a stored multiplicative discount factor. Missing or
// unreadable values mean no discount; numeric values are clamped to [0,1].
func FactorFromValue(v any) float64 {
	f, ok := model.Float(v)
	if !ok {
		return NoDiscount
	}
	return clampFactor(f)
}

// PercentOff converts a discount factor to a display percentage rounded to
// two decimals. The result is always within [0,100].
func PercentOff(factor float64) float64 {
	if math.IsNaN(factor) {
		factor = NoDiscount
	}
	factor = clampFactor(factor)
	return math.Round((1-factor)*100*100) / 100
}

// PercentOffValue is PercentOff applied to a raw stored value.
func PercentOffValue(v any) float64 {
	return PercentOff(FactorFromValue(v))
}

func clampFactor(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
