// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/sapat/feed-optimizer/pkg/constants"
	"github.com/shopspring/decimal"
)

// Round rounds a value to two decimals, i.e. to represent real currency.
func Round(val float64) float64 {
	return RoundPlaces(val, constants.CurrencyPlaces)
}

// RoundPlaces rounds half away from zero to the given number of decimals.
func RoundPlaces(val float64, places int32) float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return val
	}
	return decimal.NewFromFloat(val).Round(places).InexactFloat64()
}

// Currency formats a value with two fixed decimals.
func Currency(val float64) string {
	return decimal.NewFromFloat(val).StringFixed(constants.CurrencyPlaces)
}

// IsZero checks if a value is effectively zero (within tolerance)
func IsZero(val float64) bool {
	return math.Abs(val) <= constants.CurrencyTolerance
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// Snap returns zero when val is within tol of zero.
func Snap(val, tol float64) float64 {
	if math.Abs(val) < tol {
		return 0
	}
	return val
}

// Sum adds the values.
func Sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
