package utils

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round2 rounds x to 2 decimal places (half away from zero).
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Money converts a request amount to a cent-precise decimal.
func Money(x float64) decimal.Decimal {
	return decimal.NewFromFloat(x).Round(2)
}

// MoneyPtr is Money for optional fields; nil stays nil.
func MoneyPtr(x *float64) *decimal.Decimal {
	if x == nil {
		return nil
	}
	d := Money(*x)
	return &d
}
