package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amounts are stored as integer cents. Tax math runs through decimals and is
// rounded half-up to whole cents only at the point a value is persisted, so
// stored totals stay reproducible regardless of intermediate ordering.

// LineSubtotal returns qty x unit price in cents. Exact, no rounding needed.
func LineSubtotal(qty int, unitPriceCents int64) int64 {
	return int64(qty) * unitPriceCents
}

// LineTax computes qty x unit price x rate/100 in cents, rounded half-up.
func LineTax(qty int, unitPriceCents int64, taxRatePercent float64) int64 {
	tax := decimal.NewFromInt(int64(qty)).
		Mul(decimal.NewFromInt(unitPriceCents)).
		Mul(decimal.NewFromFloat(taxRatePercent)).
		Div(decimal.NewFromInt(100))
	// Round is half away from zero; amounts here are never negative, so this
	// is round-half-up at cent precision.
	return tax.Round(0).IntPart()
}

// Format renders cents as a fixed two-decimal string.
func Format(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
