// Package pricing holds the pure money math shared by the cart, promotion,
// and checkout layers. All amounts are shopspring decimals; discounts are
// rounded to two decimal places at the point they become externally visible.
package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// LineTotal returns unit price multiplied by quantity.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Subtotal returns the sum of the given line totals.
func Subtotal(lineTotals []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range lineTotals {
		sum = sum.Add(t)
	}
	return sum
}

// PercentDiscount returns subtotal * percent / 100, floored at zero and
// rounded to 2 decimal places.
func PercentDiscount(subtotal, percent decimal.Decimal) decimal.Decimal {
	return FloorAtZero(subtotal.Mul(percent).Div(hundred)).Round(2)
}

// ApplyDiscount returns subtotal minus discount, never negative.
func ApplyDiscount(subtotal, discount decimal.Decimal) decimal.Decimal {
	return FloorAtZero(subtotal.Sub(discount))
}

// FloorAtZero clamps negative values to zero.
func FloorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
