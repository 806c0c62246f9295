package money

import "github.com/shopspring/decimal"

// Tolerance is one minor currency unit. Client-declared totals that drift
// from the recomputed figures by more than this are rejected upstream.
var Tolerance = decimal.RequireFromString("0.01")

// LineSubtotal returns quantity * unit price, unrounded.
func LineSubtotal(qty, unitPrice decimal.Decimal) decimal.Decimal {
	return qty.Mul(unitPrice)
}

// LineTotal returns quantity * unit price minus the line discount.
func LineTotal(qty, unitPrice, discount decimal.Decimal) decimal.Decimal {
	return qty.Mul(unitPrice).Sub(discount)
}

// SaleTotal combines the recomputed subtotal with tax and the sale-level
// discount: subtotal + tax - discount.
func SaleTotal(subtotal, tax, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Add(tax).Sub(discount)
}

// WithinTolerance reports whether a and b differ by at most Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().Cmp(Tolerance) <= 0
}

// Round normalizes a monetary amount to two decimal places for display
// and persistence. Intermediate arithmetic stays unrounded.
func Round(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}
