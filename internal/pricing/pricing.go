// Package pricing computes cart and order totals. Every function is pure:
// callers resolve catalog, coupon and delivery state before calling in.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/IstiakDeveloper/orgreeni/pkg/enums"
)

var hundred = decimal.NewFromInt(100)

// Line is a priced quantity of one product or variant.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Subtotal returns unit price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Coupon is the snapshot of a coupon definition the engine needs.
type Coupon struct {
	Type            enums.DiscountType
	Amount          decimal.Decimal
	MinimumPurchase decimal.Decimal
	MaximumDiscount decimal.NullDecimal
	StartsAt        time.Time
	ExpiresAt       time.Time
	Active          bool
}

// IsValid reports whether the coupon is active and now falls inside its window.
// Both window bounds are inclusive.
func (c Coupon) IsValid(now time.Time) bool {
	if !c.Active {
		return false
	}
	return !now.Before(c.StartsAt) && !now.After(c.ExpiresAt)
}

// MeetsMinimum reports whether subtotal reaches the minimum purchase amount.
func (c Coupon) MeetsMinimum(subtotal decimal.Decimal) bool {
	return subtotal.GreaterThanOrEqual(c.MinimumPurchase)
}

// Area is the delivery area snapshot used for shipping.
type Area struct {
	Charge          decimal.Decimal
	FreeDeliveryMin decimal.NullDecimal
}

// Input is everything Compute needs.
type Input struct {
	Lines    []Line
	Coupon   *Coupon
	Shipping decimal.Decimal
	// VATRate is a fraction, 0.05 for five percent.
	VATRate decimal.Decimal
	Now     time.Time
}

// Totals are the five cached money figures of a cart or order.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	ShippingCharge decimal.Decimal `json:"shipping_charge"`
	VAT            decimal.Decimal `json:"vat"`
	Total          decimal.Decimal `json:"total"`
}

// Equal compares totals value by value.
func (t Totals) Equal(other Totals) bool {
	return t.Subtotal.Equal(other.Subtotal) &&
		t.Discount.Equal(other.Discount) &&
		t.ShippingCharge.Equal(other.ShippingCharge) &&
		t.VAT.Equal(other.VAT) &&
		t.Total.Equal(other.Total)
}

// Money rounds to two decimal places, half away from zero.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// RateFromPercent turns a percentage such as 5 into the fraction 0.05.
func RateFromPercent(pct decimal.Decimal) decimal.Decimal {
	return pct.Div(hundred)
}

// LineSubtotal sums unit price times quantity across lines.
func LineSubtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

// Discount returns the coupon discount for subtotal. It is zero when the
// coupon is absent, invalid at now, or subtotal is below its minimum, and it
// never exceeds subtotal.
func Discount(subtotal decimal.Decimal, coupon *Coupon, now time.Time) decimal.Decimal {
	if coupon == nil || !coupon.IsValid(now) || !coupon.MeetsMinimum(subtotal) {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch coupon.Type {
	case enums.DiscountTypePercentage:
		amount = Money(subtotal.Mul(coupon.Amount).Div(hundred))
		if coupon.MaximumDiscount.Valid && amount.GreaterThan(coupon.MaximumDiscount.Decimal) {
			amount = coupon.MaximumDiscount.Decimal
		}
	default:
		amount = coupon.Amount
	}

	return clamp(Money(amount), decimal.Zero, subtotal)
}

// VAT is round((subtotal - discount) * rate, 2).
func VAT(subtotal, discount, rate decimal.Decimal) decimal.Decimal {
	base := subtotal.Sub(discount)
	if base.IsNegative() {
		return decimal.Zero
	}
	return Money(base.Mul(rate))
}

// ShippingCharge returns the area charge, or zero once amount reaches the
// area's free delivery threshold. A nil area ships for free; a threshold at
// or below zero counts as unset.
func ShippingCharge(area *Area, amount decimal.Decimal) decimal.Decimal {
	if area == nil {
		return decimal.Zero
	}
	if area.FreeDeliveryMin.Valid && area.FreeDeliveryMin.Decimal.IsPositive() && amount.GreaterThanOrEqual(area.FreeDeliveryMin.Decimal) {
		return decimal.Zero
	}
	return Money(area.Charge)
}

// Compute runs the full pipeline: subtotal, discount, VAT, total.
func Compute(in Input) Totals {
	subtotal := Money(LineSubtotal(in.Lines))
	discount := Discount(subtotal, in.Coupon, in.Now)
	vat := VAT(subtotal, discount, in.VATRate)
	shipping := Money(in.Shipping)
	if shipping.IsNegative() {
		shipping = decimal.Zero
	}

	total := subtotal.Sub(discount).Add(shipping).Add(vat)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal:       subtotal,
		Discount:       discount,
		ShippingCharge: shipping,
		VAT:            vat,
		Total:          total,
	}
}

// ComputeForArea derives shipping from area using the merchandise amount
// after discount, then runs Compute.
func ComputeForArea(in Input, area *Area) Totals {
	subtotal := Money(LineSubtotal(in.Lines))
	discount := Discount(subtotal, in.Coupon, in.Now)
	in.Shipping = ShippingCharge(area, subtotal.Sub(discount))
	return Compute(in)
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
