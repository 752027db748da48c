package cart

import (
	"github.com/shopspring/decimal"
)

// Shipping policy: orders at or above the threshold ship free, everything
// else pays the flat fee.
const (
	FreeShippingThresholdCents int64 = 5000
	FlatShippingFeeCents       int64 = 495
)

// SummaryLine is the minimal line shape summary math needs.
type SummaryLine struct {
	Quantity       int
	UnitPriceCents int64
}

// Summary is the derived money view of a cart. It is recomputed from lines
// on every read and mutation, never stored or accepted from a client.
type Summary struct {
	ItemCount     int   `json:"item_count"`
	SubtotalCents int64 `json:"subtotal_cents"`
	DiscountCents int64 `json:"discount_cents"`
	ShippingCents int64 `json:"shipping_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// ComputeSummary derives subtotal, shipping and total from the given lines.
// total = subtotal - discount + shipping, floored at zero.
func ComputeSummary(lines []SummaryLine, discountCents int64) Summary {
	subtotal := decimal.Zero
	itemCount := 0
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		qty := decimal.NewFromInt(int64(line.Quantity))
		unit := decimal.NewFromInt(line.UnitPriceCents)
		subtotal = subtotal.Add(unit.Mul(qty))
		itemCount += line.Quantity
	}

	if discountCents < 0 {
		discountCents = 0
	}
	discount := decimal.NewFromInt(discountCents)
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	shipping := decimal.NewFromInt(ShippingCents(subtotal.IntPart()))

	total := subtotal.Sub(discount).Add(shipping)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Summary{
		ItemCount:     itemCount,
		SubtotalCents: subtotal.IntPart(),
		DiscountCents: discount.IntPart(),
		ShippingCents: shipping.IntPart(),
		TotalCents:    total.IntPart(),
	}
}

// ShippingCents applies the threshold rule to a subtotal. An empty cart
// owes no shipping.
func ShippingCents(subtotalCents int64) int64 {
	if subtotalCents <= 0 {
		return 0
	}
	if subtotalCents >= FreeShippingThresholdCents {
		return 0
	}
	return FlatShippingFeeCents
}
