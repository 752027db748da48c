package cart

import "testing"

func TestComputeSummaryInvariant(t *testing.T) {
	lines := []SummaryLine{
		{Quantity: 2, UnitPriceCents: 1999},
		{Quantity: 1, UnitPriceCents: 350},
	}
	summary := ComputeSummary(lines, 0)

	if summary.SubtotalCents != 4348 {
		t.Fatalf("subtotal = %d, want 4348", summary.SubtotalCents)
	}
	if summary.ItemCount != 3 {
		t.Fatalf("item count = %d, want 3", summary.ItemCount)
	}
	want := summary.SubtotalCents - summary.DiscountCents + summary.ShippingCents
	if summary.TotalCents != want {
		t.Fatalf("total = %d, want subtotal - discount + shipping = %d", summary.TotalCents, want)
	}
}

func TestShippingThreshold(t *testing.T) {
	cases := []struct {
		name     string
		subtotal int64
		want     int64
	}{
		{"empty cart owes nothing", 0, 0},
		{"one cent below threshold", 4999, FlatShippingFeeCents},
		{"exactly at threshold", 5000, 0},
		{"above threshold", 12000, 0},
		{"small order", 100, FlatShippingFeeCents},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShippingCents(tc.subtotal); got != tc.want {
				t.Fatalf("ShippingCents(%d) = %d, want %d", tc.subtotal, got, tc.want)
			}
		})
	}
}

func TestComputeSummaryShippingBoundary(t *testing.T) {
	below := ComputeSummary([]SummaryLine{{Quantity: 1, UnitPriceCents: 4999}}, 0)
	if below.ShippingCents != FlatShippingFeeCents {
		t.Fatalf("shipping below threshold = %d, want %d", below.ShippingCents, FlatShippingFeeCents)
	}
	if below.TotalCents != 4999+FlatShippingFeeCents {
		t.Fatalf("total below threshold = %d", below.TotalCents)
	}

	at := ComputeSummary([]SummaryLine{{Quantity: 1, UnitPriceCents: 5000}}, 0)
	if at.ShippingCents != 0 {
		t.Fatalf("shipping at threshold = %d, want 0", at.ShippingCents)
	}
	if at.TotalCents != 5000 {
		t.Fatalf("total at threshold = %d, want 5000", at.TotalCents)
	}
}

func TestComputeSummaryEmpty(t *testing.T) {
	summary := ComputeSummary(nil, 0)
	if summary != (Summary{}) {
		t.Fatalf("empty cart summary should be all zeros, got %+v", summary)
	}
}

func TestComputeSummaryDiscountCapped(t *testing.T) {
	summary := ComputeSummary([]SummaryLine{{Quantity: 1, UnitPriceCents: 1000}}, 5000)
	if summary.DiscountCents != 1000 {
		t.Fatalf("discount = %d, want capped at subtotal 1000", summary.DiscountCents)
	}
	if summary.TotalCents != summary.ShippingCents {
		t.Fatalf("total = %d, want shipping only %d", summary.TotalCents, summary.ShippingCents)
	}

	negative := ComputeSummary([]SummaryLine{{Quantity: 1, UnitPriceCents: 1000}}, -200)
	if negative.DiscountCents != 0 {
		t.Fatalf("negative discount should be ignored, got %d", negative.DiscountCents)
	}
}

func TestComputeSummarySkipsNonPositiveQuantities(t *testing.T) {
	summary := ComputeSummary([]SummaryLine{
		{Quantity: 0, UnitPriceCents: 1000},
		{Quantity: -3, UnitPriceCents: 1000},
		{Quantity: 1, UnitPriceCents: 250},
	}, 0)
	if summary.SubtotalCents != 250 {
		t.Fatalf("subtotal = %d, want 250", summary.SubtotalCents)
	}
	if summary.ItemCount != 1 {
		t.Fatalf("item count = %d, want 1", summary.ItemCount)
	}
}
