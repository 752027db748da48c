package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/velvetlane/storefront-backend/internal/cart"
	"github.com/velvetlane/storefront-backend/internal/catalog"
	"github.com/velvetlane/storefront-backend/pkg/enums"
	pkgerrors "github.com/velvetlane/storefront-backend/pkg/errors"
)

// ToleranceCents is the maximum accepted drift between the client-claimed
// total and the server-computed one. Anything above it fails closed.
const ToleranceCents int64 = 1

// SubmitLine is a requested order line as claimed by the client.
type SubmitLine struct {
	ProductID uuid.UUID
	Size      string
	Color     string
	Quantity  int
}

// VerifiedLine carries the server-side price snapshot for one line.
type VerifiedLine struct {
	ProductID      uuid.UUID
	Name           string
	Size           string
	Color          string
	Quantity       int
	UnitPriceCents int64
}

// VerifiedOrder is the trusted result of price verification. Its amounts,
// not the client's, flow into the ledger and the payment processor.
type VerifiedOrder struct {
	Lines         []VerifiedLine
	Currency      enums.Currency
	SubtotalCents int64
	ShippingCents int64
	TotalCents    int64
}

// MismatchDetails is attached to price mismatch failures so the client can
// re-quote.
type MismatchDetails struct {
	ComputedTotalCents int64  `json:"computed_total_cents"`
	ClaimedTotalCents  int64  `json:"claimed_total_cents"`
	Reason             string `json:"reason,omitempty"`
}

// Verifier recomputes order totals from the catalog.
type Verifier interface {
	Verify(ctx context.Context, lines []SubmitLine, claimedTotalCents int64) (*VerifiedOrder, error)
}

type verifier struct {
	catalog catalog.Service
}

// NewVerifier builds the price verifier.
func NewVerifier(catalogSvc catalog.Service) (Verifier, error) {
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	return &verifier{catalog: catalogSvc}, nil
}

func (v *verifier) Verify(ctx context.Context, lines []SubmitLine, claimedTotalCents int64) (*VerifiedOrder, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no lines")
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
		ids = append(ids, line.ProductID)
	}

	products, err := v.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	verified := make([]VerifiedLine, 0, len(lines))
	summaryLines := make([]cart.SummaryLine, 0, len(lines))
	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, mismatch(0, claimedTotalCents, fmt.Sprintf("unknown product %s", line.ProductID))
		}
		if !product.Active {
			return nil, mismatch(0, claimedTotalCents, fmt.Sprintf("product %s is inactive", line.ProductID))
		}
		if product.StockQty < line.Quantity {
			return nil, mismatch(0, claimedTotalCents, fmt.Sprintf("product %s has insufficient stock", line.ProductID))
		}

		unit := product.EffectivePriceCents()
		verified = append(verified, VerifiedLine{
			ProductID:      product.ID,
			Name:           product.Name,
			Size:           line.Size,
			Color:          line.Color,
			Quantity:       line.Quantity,
			UnitPriceCents: unit,
		})
		summaryLines = append(summaryLines, cart.SummaryLine{
			Quantity:       line.Quantity,
			UnitPriceCents: unit,
		})
	}

	summary := cart.ComputeSummary(summaryLines, 0)

	diff := summary.TotalCents - claimedTotalCents
	if diff < 0 {
		diff = -diff
	}
	if diff > ToleranceCents {
		return nil, mismatch(summary.TotalCents, claimedTotalCents, "")
	}

	return &VerifiedOrder{
		Lines:         verified,
		Currency:      enums.CurrencyEUR,
		SubtotalCents: summary.SubtotalCents,
		ShippingCents: summary.ShippingCents,
		TotalCents:    summary.TotalCents,
	}, nil
}

func mismatch(computed, claimed int64, reason string) error {
	return pkgerrors.New(pkgerrors.CodePriceMismatch, "order total does not match current prices").
		WithDetails(MismatchDetails{
			ComputedTotalCents: computed,
			ClaimedTotalCents:  claimed,
			Reason:             reason,
		})
}
