package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velvetlane/storefront-backend/internal/cart"
	"github.com/velvetlane/storefront-backend/internal/orders"
	"github.com/velvetlane/storefront-backend/internal/payments"
	"github.com/velvetlane/storefront-backend/internal/pricing"
	"github.com/velvetlane/storefront-backend/pkg/db/models"
	"github.com/velvetlane/storefront-backend/pkg/enums"
	pkgerrors "github.com/velvetlane/storefront-backend/pkg/errors"
	"github.com/velvetlane/storefront-backend/pkg/logger"
	"github.com/velvetlane/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// SubmitLineInput is a requested line as sent by the client.
type SubmitLineInput struct {
	ProductID uuid.UUID
	Size      string
	Color     string
	Quantity  int
}

// SubmitInput is the full checkout submission. The claimed total exists
// only to be verified; server-computed amounts drive everything downstream.
type SubmitInput struct {
	Lines             []SubmitLineInput
	ClaimedTotalCents int64
	ShippingAddress   types.Address
}

// SubmitResult is what the client needs to finish payment.
type SubmitResult struct {
	ClientSecret string    `json:"client_secret"`
	OrderID      uuid.UUID `json:"order_id"`
	HumanNumber  string    `json:"human_number"`
}

// Service orchestrates checkout: verify prices, open a provisional order,
// create the processor authorization and bind it.
type Service interface {
	Submit(ctx context.Context, buyerID uuid.UUID, input SubmitInput) (*SubmitResult, error)
}

type service struct {
	verifier pricing.Verifier
	ledger   orders.Service
	gateway  payments.Gateway
	cart     cart.Service
	tx       txRunner
	logg     *logger.Logger
}

// NewService builds the checkout orchestrator.
func NewService(
	verifier pricing.Verifier,
	ledger orders.Service,
	gateway payments.Gateway,
	cartSvc cart.Service,
	tx txRunner,
	logg *logger.Logger,
) (Service, error) {
	if verifier == nil {
		return nil, fmt.Errorf("price verifier required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("order ledger required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if cartSvc == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		verifier: verifier,
		ledger:   ledger,
		gateway:  gateway,
		cart:     cartSvc,
		tx:       tx,
		logg:     logg,
	}, nil
}

func (s *service) Submit(ctx context.Context, buyerID uuid.UUID, input SubmitInput) (*SubmitResult, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity required")
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}

	submitLines := make([]pricing.SubmitLine, 0, len(input.Lines))
	for _, line := range input.Lines {
		submitLines = append(submitLines, pricing.SubmitLine{
			ProductID: line.ProductID,
			Size:      line.Size,
			Color:     line.Color,
			Quantity:  line.Quantity,
		})
	}

	verified, err := s.verifier.Verify(ctx, submitLines, input.ClaimedTotalCents)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithBuyerID(ctx, buyerID.String())

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		createInput := orders.CreateInput{
			BuyerID:         buyerID,
			Currency:        verified.Currency,
			SubtotalCents:   verified.SubtotalCents,
			ShippingCents:   verified.ShippingCents,
			TotalCents:      verified.TotalCents,
			ShippingAddress: &input.ShippingAddress,
		}
		for _, line := range verified.Lines {
			createInput.Lines = append(createInput.Lines, orders.LineInput{
				ProductID:      line.ProductID,
				Name:           line.Name,
				Size:           line.Size,
				Color:          line.Color,
				Quantity:       line.Quantity,
				UnitPriceCents: line.UnitPriceCents,
			})
		}
		created, err := s.ledger.CreateProvisional(ctx, tx, createInput)
		if err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	authorization, err := s.gateway.CreateAuthorization(ctx, payments.CreateAuthorizationInput{
		OrderID:     order.ID,
		HumanNumber: order.HumanNumber,
		BuyerID:     buyerID,
		AmountCents: verified.TotalCents,
		Currency:    verified.Currency,
	})
	if err != nil {
		// compensate: release the provisional order rather than leaving it
		// for the reaper
		if _, cancelErr := s.ledger.Transition(ctx, order.ID, enums.OrderStateCanceled, orders.TransitionOpts{}); cancelErr != nil {
			s.logg.Error(ctx, "failed to cancel order after authorization failure", cancelErr)
		}
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.ledger.BindAuthorization(ctx, tx, order.ID, authorization.AuthorizationID)
	})
	if err != nil {
		return nil, err
	}

	// cart clearing is cosmetic; a failure must not fail the checkout
	if err := s.cart.Clear(ctx, buyerID); err != nil {
		s.logg.Warn(ctx, "failed to clear cart after checkout")
	}

	s.logg.Info(ctx, "checkout submitted")

	return &SubmitResult{
		ClientSecret: authorization.ClientSecret,
		OrderID:      order.ID,
		HumanNumber:  order.HumanNumber,
	}, nil
}
