package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/velvetlane/storefront-backend/api/responses"
	"github.com/velvetlane/storefront-backend/api/validators"
	checkoutsvc "github.com/velvetlane/storefront-backend/internal/checkout"
	pkgerrors "github.com/velvetlane/storefront-backend/pkg/errors"
	"github.com/velvetlane/storefront-backend/pkg/logger"
	"github.com/velvetlane/storefront-backend/pkg/types"
)

type checkoutLineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Size      string    `json:"size,omitempty" validate:"omitempty,max=32"`
	Color     string    `json:"color,omitempty" validate:"omitempty,max=32"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=999"`
}

type checkoutRequest struct {
	Lines             []checkoutLineRequest `json:"lines" validate:"required,min=1,dive"`
	ClaimedTotalCents int64                 `json:"claimed_total_cents" validate:"required,min=1"`
	ShippingAddress   types.Address         `json:"shipping_address" validate:"required"`
}

// Checkout submits the buyer's cart: prices are re-verified server-side, a
// provisional order opens and a payment authorization is created for it.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID, err := buyerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := checkoutsvc.SubmitInput{
			ClaimedTotalCents: payload.ClaimedTotalCents,
			ShippingAddress:   payload.ShippingAddress,
		}
		for _, line := range payload.Lines {
			input.Lines = append(input.Lines, checkoutsvc.SubmitLineInput{
				ProductID: line.ProductID,
				Size:      validators.NormalizeVariant(line.Size, 32),
				Color:     validators.NormalizeVariant(line.Color, 32),
				Quantity:  line.Quantity,
			})
		}

		result, err := svc.Submit(r.Context(), buyerID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
