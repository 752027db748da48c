package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/velvetlane/storefront-backend/api/responses"
	"github.com/velvetlane/storefront-backend/api/validators"
	ordersvc "github.com/velvetlane/storefront-backend/internal/orders"
	"github.com/velvetlane/storefront-backend/pkg/db/models"
	pkgerrors "github.com/velvetlane/storefront-backend/pkg/errors"
	"github.com/velvetlane/storefront-backend/pkg/logger"
	"github.com/velvetlane/storefront-backend/pkg/types"
)

// OrderList returns the buyer's order history, newest first.
func OrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		buyerID, err := buyerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 10000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.ListForBuyer(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orders = window(orders, offset, limit)

		out := make([]orderResponse, 0, len(orders))
		for i := range orders {
			out = append(out, newOrderResponse(&orders[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

// OrderDetail returns one of the buyer's orders.
func OrderDetail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		buyerID, err := buyerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := orderIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetForBuyer(r.Context(), buyerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// OrderCancel cancels one of the buyer's orders while it is still cancelable.
func OrderCancel(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}

		buyerID, err := buyerIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := orderIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CancelByBuyer(r.Context(), buyerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// window slices a buyer's order history for pagination. Histories are
// small enough that trimming after the fetch beats threading paging
// through the ledger.
func window(orders []models.Order, offset, limit int) []models.Order {
	if offset >= len(orders) {
		return nil
	}
	orders = orders[offset:]
	if limit < len(orders) {
		orders = orders[:limit]
	}
	return orders
}

func orderIDFromPath(r *http.Request) (uuid.UUID, error) {
	orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

type orderLineResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Size           string    `json:"size,omitempty"`
	Color          string    `json:"color,omitempty"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
}

type orderResponse struct {
	OrderID         uuid.UUID           `json:"order_id"`
	HumanNumber     string              `json:"human_number"`
	State           string              `json:"state"`
	Currency        string              `json:"currency"`
	SubtotalCents   int64               `json:"subtotal_cents"`
	ShippingCents   int64               `json:"shipping_cents"`
	TotalCents      int64               `json:"total_cents"`
	DeclineReason   *string             `json:"decline_reason,omitempty"`
	ShippingAddress *types.Address      `json:"shipping_address,omitempty"`
	Lines           []orderLineResponse `json:"lines"`
	ConfirmedAt     *time.Time          `json:"confirmed_at,omitempty"`
	CanceledAt      *time.Time          `json:"canceled_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

func newOrderResponse(order *models.Order) orderResponse {
	if order == nil {
		return orderResponse{}
	}
	lines := make([]orderLineResponse, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLineResponse{
			ProductID:      line.ProductID,
			Name:           line.Name,
			Size:           line.Size,
			Color:          line.Color,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
		})
	}
	return orderResponse{
		OrderID:         order.ID,
		HumanNumber:     order.HumanNumber,
		State:           string(order.State),
		Currency:        string(order.Currency),
		SubtotalCents:   order.SubtotalCents,
		ShippingCents:   order.ShippingCents,
		TotalCents:      order.TotalCents,
		DeclineReason:   order.DeclineReason,
		ShippingAddress: order.ShippingAddress,
		Lines:           lines,
		ConfirmedAt:     order.ConfirmedAt,
		CanceledAt:      order.CanceledAt,
		CreatedAt:       order.CreatedAt,
	}
}
