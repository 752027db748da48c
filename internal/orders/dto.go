package orders

import (
	"github.com/google/uuid"

	"github.com/velvetlane/storefront-backend/pkg/enums"
	"github.com/velvetlane/storefront-backend/pkg/types"
)

// LineInput is one verified line to freeze onto a provisional order.
type LineInput struct {
	ProductID      uuid.UUID
	Name           string
	Size           string
	Color          string
	Quantity       int
	UnitPriceCents int64
}

// CreateInput carries the server-verified amounts for a provisional order.
type CreateInput struct {
	BuyerID         uuid.UUID
	Currency        enums.Currency
	SubtotalCents   int64
	ShippingCents   int64
	TotalCents      int64
	Lines           []LineInput
	ShippingAddress *types.Address
}

// TransitionOpts tunes a state transition.
type TransitionOpts struct {
	// RequireFrom rejects the transition unless the order is currently in
	// this exact state. Used to keep stale processor events from clobbering
	// a newer state.
	RequireFrom *enums.OrderState
	// DeclineReason is stored on the order when a payment failure carries one.
	DeclineReason *string
	// OutboxEvent overrides the event emitted for the target state. Leave
	// empty for the default mapping.
	OutboxEvent enums.OutboxEventType
}

// OrderStateChangedEvent is the outbox payload for ledger transitions.
type OrderStateChangedEvent struct {
	OrderID     uuid.UUID        `json:"order_id"`
	HumanNumber string           `json:"human_number"`
	BuyerID     uuid.UUID        `json:"buyer_id"`
	FromState   enums.OrderState `json:"from_state"`
	ToState     enums.OrderState `json:"to_state"`
	TotalCents  int64            `json:"total_cents"`
	Currency    enums.Currency   `json:"currency"`
}
