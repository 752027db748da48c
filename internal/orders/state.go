package orders

import (
	"github.com/velvetlane/storefront-backend/pkg/enums"
)

// allowedTransitions is the single source of truth for the order state
// machine. Transitions not listed here are rejected, whatever the caller.
var allowedTransitions = map[enums.OrderState][]enums.OrderState{
	enums.OrderStatePendingAuthorization: {
		enums.OrderStateConfirmed,
		enums.OrderStateCanceled,
	},
	enums.OrderStateConfirmed: {
		enums.OrderStateProcessing,
		enums.OrderStateCanceled,
	},
	enums.OrderStateProcessing: {
		enums.OrderStateShipped,
		enums.OrderStateCanceled,
	},
	enums.OrderStateShipped: {
		enums.OrderStateDelivered,
		enums.OrderStateCanceled,
	},
	enums.OrderStateDelivered: {
		enums.OrderStateReturned,
	},
}

// CanTransition reports whether moving from one state to another is legal.
func CanTransition(from, to enums.OrderState) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// BuyerCanCancel reports whether a buyer may cancel an order in the given
// state. Fulfillment in progress means the window has closed.
func BuyerCanCancel(state enums.OrderState) bool {
	switch state {
	case enums.OrderStatePendingAuthorization, enums.OrderStateConfirmed:
		return true
	}
	return false
}
