package enums

import "fmt"

// OrderState tracks the lifecycle of a storefront order.
type OrderState string

const (
	OrderStatePendingAuthorization OrderState = "pending_authorization"
	OrderStateConfirmed            OrderState = "confirmed"
	OrderStateProcessing           OrderState = "processing"
	OrderStateShipped              OrderState = "shipped"
	OrderStateDelivered            OrderState = "delivered"
	OrderStateCanceled             OrderState = "canceled"
	OrderStateReturned             OrderState = "returned"
)

var validOrderStates = []OrderState{
	OrderStatePendingAuthorization,
	OrderStateConfirmed,
	OrderStateProcessing,
	OrderStateShipped,
	OrderStateDelivered,
	OrderStateCanceled,
	OrderStateReturned,
}

// String implements fmt.Stringer.
func (s OrderState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderState.
func (s OrderState) IsValid() bool {
	for _, candidate := range validOrderStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions leave this state.
func (s OrderState) IsTerminal() bool {
	switch s {
	case OrderStateCanceled, OrderStateReturned:
		return true
	}
	return false
}

// ParseOrderState converts raw input into an OrderState.
func ParseOrderState(value string) (OrderState, error) {
	for _, candidate := range validOrderStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order state %q", value)
}
