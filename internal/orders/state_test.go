package orders

import (
	"testing"

	"github.com/velvetlane/storefront-backend/pkg/enums"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from    enums.OrderState
		to      enums.OrderState
		allowed bool
	}{
		{enums.OrderStatePendingAuthorization, enums.OrderStateConfirmed, true},
		{enums.OrderStatePendingAuthorization, enums.OrderStateCanceled, true},
		{enums.OrderStatePendingAuthorization, enums.OrderStateShipped, false},
		{enums.OrderStateConfirmed, enums.OrderStateProcessing, true},
		{enums.OrderStateConfirmed, enums.OrderStateCanceled, true},
		{enums.OrderStateConfirmed, enums.OrderStatePendingAuthorization, false},
		{enums.OrderStateProcessing, enums.OrderStateShipped, true},
		{enums.OrderStateProcessing, enums.OrderStateDelivered, false},
		{enums.OrderStateShipped, enums.OrderStateDelivered, true},
		{enums.OrderStateDelivered, enums.OrderStateReturned, true},
		{enums.OrderStateDelivered, enums.OrderStateCanceled, false},
		{enums.OrderStateCanceled, enums.OrderStateConfirmed, false},
		{enums.OrderStateCanceled, enums.OrderStatePendingAuthorization, false},
		{enums.OrderStateReturned, enums.OrderStateConfirmed, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.allowed {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestBuyerCanCancel(t *testing.T) {
	cancelable := []enums.OrderState{
		enums.OrderStatePendingAuthorization,
		enums.OrderStateConfirmed,
	}
	for _, state := range cancelable {
		if !BuyerCanCancel(state) {
			t.Errorf("expected buyer cancel allowed in %s", state)
		}
	}
	locked := []enums.OrderState{
		enums.OrderStateProcessing,
		enums.OrderStateShipped,
		enums.OrderStateDelivered,
		enums.OrderStateCanceled,
		enums.OrderStateReturned,
	}
	for _, state := range locked {
		if BuyerCanCancel(state) {
			t.Errorf("expected buyer cancel blocked in %s", state)
		}
	}
}

func TestHumanNumberFormat(t *testing.T) {
	if got := HumanNumber(7); got != "LS-000007" {
		t.Fatalf("HumanNumber(7) = %q", got)
	}
	if got := HumanNumber(123456); got != "LS-123456" {
		t.Fatalf("HumanNumber(123456) = %q", got)
	}
	if got := HumanNumber(1234567); got != "LS-1234567" {
		t.Fatalf("HumanNumber should not truncate past six digits, got %q", got)
	}
}
