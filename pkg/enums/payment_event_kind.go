package enums

import "fmt"

// PaymentEventKind classifies processor webhook notifications.
type PaymentEventKind string

const (
	PaymentEventAuthorizationSucceeded PaymentEventKind = "authorization_succeeded"
	PaymentEventAuthorizationFailed    PaymentEventKind = "authorization_failed"
	PaymentEventAuthorizationCanceled  PaymentEventKind = "authorization_canceled"
)

var validPaymentEventKinds = []PaymentEventKind{
	PaymentEventAuthorizationSucceeded,
	PaymentEventAuthorizationFailed,
	PaymentEventAuthorizationCanceled,
}

// String implements fmt.Stringer.
func (k PaymentEventKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known PaymentEventKind.
func (k PaymentEventKind) IsValid() bool {
	for _, candidate := range validPaymentEventKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParsePaymentEventKind converts raw input into a PaymentEventKind.
func ParsePaymentEventKind(value string) (PaymentEventKind, error) {
	for _, candidate := range validPaymentEventKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment event kind %q", value)
}
