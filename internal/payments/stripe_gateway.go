package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/velvetlane/storefront-backend/pkg/enums"
	pkgerrors "github.com/velvetlane/storefront-backend/pkg/errors"
	pkgstripe "github.com/velvetlane/storefront-backend/pkg/stripe"
)

type stripeGateway struct {
	client *pkgstripe.Client
}

// NewStripeGateway wraps the shared Stripe client behind the Gateway boundary.
func NewStripeGateway(client *pkgstripe.Client) (Gateway, error) {
	if client == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	return &stripeGateway{client: client}, nil
}

func (g *stripeGateway) CreateAuthorization(ctx context.Context, input CreateAuthorizationInput) (*Authorization, error) {
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "authorization amount must be positive")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(input.AmountCents),
		Currency: stripe.String(strings.ToLower(input.Currency.String())),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"order_id":     input.OrderID.String(),
			"order_number": input.HumanNumber,
			"buyer_id":     input.BuyerID.String(),
		},
	}
	params.Context = ctx
	// keyed on the provisional order so processor-side retries collapse
	params.SetIdempotencyKey("order-authorization-" + input.OrderID.String())

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating payment authorization")
	}

	return &Authorization{
		AuthorizationID: intent.ID,
		ClientSecret:    intent.ClientSecret,
	}, nil
}

// VerifyWebhook checks the delivery signature over the raw payload and maps
// the processor event to an internal kind. Event types outside the
// authorization lifecycle return (nil, nil) and are acknowledged upstream.
func (g *stripeGateway) VerifyWebhook(payload []byte, signatureHeader string) (*Event, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, g.client.SigningSecret())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSignature, err, "webhook signature verification failed")
	}

	var kind enums.PaymentEventKind
	switch event.Type {
	case "payment_intent.succeeded":
		kind = enums.PaymentEventAuthorizationSucceeded
	case "payment_intent.payment_failed":
		kind = enums.PaymentEventAuthorizationFailed
	case "payment_intent.canceled":
		kind = enums.PaymentEventAuthorizationCanceled
	default:
		return nil, nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding payment intent payload")
	}
	if intent.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload missing payment intent id")
	}

	var declineReason *string
	if kind == enums.PaymentEventAuthorizationFailed && intent.LastPaymentError != nil {
		if msg := strings.TrimSpace(intent.LastPaymentError.Msg); msg != "" {
			declineReason = &msg
		}
	}

	receivedAt := time.Unix(event.Created, 0)
	if event.Created <= 0 {
		receivedAt = time.Now()
	}

	return &Event{
		ID:              event.ID,
		Kind:            kind,
		AuthorizationID: intent.ID,
		DeclineReason:   declineReason,
		ReceivedAt:      receivedAt,
	}, nil
}
