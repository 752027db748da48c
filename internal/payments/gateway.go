package payments

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/velvetlane/storefront-backend/pkg/enums"
)

// Authorization is the processor-side hold created for a checkout. The
// client finishes it with the client secret; the backend only ever learns
// the outcome through webhooks.
type Authorization struct {
	AuthorizationID string
	ClientSecret    string
}

// CreateAuthorizationInput carries the server-verified amount. The claimed
// client total never reaches the processor.
type CreateAuthorizationInput struct {
	OrderID     uuid.UUID
	HumanNumber string
	BuyerID     uuid.UUID
	AmountCents int64
	Currency    enums.Currency
}

// Event is a verified processor notification, normalized to internal kinds.
type Event struct {
	ID              string
	Kind            enums.PaymentEventKind
	AuthorizationID string
	DeclineReason   *string
	ReceivedAt      time.Time
}

// Gateway is the payment processor boundary. Everything behind it is
// processor-specific; everything in front of it speaks ledger language.
type Gateway interface {
	CreateAuthorization(ctx context.Context, input CreateAuthorizationInput) (*Authorization, error)
	VerifyWebhook(payload []byte, signatureHeader string) (*Event, error)
}
