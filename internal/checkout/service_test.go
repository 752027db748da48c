package checkout

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

type fakeVerifier struct {
	verified *pricing.VerifiedOrder
	err      error
	gotLines []pricing.SubmitLine
	gotTotal int64
}

func (f *fakeVerifier) Verify(_ context.Context, lines []pricing.SubmitLine, claimedTotalCents int64) (*pricing.VerifiedOrder, error) {
	f.gotLines = lines
	f.gotTotal = claimedTotalCents
	if f.err != nil {
		return nil, f.err
	}
	return f.verified, nil
}

type checkoutLedger struct {
	orders.Service
	order       *models.Order
	createErr   error
	bindErr     error
	created     []orders.CreateInput
	bound       []string
	transitions []enums.OrderState
}

func (f *checkoutLedger) CreateProvisional(_ context.Context, _ *gorm.DB, input orders.CreateInput) (*models.Order, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, input)
	return f.order, nil
}

func (f *checkoutLedger) BindAuthorization(_ context.Context, _ *gorm.DB, _ uuid.UUID, authorizationID string) error {
	if f.bindErr != nil {
		return f.bindErr
	}
	f.bound = append(f.bound, authorizationID)
	return nil
}

func (f *checkoutLedger) Transition(_ context.Context, _ uuid.UUID, target enums.OrderState, _ orders.TransitionOpts) (*models.Order, error) {
	f.transitions = append(f.transitions, target)
	return f.order, nil
}

type fakeGateway struct {
	authorization *payments.Authorization
	err           error
	got           []payments.CreateAuthorizationInput
}

func (f *fakeGateway) CreateAuthorization(_ context.Context, input payments.CreateAuthorizationInput) (*payments.Authorization, error) {
	f.got = append(f.got, input)
	if f.err != nil {
		return nil, f.err
	}
	return f.authorization, nil
}

func (f *fakeGateway) VerifyWebhook(_ []byte, _ string) (*payments.Event, error) {
	return nil, nil
}

type fakeCart struct {
	cart.Service
	cleared  []uuid.UUID
	clearErr error
}

func (f *fakeCart) Clear(_ context.Context, buyerID uuid.UUID) error {
	f.cleared = append(f.cleared, buyerID)
	return f.clearErr
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fixture struct {
	verifier *fakeVerifier
	ledger   *checkoutLedger
	gateway  *fakeGateway
	cart     *fakeCart
	service  Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	orderID := uuid.New()
	f := &fixture{
		verifier: &fakeVerifier{
			verified: &pricing.VerifiedOrder{
				Lines: []pricing.VerifiedLine{
					{ProductID: uuid.New(), Name: "Linen Shirt", Size: "M", Quantity: 2, UnitPriceCents: 1999},
				},
				Currency:      enums.CurrencyEUR,
				SubtotalCents: 3998,
				ShippingCents: 495,
				TotalCents:    4493,
			},
		},
		ledger: &checkoutLedger{
			order: &models.Order{
				ID:          orderID,
				HumanNumber: "LS-000042",
				State:       enums.OrderStatePendingAuthorization,
				TotalCents:  4493,
			},
		},
		gateway: &fakeGateway{
			authorization: &payments.Authorization{
				AuthorizationID: "pi_test_1",
				ClientSecret:    "pi_test_1_secret",
			},
		},
		cart: &fakeCart{},
	}

	logg := logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard})
	svc, err := NewService(f.verifier, f.ledger, f.gateway, f.cart, stubTxRunner{}, logg)
	require.NoError(t, err)
	f.service = svc
	return f
}

func validAddress() types.Address {
	return types.Address{
		FullName:   "Nora Vane",
		Line1:      "12 Harbour Row",
		City:       "Rotterdam",
		PostalCode: "3011 AB",
		Country:    "NL",
	}
}

func validInput() SubmitInput {
	return SubmitInput{
		Lines: []SubmitLineInput{
			{ProductID: uuid.New(), Size: "M", Quantity: 2},
		},
		ClaimedTotalCents: 4493,
		ShippingAddress:   validAddress(),
	}
}

func TestSubmitHappyPath(t *testing.T) {
	f := newFixture(t)
	buyerID := uuid.New()

	result, err := f.service.Submit(context.Background(), buyerID, validInput())
	require.NoError(t, err)

	assert.Equal(t, "pi_test_1_secret", result.ClientSecret)
	assert.Equal(t, f.ledger.order.ID, result.OrderID)
	assert.Equal(t, "LS-000042", result.HumanNumber)

	require.Len(t, f.ledger.created, 1)
	created := f.ledger.created[0]
	assert.Equal(t, buyerID, created.BuyerID)
	assert.Equal(t, int64(4493), created.TotalCents)
	require.Len(t, created.Lines, 1)
	assert.Equal(t, int64(1999), created.Lines[0].UnitPriceCents)

	assert.Equal(t, []string{"pi_test_1"}, f.ledger.bound)
	assert.Equal(t, []uuid.UUID{buyerID}, f.cart.cleared)
	assert.Empty(t, f.ledger.transitions)
}

func TestSubmitChargesVerifiedAmountNotClaimed(t *testing.T) {
	f := newFixture(t)

	input := validInput()
	input.ClaimedTotalCents = 4493 // verifier tolerates, but its own figure wins

	_, err := f.service.Submit(context.Background(), uuid.New(), input)
	require.NoError(t, err)

	require.Len(t, f.gateway.got, 1)
	assert.Equal(t, int64(4493), f.gateway.got[0].AmountCents)
	assert.Equal(t, enums.CurrencyEUR, f.gateway.got[0].Currency)
	assert.Equal(t, "LS-000042", f.gateway.got[0].HumanNumber)
}

func TestSubmitPriceMismatchStopsBeforeLedger(t *testing.T) {
	f := newFixture(t)
	f.verifier.err = pkgerrors.New(pkgerrors.CodePriceMismatch, "order total does not match current prices")

	_, err := f.service.Submit(context.Background(), uuid.New(), validInput())
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodePriceMismatch, typed.Code())
	assert.Empty(t, f.ledger.created, "no order may exist for a rejected quote")
	assert.Empty(t, f.gateway.got)
}

func TestSubmitGatewayFailureCancelsProvisionalOrder(t *testing.T) {
	f := newFixture(t)
	f.gateway.err = pkgerrors.New(pkgerrors.CodeDependency, "processor unavailable")

	_, err := f.service.Submit(context.Background(), uuid.New(), validInput())
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())

	require.Len(t, f.ledger.created, 1, "the provisional order was opened before the gateway call")
	assert.Equal(t, []enums.OrderState{enums.OrderStateCanceled}, f.ledger.transitions)
	assert.Empty(t, f.ledger.bound)
	assert.Empty(t, f.cart.cleared)
}

func TestSubmitBindFailurePropagates(t *testing.T) {
	f := newFixture(t)
	f.ledger.bindErr = pkgerrors.New(pkgerrors.CodeConflict, "authorization already bound to another order")

	_, err := f.service.Submit(context.Background(), uuid.New(), validInput())
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	assert.Empty(t, f.cart.cleared)
}

func TestSubmitCartClearFailureIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.cart.clearErr = pkgerrors.New(pkgerrors.CodeDependency, "redis unavailable")

	result, err := f.service.Submit(context.Background(), uuid.New(), validInput())
	require.NoError(t, err, "cart clearing is best effort")
	assert.NotNil(t, result)
}

func TestSubmitRequiresBuyer(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Submit(context.Background(), uuid.Nil, validInput())
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestSubmitRejectsInvalidAddress(t *testing.T) {
	f := newFixture(t)

	input := validInput()
	input.ShippingAddress.City = ""

	_, err := f.service.Submit(context.Background(), uuid.New(), input)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Empty(t, f.verifier.gotLines, "validation precedes price verification")
}
