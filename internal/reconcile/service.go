package reconcile

import (
	"context"
	"fmt"

	"github.com/velvetlane/storefront-backend/internal/orders"
	"github.com/velvetlane/storefront-backend/internal/payments"
	dbpkg "github.com/velvetlane/storefront-backend/pkg/db"
	"github.com/velvetlane/storefront-backend/pkg/db/models"
	"github.com/velvetlane/storefront-backend/pkg/enums"
	pkgerrors "github.com/velvetlane/storefront-backend/pkg/errors"
	"github.com/velvetlane/storefront-backend/pkg/logger"
)

// Result classifies what a processor event did to the ledger.
type Result string

const (
	// ResultApplied means the event moved an order to a new state.
	ResultApplied Result = "applied"
	// ResultDuplicate means the exact delivery was seen before; nothing changed.
	ResultDuplicate Result = "duplicate"
	// ResultNoOrder means no order is bound to the authorization; recorded and skipped.
	ResultNoOrder Result = "no_order"
	// ResultIgnored means the event changed nothing: a stale outcome, or
	// a distinct delivery whose outcome the order already reflects.
	ResultIgnored Result = "ignored"
)

// Service is the reconciliation engine: it converges ledger state with what
// the payment processor reports, exactly once per distinct delivery.
type Service interface {
	HandleEvent(ctx context.Context, event payments.Event) (Result, error)
}

type service struct {
	events EventRepository
	ledger orders.Service
	logg   *logger.Logger
}

// NewService builds the reconciliation engine.
func NewService(events EventRepository, ledger orders.Service, logg *logger.Logger) (Service, error) {
	if events == nil {
		return nil, fmt.Errorf("event repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("order ledger required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{events: events, ledger: ledger, logg: logg}, nil
}

func (s *service) HandleEvent(ctx context.Context, event payments.Event) (Result, error) {
	if event.ID == "" || event.AuthorizationID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "event id and authorization id required")
	}
	if !event.Kind.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown event kind %q", event.Kind))
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":         event.ID,
		"event_kind":       event.Kind,
		"authorization_id": event.AuthorizationID,
	})

	// The unique index on processor_event_id is the authoritative replay
	// check: the second insert of the same delivery fails here and the
	// ledger is never touched again.
	record := models.PaymentEvent{
		ProcessorEventID: event.ID,
		Kind:             event.Kind,
		AuthorizationID:  event.AuthorizationID,
		ReceivedAt:       event.ReceivedAt,
	}
	if err := s.events.Insert(ctx, &record); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_payment_events_processor_event") {
			s.logg.Info(ctx, "payment event replayed, skipping")
			return ResultDuplicate, nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recording payment event")
	}

	result, err := s.apply(ctx, event)
	if err != nil {
		// Drop the dedup record so the processor's retry can land once the
		// transient failure clears.
		if pkgerrors.IsRetryable(err) {
			if delErr := s.events.Delete(ctx, event.ID); delErr != nil {
				s.logg.Error(ctx, "failed to release payment event record", delErr)
			}
		}
		return "", err
	}
	return result, nil
}

func (s *service) apply(ctx context.Context, event payments.Event) (Result, error) {
	order, err := s.ledger.GetByAuthorization(ctx, event.AuthorizationID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			// Authorization unknown to the ledger. Recorded for audit, no
			// order mutation; the processor gets a success either way.
			s.logg.Warn(ctx, "payment event has no matching order")
			return ResultNoOrder, nil
		}
		return "", err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	pending := enums.OrderStatePendingAuthorization
	opts := orders.TransitionOpts{RequireFrom: &pending}

	var target enums.OrderState
	switch event.Kind {
	case enums.PaymentEventAuthorizationSucceeded:
		target = enums.OrderStateConfirmed
	case enums.PaymentEventAuthorizationFailed:
		target = enums.OrderStateCanceled
		opts.DeclineReason = event.DeclineReason
	case enums.PaymentEventAuthorizationCanceled:
		target = enums.OrderStateCanceled
	}

	if order.State == target {
		// a prior delivery already landed this outcome; nothing mutated
		return ResultIgnored, nil
	}

	if _, err := s.ledger.Transition(ctx, order.ID, target, opts); err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
			// The order moved past pending before this event arrived. A
			// stale failure after a success must not undo a paid order.
			s.logg.Warn(ctx, fmt.Sprintf("stale %s event for order in state %s", event.Kind, order.State))
			return ResultIgnored, nil
		}
		return "", err
	}

	s.logg.Info(ctx, fmt.Sprintf("order reconciled to %s", target))
	return ResultApplied, nil
}
