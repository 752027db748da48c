package orders

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/velvetlane/storefront-backend/pkg/db"
	"github.com/velvetlane/storefront-backend/pkg/db/models"
	"github.com/velvetlane/storefront-backend/pkg/enums"
	pkgerrors "github.com/velvetlane/storefront-backend/pkg/errors"
	"github.com/velvetlane/storefront-backend/pkg/logger"
	"github.com/velvetlane/storefront-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the order ledger: provisional creation, authorization binding
// and the state machine. It is the only writer of order state.
type Service interface {
	CreateProvisional(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.Order, error)
	BindAuthorization(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, authorizationID string) error
	Transition(ctx context.Context, orderID uuid.UUID, target enums.OrderState, opts TransitionOpts) (*models.Order, error)
	GetByAuthorization(ctx context.Context, authorizationID string) (*models.Order, error)
	GetForBuyer(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)
	CancelByBuyer(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds the order ledger service.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outboxSvc,
		logg:   logg,
		now:    time.Now,
	}, nil
}

// HumanNumber formats the sequential order number the way receipts and
// confirmation emails show it.
func HumanNumber(orderNumber int64) string {
	return fmt.Sprintf("LS-%06d", orderNumber)
}

func (s *service) CreateProvisional(ctx context.Context, tx *gorm.DB, input CreateInput) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no lines")
	}

	repo := s.repo.WithTx(tx)

	number, err := repo.NextOrderNumber(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocating order number")
	}

	order := models.Order{
		OrderNumber:     number,
		HumanNumber:     HumanNumber(number),
		BuyerID:         input.BuyerID,
		State:           enums.OrderStatePendingAuthorization,
		Currency:        input.Currency,
		SubtotalCents:   input.SubtotalCents,
		ShippingCents:   input.ShippingCents,
		TotalCents:      input.TotalCents,
		ShippingAddress: input.ShippingAddress,
	}
	for _, line := range input.Lines {
		order.Lines = append(order.Lines, models.OrderLine{
			ProductID:      line.ProductID,
			Name:           line.Name,
			Size:           line.Size,
			Color:          line.Color,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
		})
	}

	created, err := repo.Create(ctx, &order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating order")
	}
	return created, nil
}

func (s *service) BindAuthorization(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, authorizationID string) error {
	if authorizationID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "authorization id required")
	}
	repo := s.repo
	if tx != nil {
		repo = s.repo.WithTx(tx)
	}
	rows, err := repo.BindAuthorization(ctx, orderID, authorizationID)
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_orders_payment_authorization") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "authorization already bound to another order")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "binding authorization")
	}
	if rows == 0 {
		existing, findErr := repo.FindByID(ctx, orderID)
		if findErr != nil {
			if stdErrors.Is(findErr, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "loading order")
		}
		if existing.PaymentAuthorizationID != nil && *existing.PaymentAuthorizationID == authorizationID {
			// redelivered binding of the same authorization is a no-op
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeConflict, "order is already bound to a different authorization")
	}
	return nil
}

func (s *service) Transition(ctx context.Context, orderID uuid.UUID, target enums.OrderState, opts TransitionOpts) (*models.Order, error) {
	var result *models.Order

	// one retry on version conflict; past that the caller gets a retryable error
	for attempt := 0; attempt < 2; attempt++ {
		conflict := false
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			order, err := repo.FindByID(ctx, orderID)
			if err != nil {
				if stdErrors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
			}

			if order.State == target {
				// already there; nothing to apply
				result = order
				return nil
			}
			if opts.RequireFrom != nil && order.State != *opts.RequireFrom {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("order is %s, expected %s", order.State, *opts.RequireFrom)).
					WithDetails(map[string]any{"state": order.State, "expected": *opts.RequireFrom})
			}
			if !CanTransition(order.State, target) {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("transition %s -> %s disallowed", order.State, target)).
					WithDetails(map[string]any{"from": order.State, "to": target})
			}

			updates := map[string]any{"state": target}
			now := s.now()
			switch target {
			case enums.OrderStateConfirmed:
				updates["confirmed_at"] = now
			case enums.OrderStateCanceled:
				updates["canceled_at"] = now
			}
			if opts.DeclineReason != nil {
				updates["decline_reason"] = *opts.DeclineReason
			}

			affected, err := repo.UpdateStateVersioned(ctx, order.ID, order.Version, updates)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating order state")
			}
			if affected == 0 {
				conflict = true
				return pkgerrors.New(pkgerrors.CodeDependency, "order modified concurrently")
			}

			eventType := opts.OutboxEvent
			if eventType == "" {
				eventType = defaultEventFor(target)
			}
			if eventType != "" {
				event := outbox.DomainEvent{
					EventType:     eventType,
					AggregateType: enums.AggregateOrder,
					AggregateID:   order.ID,
					Data: OrderStateChangedEvent{
						OrderID:     order.ID,
						HumanNumber: order.HumanNumber,
						BuyerID:     order.BuyerID,
						FromState:   order.State,
						ToState:     target,
						TotalCents:  order.TotalCents,
						Currency:    order.Currency,
					},
					Version: 1,
				}
				if err := s.outbox.Emit(ctx, tx, event); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queueing order event")
				}
			}

			order.State = target
			order.Version++
			result = order
			return nil
		})
		if err == nil {
			return result, nil
		}
		if conflict && attempt == 0 {
			continue
		}
		return nil, err
	}

	return nil, pkgerrors.New(pkgerrors.CodeDependency, "order modified concurrently")
}

func (s *service) GetByAuthorization(ctx context.Context, authorizationID string) (*models.Order, error) {
	order, err := s.repo.FindByAuthorization(ctx, authorizationID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found for authorization")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return order, nil
}

func (s *service) GetForBuyer(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	if order.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	orders, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing orders")
	}
	return orders, nil
}

func (s *service) CancelByBuyer(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.GetForBuyer(ctx, buyerID, orderID)
	if err != nil {
		return nil, err
	}
	if !BuyerCanCancel(order.State) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be canceled").
			WithDetails(map[string]any{"state": order.State})
	}
	return s.Transition(ctx, orderID, enums.OrderStateCanceled, TransitionOpts{})
}

func defaultEventFor(target enums.OrderState) enums.OutboxEventType {
	switch target {
	case enums.OrderStateConfirmed:
		return enums.EventOrderConfirmed
	case enums.OrderStateCanceled:
		return enums.EventOrderCanceled
	case enums.OrderStateReturned:
		return enums.EventOrderReturned
	}
	return ""
}
