package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/velvetlane/storefront-backend/internal/orders"
	"github.com/velvetlane/storefront-backend/pkg/db/models"
	"github.com/velvetlane/storefront-backend/pkg/enums"
	pkgerrors "github.com/velvetlane/storefront-backend/pkg/errors"
	"github.com/velvetlane/storefront-backend/pkg/logger"
)

const (
	defaultPendingMaxAge   = 24 * time.Hour
	defaultReaperBatchSize = 100
)

type stalePendingReader interface {
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

// OrderReaperJobParams configure the stale pending order reaper.
type OrderReaperJobParams struct {
	Logger        *logger.Logger
	Reader        stalePendingReader
	Ledger        orders.Service
	PendingMaxAge time.Duration
	BatchSize     int
}

// NewOrderReaperJob builds the cron job that cancels orders stuck in
// pending_authorization past the cutoff. These are checkouts whose buyer
// never completed payment and whose processor never reported an outcome.
func NewOrderReaperJob(params OrderReaperJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("stale pending reader required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("order ledger required")
	}
	maxAge := params.PendingMaxAge
	if maxAge <= 0 {
		maxAge = defaultPendingMaxAge
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultReaperBatchSize
	}
	return &orderReaperJob{
		logg:      params.Logger,
		reader:    params.Reader,
		ledger:    params.Ledger,
		maxAge:    maxAge,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

type orderReaperJob struct {
	logg      *logger.Logger
	reader    stalePendingReader
	ledger    orders.Service
	maxAge    time.Duration
	batchSize int
	now       func() time.Time
}

func (j *orderReaperJob) Name() string { return "order-reaper" }

func (j *orderReaperJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.maxAge)
	stale, err := j.reader.FindStalePending(ctx, cutoff, j.batchSize)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}

	pending := enums.OrderStatePendingAuthorization
	expired := 0
	var errs []error
	for _, order := range stale {
		orderCtx := j.logg.WithOrderID(ctx, order.ID.String())
		_, err := j.ledger.Transition(orderCtx, order.ID, enums.OrderStateCanceled, orders.TransitionOpts{
			RequireFrom: &pending,
			OutboxEvent: enums.EventOrderExpired,
		})
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeStateConflict {
				// a webhook landed between the query and the reap; leave it
				continue
			}
			errs = append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		expired++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"scanned": len(stale),
		"expired": expired,
	})
	j.logg.Info(logCtx, "order reaper sweep complete")
	return multierr.Combine(errs...)
}
