package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/velvetlane/storefront-backend/pkg/logger"
)

const (
	defaultPaymentEventRetention = 30 * 24 * time.Hour
	defaultOutboxRetention       = 30 * 24 * time.Hour
)

type paymentEventPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type outboxPruner interface {
	DeletePublishedBefore(cutoff time.Time) (int64, error)
}

// RetentionJobParams configure the dedup and outbox retention sweep.
type RetentionJobParams struct {
	Logger                *logger.Logger
	PaymentEvents         paymentEventPruner
	Outbox                outboxPruner
	PaymentEventRetention time.Duration
	OutboxRetention       time.Duration
}

// NewRetentionJob builds the cron job that trims payment event records and
// published outbox rows past their retention windows. The payment event
// window must stay longer than the processor's redelivery horizon or replay
// protection degrades.
func NewRetentionJob(params RetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.PaymentEvents == nil {
		return nil, fmt.Errorf("payment event pruner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox pruner required")
	}
	eventRetention := params.PaymentEventRetention
	if eventRetention <= 0 {
		eventRetention = defaultPaymentEventRetention
	}
	outboxRetention := params.OutboxRetention
	if outboxRetention <= 0 {
		outboxRetention = defaultOutboxRetention
	}
	return &retentionJob{
		logg:            params.Logger,
		paymentEvents:   params.PaymentEvents,
		outbox:          params.Outbox,
		eventRetention:  eventRetention,
		outboxRetention: outboxRetention,
		now:             time.Now,
	}, nil
}

type retentionJob struct {
	logg            *logger.Logger
	paymentEvents   paymentEventPruner
	outbox          outboxPruner
	eventRetention  time.Duration
	outboxRetention time.Duration
	now             func() time.Time
}

func (j *retentionJob) Name() string { return "retention" }

func (j *retentionJob) Run(ctx context.Context) error {
	var errs []error
	if err := j.pruneLedgerEvents(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := j.pruneOutbox(ctx); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

func (j *retentionJob) pruneLedgerEvents(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.eventRetention)
	deleted, err := j.paymentEvents.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("payment event retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "payment event retention cleanup complete")
	return nil
}

func (j *retentionJob) pruneOutbox(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.outboxRetention)
	deleted, err := j.outbox.DeletePublishedBefore(cutoff)
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}
