package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/velvetlane/storefront-backend/internal/orders"
	"github.com/velvetlane/storefront-backend/pkg/db/models"
	"github.com/velvetlane/storefront-backend/pkg/enums"
	pkgerrors "github.com/velvetlane/storefront-backend/pkg/errors"
	"github.com/velvetlane/storefront-backend/pkg/logger"
)

type fakeStaleReader struct {
	orders     []models.Order
	gotCutoff  time.Time
	gotLimit   int
	queryCalls int
}

func (f *fakeStaleReader) FindStalePending(_ context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	f.queryCalls++
	f.gotCutoff = cutoff
	f.gotLimit = limit
	return f.orders, nil
}

type fakeLedger struct {
	orders.Service
	transitions []transitionCall
	errByOrder  map[uuid.UUID]error
}

type transitionCall struct {
	orderID uuid.UUID
	target  enums.OrderState
	opts    orders.TransitionOpts
}

func (f *fakeLedger) Transition(_ context.Context, orderID uuid.UUID, target enums.OrderState, opts orders.TransitionOpts) (*models.Order, error) {
	f.transitions = append(f.transitions, transitionCall{orderID: orderID, target: target, opts: opts})
	if err, ok := f.errByOrder[orderID]; ok {
		return nil, err
	}
	return &models.Order{ID: orderID, State: target}, nil
}

func newReaperJob(t *testing.T, reader *fakeStaleReader, ledger *fakeLedger, now time.Time) Job {
	t.Helper()
	job, err := NewOrderReaperJob(OrderReaperJobParams{
		Logger:        logger.New(logger.Options{ServiceName: "cron-test"}),
		Reader:        reader,
		Ledger:        ledger,
		PendingMaxAge: 24 * time.Hour,
		BatchSize:     50,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	job.(*orderReaperJob).now = func() time.Time { return now }
	return job
}

func TestOrderReaperExpiresStalePendingOrders(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	first := models.Order{ID: uuid.New(), State: enums.OrderStatePendingAuthorization}
	second := models.Order{ID: uuid.New(), State: enums.OrderStatePendingAuthorization}
	reader := &fakeStaleReader{orders: []models.Order{first, second}}
	ledger := &fakeLedger{}

	job := newReaperJob(t, reader, ledger, now)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	wantCutoff := now.Add(-24 * time.Hour)
	if !reader.gotCutoff.Equal(wantCutoff) {
		t.Fatalf("cutoff = %v, want %v", reader.gotCutoff, wantCutoff)
	}
	if reader.gotLimit != 50 {
		t.Fatalf("limit = %d, want 50", reader.gotLimit)
	}
	if len(ledger.transitions) != 2 {
		t.Fatalf("expected 2 transitions, got %d", len(ledger.transitions))
	}
	for _, call := range ledger.transitions {
		if call.target != enums.OrderStateCanceled {
			t.Fatalf("target = %s, want canceled", call.target)
		}
		if call.opts.RequireFrom == nil || *call.opts.RequireFrom != enums.OrderStatePendingAuthorization {
			t.Fatalf("transition did not require pending state")
		}
		if call.opts.OutboxEvent != enums.EventOrderExpired {
			t.Fatalf("outbox event = %s, want order_expired", call.opts.OutboxEvent)
		}
	}
}

func TestOrderReaperSkipsOrdersThatMovedOn(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	moved := models.Order{ID: uuid.New(), State: enums.OrderStatePendingAuthorization}
	stale := models.Order{ID: uuid.New(), State: enums.OrderStatePendingAuthorization}
	reader := &fakeStaleReader{orders: []models.Order{moved, stale}}
	ledger := &fakeLedger{errByOrder: map[uuid.UUID]error{
		moved.ID: pkgerrors.New(pkgerrors.CodeStateConflict, "order is confirmed, expected pending_authorization"),
	}}

	job := newReaperJob(t, reader, ledger, now)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run should tolerate state conflicts: %v", err)
	}
	if len(ledger.transitions) != 2 {
		t.Fatalf("expected both orders attempted, got %d", len(ledger.transitions))
	}
}

func TestOrderReaperReportsTransitionFailures(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	broken := models.Order{ID: uuid.New(), State: enums.OrderStatePendingAuthorization}
	reader := &fakeStaleReader{orders: []models.Order{broken}}
	ledger := &fakeLedger{errByOrder: map[uuid.UUID]error{
		broken.ID: pkgerrors.New(pkgerrors.CodeDependency, "database unavailable"),
	}}

	job := newReaperJob(t, reader, ledger, now)
	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected error for failed transition")
	}
}
