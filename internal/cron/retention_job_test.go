package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/velvetlane/storefront-backend/pkg/logger"
)

type fakeEventPruner struct {
	gotCutoff time.Time
	deleted   int64
	err       error
}

func (f *fakeEventPruner) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.gotCutoff = cutoff
	return f.deleted, f.err
}

type fakeOutboxPruner struct {
	gotCutoff time.Time
	deleted   int64
	err       error
}

func (f *fakeOutboxPruner) DeletePublishedBefore(cutoff time.Time) (int64, error) {
	f.gotCutoff = cutoff
	return f.deleted, f.err
}

func TestRetentionJobUsesConfiguredWindows(t *testing.T) {
	now := time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	events := &fakeEventPruner{deleted: 12}
	outbox := &fakeOutboxPruner{deleted: 4}

	job, err := NewRetentionJob(RetentionJobParams{
		Logger:                logger.New(logger.Options{ServiceName: "cron-test"}),
		PaymentEvents:         events,
		Outbox:                outbox,
		PaymentEventRetention: 30 * 24 * time.Hour,
		OutboxRetention:       14 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}
	job.(*retentionJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := now.Add(-30 * 24 * time.Hour); !events.gotCutoff.Equal(want) {
		t.Fatalf("payment event cutoff = %v, want %v", events.gotCutoff, want)
	}
	if want := now.Add(-14 * 24 * time.Hour); !outbox.gotCutoff.Equal(want) {
		t.Fatalf("outbox cutoff = %v, want %v", outbox.gotCutoff, want)
	}
}

func TestRetentionJobRunsBothPrunersDespiteFailure(t *testing.T) {
	events := &fakeEventPruner{err: errors.New("boom")}
	outbox := &fakeOutboxPruner{}

	job, err := NewRetentionJob(RetentionJobParams{
		Logger:        logger.New(logger.Options{ServiceName: "cron-test"}),
		PaymentEvents: events,
		Outbox:        outbox,
	})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected combined error")
	}
	if outbox.gotCutoff.IsZero() {
		t.Fatalf("outbox pruner should still run after payment event failure")
	}
}
