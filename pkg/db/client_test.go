package db

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type ledgerEntry struct {
	ID   int
	Note string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&ledgerEntry{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	if err := conn.Exec("DELETE FROM ledger_entries").Error; err != nil {
		t.Fatalf("failed to reset table: %v", err)
	}
	return conn
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&ledgerEntry{Note: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var count int64
	if err := db.Model(&ledgerEntry{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&ledgerEntry{Note: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}
	if err := db.Model(&ledgerEntry{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to leave 1 record, got %d", count)
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	dup := errors.New(`ERROR: duplicate key value violates unique constraint "ux_orders_payment_authorization" (SQLSTATE 23505)`)

	if !IsUniqueViolation(dup, "ux_orders_payment_authorization") {
		t.Fatal("expected match on named constraint")
	}
	if IsUniqueViolation(dup, "ux_payment_events_processor_event") {
		t.Fatal("must not match a different constraint")
	}
	if !IsUniqueViolation(dup, "") {
		t.Fatal("expected generic duplicate-key match")
	}
	if IsUniqueViolation(errors.New("connection refused"), "") {
		t.Fatal("unrelated errors are not unique violations")
	}
	if IsUniqueViolation(nil, "any") {
		t.Fatal("nil error is never a violation")
	}
}

func TestIsUniqueViolationSQLiteColumnForm(t *testing.T) {
	dup := errors.New("UNIQUE constraint failed: payment_events.processor_event_id")

	if !IsUniqueViolation(dup, "ux_payment_events_processor_event") {
		t.Fatal("expected sqlite column form to match the named constraint")
	}
	if IsUniqueViolation(dup, "ux_orders_payment_authorization") {
		t.Fatal("must not match a constraint on a different column")
	}

	bind := errors.New("UNIQUE constraint failed: orders.payment_authorization_id")
	if !IsUniqueViolation(bind, "ux_orders_payment_authorization") {
		t.Fatal("expected sqlite binding violation to match")
	}
	if IsUniqueViolation(errors.New("UNIQUE constraint failed: orders.payment_authorization_id"), "ux_made_up") {
		t.Fatal("unknown constraint names must not match on the generic prefix")
	}
}
