package reconcile

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/velvetlane/storefront-backend/pkg/db/models"
)

// EventRepository persists the append-only payment event dedup records.
type EventRepository interface {
	WithTx(tx *gorm.DB) EventRepository
	Insert(ctx context.Context, event *models.PaymentEvent) error
	Delete(ctx context.Context, processorEventID string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository builds a payment event repository bound to the provided DB.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) WithTx(tx *gorm.DB) EventRepository {
	if tx == nil {
		return r
	}
	return &eventRepository{db: tx}
}

func (r *eventRepository) Insert(ctx context.Context, event *models.PaymentEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepository) Delete(ctx context.Context, processorEventID string) error {
	return r.db.WithContext(ctx).
		Where("processor_event_id = ?", processorEventID).
		Delete(&models.PaymentEvent{}).Error
}

// DeleteOlderThan trims records past the retention window. The window is
// kept well beyond the processor's redelivery horizon so dedup never loses
// a replay it still needs to catch.
func (r *eventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("received_at < ?", cutoff).
		Delete(&models.PaymentEvent{})
	return res.RowsAffected, res.Error
}
