package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/velvetlane/storefront-backend/pkg/enums"
)

// PaymentEvent is the append-only dedup record for processor webhook
// deliveries. The unique index on processor_event_id makes replay detection
// atomic: the second insert of the same delivery fails.
type PaymentEvent struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProcessorEventID string                 `gorm:"column:processor_event_id;not null;uniqueIndex"`
	Kind             enums.PaymentEventKind `gorm:"column:kind;type:payment_event_kind;not null"`
	AuthorizationID  string                 `gorm:"column:authorization_id;not null;index"`
	ReceivedAt       time.Time              `gorm:"column:received_at;not null"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
}
