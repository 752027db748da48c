package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/velvetlane/storefront-backend/pkg/enums"
	"github.com/velvetlane/storefront-backend/pkg/types"
)

// Order is the ledger record for a submitted checkout. Orders are never
// deleted; canceled and returned orders stay queryable.
type Order struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber int64            `gorm:"column:order_number;not null;uniqueIndex"`
	HumanNumber string           `gorm:"column:human_number;not null;uniqueIndex"`
	BuyerID     uuid.UUID        `gorm:"column:buyer_id;type:uuid;not null;index"`
	State       enums.OrderState `gorm:"column:state;type:order_state;not null;default:'pending_authorization'"`

	Currency      enums.Currency `gorm:"column:currency;not null;default:'EUR'"`
	SubtotalCents int64          `gorm:"column:subtotal_cents;not null"`
	DiscountCents int64          `gorm:"column:discount_cents;not null;default:0"`
	ShippingCents int64          `gorm:"column:shipping_cents;not null"`
	TotalCents    int64          `gorm:"column:total_cents;not null"`

	// PaymentAuthorizationID is the processor-side authorization bound to
	// this order. The unique index enforces one order per authorization.
	PaymentAuthorizationID *string `gorm:"column:payment_authorization_id;uniqueIndex"`
	DeclineReason          *string `gorm:"column:decline_reason"`

	ShippingAddress *types.Address `gorm:"column:shipping_address;type:jsonb;serializer:json"`

	// Version guards concurrent state transitions.
	Version int `gorm:"column:version;not null;default:0"`

	Lines []OrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	ConfirmedAt *time.Time `gorm:"column:confirmed_at"`
	CanceledAt  *time.Time `gorm:"column:canceled_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
