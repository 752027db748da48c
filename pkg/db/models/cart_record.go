package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/velvetlane/storefront-backend/pkg/enums"
)

// CartRecord is the server-side cart for a buyer. One active record per
// buyer; the client copy is never authoritative.
type CartRecord struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID   uuid.UUID      `gorm:"column:buyer_id;type:uuid;not null;uniqueIndex"`
	Currency  enums.Currency `gorm:"column:currency;not null;default:'EUR'"`
	Items     []CartItem     `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
