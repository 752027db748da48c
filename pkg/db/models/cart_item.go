package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one variant line of a cart. LineKey is the deterministic
// digest of (product_id, size, color); identical variants merge into one
// line instead of creating a second one.
type CartItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID         uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:ux_cart_items_line"`
	LineKey        string    `gorm:"column:line_key;not null;uniqueIndex:ux_cart_items_line"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Size           string    `gorm:"column:size;not null;default:''"`
	Color          string    `gorm:"column:color;not null;default:''"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
