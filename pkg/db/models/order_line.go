package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLine freezes a verified cart line at checkout time. Prices here are
// the server-verified amounts, never the client's.
type OrderLine struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Name           string    `gorm:"column:name;not null"`
	Size           string    `gorm:"column:size;not null;default:''"`
	Color          string    `gorm:"column:color;not null;default:''"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
