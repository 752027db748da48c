package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product is a catalog entry. The API only reads products; inventory is
// maintained by the back office.
type Product struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug           string         `gorm:"column:slug;not null;uniqueIndex"`
	Name           string         `gorm:"column:name;not null"`
	Description    *string        `gorm:"column:description"`
	PriceCents     int64          `gorm:"column:price_cents;not null"`
	SalePriceCents *int64         `gorm:"column:sale_price_cents"`
	Active         bool           `gorm:"column:active;not null;default:true"`
	StockQty       int            `gorm:"column:stock_qty;not null;default:0"`
	Sizes          pq.StringArray `gorm:"column:sizes;type:text[]"`
	Colors         pq.StringArray `gorm:"column:colors;type:text[]"`
	ImageURL       *string        `gorm:"column:image_url"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePriceCents returns the sale price when one is set.
func (p Product) EffectivePriceCents() int64 {
	if p.SalePriceCents != nil {
		return *p.SalePriceCents
	}
	return p.PriceCents
}
