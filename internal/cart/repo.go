package cart

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velvetlane/storefront-backend/pkg/db/models"
)

// Repository persists cart records and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error)
	FindOrCreateByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error)
	UpsertItem(ctx context.Context, item *models.CartItem) error
	UpdateItemQuantity(ctx context.Context, cartID uuid.UUID, lineKey string, qty int) error
	DeleteItem(ctx context.Context, cartID uuid.UUID, lineKey string) error
	DeleteItems(ctx context.Context, cartID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error) {
	var record models.CartRecord
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("buyer_id = ?", buyerID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindOrCreateByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.CartRecord, error) {
	record, err := r.FindByBuyer(ctx, buyerID)
	if err == nil {
		return record, nil
	}
	if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	fresh := models.CartRecord{BuyerID: buyerID}
	if err := r.db.WithContext(ctx).Create(&fresh).Error; err != nil {
		// a concurrent request may have created the record first
		if existing, findErr := r.FindByBuyer(ctx, buyerID); findErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return &fresh, nil
}

func (r *repository) UpsertItem(ctx context.Context, item *models.CartItem) error {
	var existing models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND line_key = ?", item.CartID, item.LineKey).
		First(&existing).Error
	if err == nil {
		return r.db.WithContext(ctx).Model(&existing).
			Updates(map[string]any{
				"quantity":         item.Quantity,
				"unit_price_cents": item.UnitPriceCents,
			}).Error
	}
	if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) UpdateItemQuantity(ctx context.Context, cartID uuid.UUID, lineKey string, qty int) error {
	return r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("cart_id = ? AND line_key = ?", cartID, lineKey).
		Update("quantity", qty).Error
}

func (r *repository) DeleteItem(ctx context.Context, cartID uuid.UUID, lineKey string) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND line_key = ?", cartID, lineKey).
		Delete(&models.CartItem{}).Error
}

func (r *repository) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}
