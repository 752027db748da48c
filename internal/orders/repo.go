package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velvetlane/storefront-backend/pkg/db/models"
	"github.com/velvetlane/storefront-backend/pkg/enums"
)

// Repository persists ledger orders. Orders are append-and-update only;
// nothing here deletes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	NextOrderNumber(ctx context.Context) (int64, error)
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByAuthorization(ctx context.Context, authorizationID string) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)
	FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	BindAuthorization(ctx context.Context, orderID uuid.UUID, authorizationID string) (int64, error)
	UpdateStateVersioned(ctx context.Context, orderID uuid.UUID, fromVersion int, updates map[string]any) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) NextOrderNumber(ctx context.Context) (int64, error) {
	var next int64
	err := r.db.WithContext(ctx).
		Raw("SELECT nextval('order_number_seq')").
		Scan(&next).Error
	return next, err
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByAuthorization(ctx context.Context, authorizationID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("payment_authorization_id = ?", authorizationID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("state = ? AND created_at < ?", enums.OrderStatePendingAuthorization, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// BindAuthorization sets the authorization on an order that has none yet.
// The IS NULL guard keeps a second binding from overwriting the first; the
// caller inspects the affected-row count to tell bound-already from missing.
func (r *repository) BindAuthorization(ctx context.Context, orderID uuid.UUID, authorizationID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND payment_authorization_id IS NULL", orderID).
		Update("payment_authorization_id", authorizationID)
	return res.RowsAffected, res.Error
}

// UpdateStateVersioned applies updates only when the stored version still
// matches, returning the affected row count so callers can detect races.
func (r *repository) UpdateStateVersioned(ctx context.Context, orderID uuid.UUID, fromVersion int, updates map[string]any) (int64, error) {
	updates["version"] = fromVersion + 1
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND version = ?", orderID, fromVersion).
		Updates(updates)
	return res.RowsAffected, res.Error
}
