package cart

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velvetlane/storefront-backend/internal/catalog"
	"github.com/velvetlane/storefront-backend/pkg/db/models"
	pkgerrors "github.com/velvetlane/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// LineView is a cart line as returned to clients.
type LineView struct {
	LineKey        string    `json:"line_key"`
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Size           string    `json:"size,omitempty"`
	Color          string    `json:"color,omitempty"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	LineTotalCents int64     `json:"line_total_cents"`
}

// View is the cart plus its freshly computed summary.
type View struct {
	Lines   []LineView `json:"lines"`
	Summary Summary    `json:"summary"`
}

// Service is the server-side cart. The stored cart is authoritative; client
// copies are display caches.
type Service interface {
	Get(ctx context.Context, buyerID uuid.UUID) (*View, error)
	AddLine(ctx context.Context, buyerID, productID uuid.UUID, size, color string) (*View, error)
	SetQuantity(ctx context.Context, buyerID uuid.UUID, lineKey string, qty int) (*View, error)
	RemoveLine(ctx context.Context, buyerID uuid.UUID, lineKey string) (*View, error)
	Clear(ctx context.Context, buyerID uuid.UUID) error
}

type service struct {
	repo    Repository
	catalog catalog.Service
	tx      txRunner
}

// NewService builds the cart service with the required dependencies.
func NewService(repo Repository, catalogSvc catalog.Service, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, catalog: catalogSvc, tx: tx}, nil
}

func (s *service) Get(ctx context.Context, buyerID uuid.UUID) (*View, error) {
	record, err := s.repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return &View{Lines: []LineView{}, Summary: ComputeSummary(nil, 0)}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	return s.buildView(ctx, record)
}

func (s *service) AddLine(ctx context.Context, buyerID, productID uuid.UUID, size, color string) (*View, error) {
	product, err := s.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.Active || product.StockQty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}

	key := LineKey(productID, size, color)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindOrCreateByBuyer(ctx, buyerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
		}

		qty := 1
		for _, item := range record.Items {
			if item.LineKey == key {
				qty = item.Quantity + 1
				break
			}
		}
		// never let a line exceed what is actually in stock
		if qty > product.StockQty {
			qty = product.StockQty
		}

		item := models.CartItem{
			CartID:         record.ID,
			LineKey:        key,
			ProductID:      productID,
			Size:           size,
			Color:          color,
			Quantity:       qty,
			UnitPriceCents: product.EffectivePriceCents(),
		}
		if err := repo.UpsertItem(ctx, &item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving cart line")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, buyerID)
}

func (s *service) SetQuantity(ctx context.Context, buyerID uuid.UUID, lineKey string, qty int) (*View, error) {
	record, err := s.repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}

	var target *models.CartItem
	for i := range record.Items {
		if record.Items[i].LineKey == lineKey {
			target = &record.Items[i]
			break
		}
	}
	if target == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}

	// zero or negative quantity means remove, matching storefront behavior
	if qty <= 0 {
		if err := s.repo.DeleteItem(ctx, record.ID, lineKey); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing cart line")
		}
		return s.Get(ctx, buyerID)
	}

	product, err := s.catalog.GetByID(ctx, target.ProductID)
	if err != nil {
		return nil, err
	}
	if qty > product.StockQty {
		qty = product.StockQty
	}
	if qty <= 0 {
		if err := s.repo.DeleteItem(ctx, record.ID, lineKey); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing cart line")
		}
		return s.Get(ctx, buyerID)
	}

	if err := s.repo.UpdateItemQuantity(ctx, record.ID, lineKey, qty); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating cart line")
	}
	return s.Get(ctx, buyerID)
}

func (s *service) RemoveLine(ctx context.Context, buyerID uuid.UUID, lineKey string) (*View, error) {
	record, err := s.repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return &View{Lines: []LineView{}, Summary: ComputeSummary(nil, 0)}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	if err := s.repo.DeleteItem(ctx, record.ID, lineKey); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "removing cart line")
	}
	return s.Get(ctx, buyerID)
}

func (s *service) Clear(ctx context.Context, buyerID uuid.UUID) error {
	record, err := s.repo.FindByBuyer(ctx, buyerID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	if err := s.repo.DeleteItems(ctx, record.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart")
	}
	return nil
}

func (s *service) buildView(ctx context.Context, record *models.CartRecord) (*View, error) {
	ids := make([]uuid.UUID, 0, len(record.Items))
	for _, item := range record.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	lines := make([]LineView, 0, len(record.Items))
	summaryLines := make([]SummaryLine, 0, len(record.Items))
	for _, item := range record.Items {
		name := ""
		if product, ok := products[item.ProductID]; ok {
			name = product.Name
		}
		lines = append(lines, LineView{
			LineKey:        item.LineKey,
			ProductID:      item.ProductID,
			Name:           name,
			Size:           item.Size,
			Color:          item.Color,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			LineTotalCents: item.UnitPriceCents * int64(item.Quantity),
		})
		summaryLines = append(summaryLines, SummaryLine{
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}

	return &View{
		Lines:   lines,
		Summary: ComputeSummary(summaryLines, 0),
	}, nil
}
