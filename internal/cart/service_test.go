package cart

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/velvetlane/storefront-backend/pkg/db/models"
	pkgerrors "github.com/velvetlane/storefront-backend/pkg/errors"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	cartRecords := `
CREATE TABLE IF NOT EXISTS cart_records (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(6)))),
  buyer_id TEXT NOT NULL UNIQUE,
  currency TEXT NOT NULL DEFAULT 'EUR',
  created_at DATETIME,
  updated_at DATETIME
);`
	cartItems := `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(2)) || '-' || hex(randomblob(6)))),
  cart_id TEXT NOT NULL,
  line_key TEXT NOT NULL,
  product_id TEXT NOT NULL,
  size TEXT NOT NULL DEFAULT '',
  color TEXT NOT NULL DEFAULT '',
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (cart_id, line_key)
);`
	require.NoError(t, db.Exec(cartRecords).Error)
	require.NoError(t, db.Exec(cartItems).Error)
	return db
}

type stubCatalog struct {
	products map[uuid.UUID]models.Product
}

func (s *stubCatalog) GetByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return &product, nil
}

func (s *stubCatalog) GetBySlug(_ context.Context, slug string) (*models.Product, error) {
	for _, product := range s.products {
		if product.Slug == slug {
			return &product, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (s *stubCatalog) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	result := make(map[uuid.UUID]models.Product, len(ids))
	for _, id := range ids {
		if product, ok := s.products[id]; ok {
			result[id] = product
		}
	}
	return result, nil
}

func (s *stubCatalog) ListActive(_ context.Context) ([]models.Product, error) {
	var products []models.Product
	for _, product := range s.products {
		if product.Active {
			products = append(products, product)
		}
	}
	return products, nil
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

func newCartService(t *testing.T, db *gorm.DB, catalogStub *stubCatalog) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), catalogStub, &gormTxRunner{db: db})
	require.NoError(t, err)
	return svc
}

func mustCreateCart(t *testing.T, db *gorm.DB, buyerID uuid.UUID) *models.CartRecord {
	t.Helper()
	record := &models.CartRecord{ID: uuid.New(), BuyerID: buyerID}
	require.NoError(t, db.Create(record).Error)
	return record
}

func testProduct(price int64, stock int) models.Product {
	return models.Product{
		ID:         uuid.New(),
		Slug:       "tee-" + uuid.NewString()[:8],
		Name:       "Crewneck Tee",
		PriceCents: price,
		Active:     true,
		StockQty:   stock,
	}
}

func TestCartGetEmptyReturnsZeroSummary(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db, &stubCatalog{products: map[uuid.UUID]models.Product{}})

	view, err := svc.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.Equal(t, Summary{}, view.Summary)
}

func TestCartAddLineMergesSameVariant(t *testing.T) {
	db := setupCartTestDB(t)
	product := testProduct(1999, 10)
	catalogStub := &stubCatalog{products: map[uuid.UUID]models.Product{product.ID: product}}
	svc := newCartService(t, db, catalogStub)

	buyerID := uuid.New()
	mustCreateCart(t, db, buyerID)

	view, err := svc.AddLine(context.Background(), buyerID, product.ID, "M", "black")
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 1, view.Lines[0].Quantity)

	view, err = svc.AddLine(context.Background(), buyerID, product.ID, "M", "black")
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 2, view.Lines[0].Quantity)
	assert.Equal(t, int64(3998), view.Summary.SubtotalCents)
	assert.Equal(t, FlatShippingFeeCents, view.Summary.ShippingCents)
}

func TestCartAddLineDistinctVariantsStaySeparate(t *testing.T) {
	db := setupCartTestDB(t)
	product := testProduct(2500, 10)
	catalogStub := &stubCatalog{products: map[uuid.UUID]models.Product{product.ID: product}}
	svc := newCartService(t, db, catalogStub)

	buyerID := uuid.New()
	mustCreateCart(t, db, buyerID)

	_, err := svc.AddLine(context.Background(), buyerID, product.ID, "M", "black")
	require.NoError(t, err)
	view, err := svc.AddLine(context.Background(), buyerID, product.ID, "L", "black")
	require.NoError(t, err)
	assert.Len(t, view.Lines, 2)
	assert.Equal(t, int64(5000), view.Summary.SubtotalCents)
	assert.Equal(t, int64(0), view.Summary.ShippingCents, "threshold order ships free")
}

func TestCartAddLineClampsToStock(t *testing.T) {
	db := setupCartTestDB(t)
	product := testProduct(1000, 2)
	catalogStub := &stubCatalog{products: map[uuid.UUID]models.Product{product.ID: product}}
	svc := newCartService(t, db, catalogStub)

	buyerID := uuid.New()
	mustCreateCart(t, db, buyerID)

	for i := 0; i < 4; i++ {
		_, err := svc.AddLine(context.Background(), buyerID, product.ID, "", "")
		require.NoError(t, err)
	}
	view, err := svc.Get(context.Background(), buyerID)
	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 2, view.Lines[0].Quantity)
}

func TestCartAddLineRejectsUnavailableProduct(t *testing.T) {
	db := setupCartTestDB(t)
	product := testProduct(1000, 0)
	catalogStub := &stubCatalog{products: map[uuid.UUID]models.Product{product.ID: product}}
	svc := newCartService(t, db, catalogStub)

	_, err := svc.AddLine(context.Background(), uuid.New(), product.ID, "", "")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCartSetQuantityZeroRemovesLine(t *testing.T) {
	db := setupCartTestDB(t)
	product := testProduct(1500, 10)
	catalogStub := &stubCatalog{products: map[uuid.UUID]models.Product{product.ID: product}}
	svc := newCartService(t, db, catalogStub)

	buyerID := uuid.New()
	mustCreateCart(t, db, buyerID)

	view, err := svc.AddLine(context.Background(), buyerID, product.ID, "S", "white")
	require.NoError(t, err)
	lineKey := view.Lines[0].LineKey

	view, err = svc.SetQuantity(context.Background(), buyerID, lineKey, 0)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.Equal(t, Summary{}, view.Summary)
}

func TestCartSetQuantityUnknownLine(t *testing.T) {
	db := setupCartTestDB(t)
	product := testProduct(1500, 10)
	catalogStub := &stubCatalog{products: map[uuid.UUID]models.Product{product.ID: product}}
	svc := newCartService(t, db, catalogStub)

	buyerID := uuid.New()
	mustCreateCart(t, db, buyerID)
	_, err := svc.AddLine(context.Background(), buyerID, product.ID, "S", "white")
	require.NoError(t, err)

	_, err = svc.SetQuantity(context.Background(), buyerID, "missing-line", 3)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestCartClear(t *testing.T) {
	db := setupCartTestDB(t)
	product := testProduct(1500, 10)
	catalogStub := &stubCatalog{products: map[uuid.UUID]models.Product{product.ID: product}}
	svc := newCartService(t, db, catalogStub)

	buyerID := uuid.New()
	mustCreateCart(t, db, buyerID)
	_, err := svc.AddLine(context.Background(), buyerID, product.ID, "S", "white")
	require.NoError(t, err)

	require.NoError(t, svc.Clear(context.Background(), buyerID))

	view, err := svc.Get(context.Background(), buyerID)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)

	// clearing a cart that never existed is a no-op
	require.NoError(t, svc.Clear(context.Background(), uuid.New()))
}

// Random mutation sequences must never produce a summary that disagrees
// with recomputing from the stored lines, and quantities must stay inside
// [1, stock] no matter the order of operations.
func TestCartRandomMutationsKeepSummaryConsistent(t *testing.T) {
	db := setupCartTestDB(t)
	products := []models.Product{
		testProduct(799, 3),
		testProduct(2500, 8),
		testProduct(4999, 2),
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	svc := newCartService(t, db, &stubCatalog{products: byID})

	buyerID := uuid.New()
	mustCreateCart(t, db, buyerID)

	rng := rand.New(rand.NewSource(42))
	sizes := []string{"S", "M", "L"}
	ctx := context.Background()

	for step := 0; step < 200; step++ {
		view, err := svc.Get(ctx, buyerID)
		require.NoError(t, err)

		switch op := rng.Intn(10); {
		case op < 6:
			p := products[rng.Intn(len(products))]
			_, err = svc.AddLine(ctx, buyerID, p.ID, sizes[rng.Intn(len(sizes))], "")
			require.NoError(t, err)
		case op < 8 && len(view.Lines) > 0:
			line := view.Lines[rng.Intn(len(view.Lines))]
			_, err = svc.SetQuantity(ctx, buyerID, line.LineKey, rng.Intn(12)-2)
			require.NoError(t, err)
		case op < 9 && len(view.Lines) > 0:
			line := view.Lines[rng.Intn(len(view.Lines))]
			_, err = svc.RemoveLine(ctx, buyerID, line.LineKey)
			require.NoError(t, err)
		default:
			// fall through to the checks with the cart untouched
		}

		view, err = svc.Get(ctx, buyerID)
		require.NoError(t, err)

		seen := make(map[string]bool, len(view.Lines))
		recomputed := make([]SummaryLine, 0, len(view.Lines))
		for _, line := range view.Lines {
			require.False(t, seen[line.LineKey], "step %d: duplicate line key %s", step, line.LineKey)
			seen[line.LineKey] = true

			stock := byID[line.ProductID].StockQty
			require.GreaterOrEqual(t, line.Quantity, 1, "step %d", step)
			require.LessOrEqual(t, line.Quantity, stock, "step %d", step)
			recomputed = append(recomputed, SummaryLine{Quantity: line.Quantity, UnitPriceCents: line.UnitPriceCents})
		}

		want := ComputeSummary(recomputed, 0)
		require.Equal(t, want, view.Summary, "step %d", step)
		require.Equal(t, want.SubtotalCents-want.DiscountCents+want.ShippingCents, view.Summary.TotalCents, "step %d", step)
		require.Equal(t, ShippingCents(want.SubtotalCents), view.Summary.ShippingCents, "step %d", step)
	}
}
