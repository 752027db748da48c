package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/velvetlane/storefront-backend/api/responses"
	"github.com/velvetlane/storefront-backend/api/validators"
	"github.com/velvetlane/storefront-backend/internal/catalog"
	"github.com/velvetlane/storefront-backend/pkg/db/models"
	pkgerrors "github.com/velvetlane/storefront-backend/pkg/errors"
	"github.com/velvetlane/storefront-backend/pkg/logger"
)

// ProductList exposes the active catalog.
func ProductList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		products, err := svc.ListActive(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]productResponse, 0, len(products))
		for _, product := range products {
			out = append(out, newProductResponse(product))
		}
		responses.WriteSuccess(w, out)
	}
}

// ProductDetail looks a product up by its slug.
func ProductDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		slug := validators.SanitizeString(chi.URLParam(r, "slug"), 128)
		if slug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product slug required"))
			return
		}

		product, err := svc.GetBySlug(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newProductResponse(*product))
	}
}

type productResponse struct {
	ID             uuid.UUID `json:"id"`
	Slug           string    `json:"slug"`
	Name           string    `json:"name"`
	PriceCents     int64     `json:"price_cents"`
	SalePriceCents *int64    `json:"sale_price_cents,omitempty"`
	Sizes          []string  `json:"sizes,omitempty"`
	Colors         []string  `json:"colors,omitempty"`
	InStock        bool      `json:"in_stock"`
}

func newProductResponse(product models.Product) productResponse {
	return productResponse{
		ID:             product.ID,
		Slug:           product.Slug,
		Name:           product.Name,
		PriceCents:     product.PriceCents,
		SalePriceCents: product.SalePriceCents,
		Sizes:          product.Sizes,
		Colors:         product.Colors,
		InStock:        product.StockQty > 0,
	}
}
