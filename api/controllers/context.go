package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/velvetlane/storefront-backend/api/middleware"
	pkgerrors "github.com/velvetlane/storefront-backend/pkg/errors"
)

func buyerIDFromContext(r *http.Request) (uuid.UUID, error) {
	if r == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	raw := middleware.BuyerIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	buyerID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid buyer id")
	}
	return buyerID, nil
}
