package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/velvetlane/storefront-backend/pkg/errors"
)

// ParseQueryInt reads an optional integer query parameter, returning
// fallback when absent and a coded validation error when malformed or
// outside [lo, hi].
func ParseQueryInt(r *http.Request, key string, fallback, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").
			WithDetails(map[string]any{"field": key})
	}
	if value < lo || value > hi {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").
			WithDetails(map[string]any{"field": key, "min": lo, "max": hi})
	}
	return value, nil
}
