package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/velvetlane/storefront-backend/api/responses"
	pkgerrors "github.com/velvetlane/storefront-backend/pkg/errors"
	"github.com/velvetlane/storefront-backend/pkg/logger"
)

const (
	rateLimitPerWindow = 120
	rateLimitWindow    = time.Minute
)

// RateLimiter is the counting surface the middleware needs from redis.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit caps each buyer to a fixed request budget per minute across
// the authenticated surface. Redis trouble fails open: dropping traffic
// because the limiter is down hurts more than a minute without limits.
func RateLimit(limiter RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			buyerID := BuyerIDFromContext(r.Context())
			if buyerID == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, count, err := limiter.FixedWindowAllow(r.Context(), "buyer:"+buyerID, rateLimitPerWindow, rateLimitWindow)
			if err != nil {
				if logg != nil {
					logg.Error(r.Context(), "rate limiter unavailable", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(rateLimitWindow.Seconds())))
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded").
					WithDetails(map[string]any{"limit": rateLimitPerWindow, "window_seconds": int(rateLimitWindow.Seconds()), "count": count}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
