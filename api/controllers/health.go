package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/velvetlane/storefront-backend/api/responses"
	"github.com/velvetlane/storefront-backend/pkg/config"
	pkgerrors "github.com/velvetlane/storefront-backend/pkg/errors"
	"github.com/velvetlane/storefront-backend/pkg/logger"
)

type pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness by probing the backing stores.
func HealthReady(cfg *config.Config, logg *logger.Logger, db pinger, redis pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				checks["postgres"] = "down"
				healthy = false
			} else {
				checks["postgres"] = "ok"
			}
		}
		if redis != nil {
			if err := redis.Ping(ctx); err != nil {
				checks["redis"] = "down"
				healthy = false
			} else {
				checks["redis"] = "ok"
			}
		}

		if !healthy {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
