package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/velvetlane/storefront-backend/api/controllers"
	webhookcontrollers "github.com/velvetlane/storefront-backend/api/controllers/webhooks"
	"github.com/velvetlane/storefront-backend/api/middleware"
	cartsvc "github.com/velvetlane/storefront-backend/internal/cart"
	"github.com/velvetlane/storefront-backend/internal/catalog"
	checkoutsvc "github.com/velvetlane/storefront-backend/internal/checkout"
	ordersvc "github.com/velvetlane/storefront-backend/internal/orders"
	"github.com/velvetlane/storefront-backend/internal/payments"
	"github.com/velvetlane/storefront-backend/internal/reconcile"
	"github.com/velvetlane/storefront-backend/pkg/config"
	"github.com/velvetlane/storefront-backend/pkg/db"
	"github.com/velvetlane/storefront-backend/pkg/logger"
	"github.com/velvetlane/storefront-backend/pkg/metrics"
	"github.com/velvetlane/storefront-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	catalogService catalog.Service,
	cartService cartsvc.Service,
	checkoutService checkoutsvc.Service,
	ordersService ordersvc.Service,
	gateway payments.Gateway,
	reconcileService reconcile.Service,
	webhookGuard *reconcile.IdempotencyGuard,
	webhookMetrics *metrics.WebhookMetrics,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	// webhook endpoint stays outside buyer auth: the processor signs its
	// own deliveries
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(gateway, webhookGuard, reconcileService, webhookMetrics, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(catalogService, logg))
		r.Get("/{slug}", controllers.ProductDetail(catalogService, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(rateLimiterOrNil(redisClient), logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/v1/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
			r.Post("/items", controllers.CartAddLine(cartService, logg))
			r.Put("/items/{lineKey}", controllers.CartSetQuantity(cartService, logg))
			r.Delete("/items/{lineKey}", controllers.CartRemoveLine(cartService, logg))
		})

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(ordersService, logg))
		})

		r.Post("/v1/checkout", controllers.Checkout(checkoutService, logg))
	})

	return r
}

// rateLimiterOrNil keeps a typed-nil *redis.Client from defeating the
// middleware's nil check.
func rateLimiterOrNil(client *redis.Client) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return client
}
