package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/velvetlane/storefront-backend/api/routes"
	"github.com/velvetlane/storefront-backend/internal/cart"
	"github.com/velvetlane/storefront-backend/internal/catalog"
	"github.com/velvetlane/storefront-backend/internal/checkout"
	"github.com/velvetlane/storefront-backend/internal/orders"
	"github.com/velvetlane/storefront-backend/internal/payments"
	"github.com/velvetlane/storefront-backend/internal/pricing"
	"github.com/velvetlane/storefront-backend/internal/reconcile"
	"github.com/velvetlane/storefront-backend/pkg/config"
	"github.com/velvetlane/storefront-backend/pkg/db"
	"github.com/velvetlane/storefront-backend/pkg/logger"
	"github.com/velvetlane/storefront-backend/pkg/metrics"
	"github.com/velvetlane/storefront-backend/pkg/migrate"
	"github.com/velvetlane/storefront-backend/pkg/outbox"
	"github.com/velvetlane/storefront-backend/pkg/redis"
	pkgstripe "github.com/velvetlane/storefront-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	gateway, err := payments.NewStripeGateway(stripeClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cart.NewRepository(dbClient.DB()), catalogService, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	verifier, err := pricing.NewVerifier(catalogService)
	if err != nil {
		logg.Error(context.Background(), "failed to create price verifier", err)
		os.Exit(1)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order ledger", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(verifier, ordersService, gateway, cartService, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	reconcileService, err := reconcile.NewService(reconcile.NewEventRepository(dbClient.DB()), ordersService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciliation service", err)
		os.Exit(1)
	}

	webhookGuard, err := reconcile.NewIdempotencyGuard(redisClient, cfg.Webhooks.GuardTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	webhookMetrics := metrics.NewWebhookMetrics(prometheus.DefaultRegisterer)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			catalogService,
			cartService,
			checkoutService,
			ordersService,
			gateway,
			reconcileService,
			webhookGuard,
			webhookMetrics,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
