package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/velvetlane/storefront-backend/internal/cron"
	"github.com/velvetlane/storefront-backend/internal/orders"
	"github.com/velvetlane/storefront-backend/internal/reconcile"
	"github.com/velvetlane/storefront-backend/pkg/config"
	"github.com/velvetlane/storefront-backend/pkg/db"
	"github.com/velvetlane/storefront-backend/pkg/logger"
	"github.com/velvetlane/storefront-backend/pkg/metrics"
	"github.com/velvetlane/storefront-backend/pkg/migrate"
	"github.com/velvetlane/storefront-backend/pkg/outbox"
	"github.com/velvetlane/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	interval := cfg.Reaper.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), interval+5*time.Minute)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)
	ordersRepo := orders.NewRepository(dbClient.DB())
	ledger, err := orders.NewService(ordersRepo, dbClient, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create order ledger", err)
		os.Exit(1)
	}

	reaperJob, err := cron.NewOrderReaperJob(cron.OrderReaperJobParams{
		Logger:        logg,
		Reader:        ordersRepo,
		Ledger:        ledger,
		PendingMaxAge: cfg.Reaper.PendingMaxAge,
		BatchSize:     cfg.Reaper.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order reaper job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewRetentionJob(cron.RetentionJobParams{
		Logger:                logg,
		PaymentEvents:         reconcile.NewEventRepository(dbClient.DB()),
		Outbox:                outboxRepo,
		PaymentEventRetention: cfg.Retention.PaymentEventMaxAge,
		OutboxRetention:       cfg.Retention.OutboxMaxAge,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create retention job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(reaperJob, retentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "cron-worker",
	})
	logg.Info(ctx, "starting cron worker")

	go serveMetrics(ctx, logg, cfg.App.MetricsAddr)

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// serveMetrics exposes the prometheus registry on its own listener. The
// worker keeps running if the port is taken; scraping is best-effort.
func serveMetrics(ctx context.Context, logg *logger.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	ctx = logg.WithField(ctx, "addr", addr)
	logg.Info(ctx, "metrics listener starting")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "metrics listener stopped")
	}
}

// lockName scopes the cron lease per environment so a staging worker
// sharing the redis instance never starves prod.
func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
