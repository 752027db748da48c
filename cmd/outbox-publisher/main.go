package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/velvetlane/storefront-backend/pkg/config"
	"github.com/velvetlane/storefront-backend/pkg/db"
	"github.com/velvetlane/storefront-backend/pkg/logger"
	"github.com/velvetlane/storefront-backend/pkg/migrate"
	"github.com/velvetlane/storefront-backend/pkg/outbox"
	"github.com/velvetlane/storefront-backend/pkg/pubsub"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})
	boot := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(boot, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(logg, "failed to load config", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(boot, cfg.DB, logg)
	if err != nil {
		fatal(logg, "failed to bootstrap database", err)
	}
	defer closeQuietly(logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(boot, cfg, logg, dbClient); err != nil {
		fatal(logg, "failed to run dev migrations", err)
	}

	pubsubClient, err := pubsub.NewClient(boot, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		fatal(logg, "failed to bootstrap pubsub", err)
	}
	defer closeQuietly(logg, "pubsub client", pubsubClient.Close)

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		PubSub:     pubsubClient,
		Repository: outbox.NewRepository(dbClient.DB()),
	})
	if err != nil {
		fatal(logg, "failed to create outbox publisher", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "outbox-publisher",
	})
	logg.Info(ctx, "starting outbox publisher")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
}

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}

func closeQuietly(logg *logger.Logger, name string, close func() error) {
	if err := close(); err != nil {
		logg.Error(context.Background(), "error closing "+name, err)
	}
}
