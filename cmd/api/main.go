package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"shipsync/internal/core/config"
	"shipsync/internal/core/logger"
	"shipsync/internal/core/server"
	"shipsync/internal/features/shipments/adapters"
	"shipsync/internal/features/shipments/handler"
	"shipsync/internal/features/shipments/ports"
	"shipsync/internal/features/shipments/service"
	"shipsync/internal/features/sync"

	"go.uber.org/zap"
)

// @title Shipsync API
// @version 1.0
// @description Shipment tracking reconciliation service: webhook ingestion, polling sync and canonical shipment state.
// @contact.name API Support
// @contact.email support@shipsync.dev
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_driver", cfg.Store.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := newStore(cfg.Store)
	if err != nil {
		l.Fatal("Failed to open order store", zap.Error(err))
	}
	defer closeStore()

	if err := store.Ping(ctx); err != nil {
		l.Fatal("Order store unreachable", zap.Error(err))
	}
	l.Info("Order store connection verified")

	// Initialize provider adapter and run health check.
	srAdapter := adapters.NewShiprocketAdapter(cfg.Provider)
	if err := srAdapter.HealthCheck(ctx); err != nil {
		l.Fatal("Shiprocket health check failed", zap.Error(err))
	}
	l.Info("Shiprocket connection verified")

	notifier, err := adapters.NewRedisNotifierFromURL(cfg.Store.RedisURL, cfg.Store.NotifyChannel)
	if err != nil {
		l.Fatal("Failed to create transition notifier", zap.Error(err))
	}

	reconciler := service.NewReconciler()
	webhookHdl := handler.NewWebhookHandler(store, reconciler, notifier, cfg.WebhookToken)

	daemon := sync.New(cfg.Sync, store, srAdapter, notifier)
	go daemon.Run(ctx)

	srv := server.New(cfg)

	// Register routes
	srv.App.Post("/webhooks/tracking", webhookHdl.HandleTracking)
	srv.App.Get("/shipments/:id", webhookHdl.GetShipment)
	srv.App.Get("/healthz", webhookHdl.Health)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			l.Fatal("Server failed", zap.Error(err))
		}
	case <-ctx.Done():
		l.Info("Shutdown signal received")
	}

	// Stop polling first so no new provider calls start, then drain HTTP.
	daemon.Stop()
	if err := srv.App.Shutdown(); err != nil {
		l.Error("Server shutdown failed", zap.Error(err))
	}
	l.Info("Application stopped")
}

// newStore builds the configured OrderStore backend.
func newStore(cfg config.StoreConfig) (ports.OrderStore, func(), error) {
	switch cfg.Driver {
	case "mysql":
		store, err := adapters.NewMySQLStore(cfg.MySQLDSN)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	default:
		store, err := adapters.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}
}
