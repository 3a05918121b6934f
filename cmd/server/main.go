// Package main provides the API server entry point for the liveness broker.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/liveness-broker/internal/api"
	"github.com/liveness-broker/internal/codec"
	"github.com/liveness-broker/internal/config"
	"github.com/liveness-broker/internal/events"
	"github.com/liveness-broker/internal/logging"
	"github.com/liveness-broker/internal/provider"
	"github.com/liveness-broker/internal/storage"
	"github.com/liveness-broker/internal/store"
	"github.com/liveness-broker/internal/verification"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	// Symmetric codec for link identifiers
	cdc, err := codec.New(cfg.Encryption.Key)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize codec")
	}

	// Pick stores: Redis when configured, in-process otherwise
	var (
		submissions store.SubmissionStore
		sessions    store.BlobStore
		data        store.BlobStore
	)
	if cfg.Redis.Host != "" {
		client, err := store.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer client.Close()

		submissions = store.NewRedisSubmissionStore(client, cfg.Lifecycle.SubmissionCap, cfg.Lifecycle.StatusTTL)
		sessions = store.NewRedisBlobStore(client, cfg.Lifecycle.SessionTTL)
		data = store.NewRedisBlobStore(client, cfg.Lifecycle.DataTTL)
		logger.Info("Using Redis-backed stores")
	} else {
		submissions = store.NewMemorySubmissionStore(cfg.Lifecycle.SubmissionCap)
		sessions = store.NewMemoryBlobStore(cfg.Lifecycle.SessionTTL)
		data = store.NewMemoryBlobStore(cfg.Lifecycle.DataTTL)
		logger.Warn("Using in-process stores; run a single instance or state will diverge")
	}

	// Lifecycle hooks: durable audit and event publishing, both optional
	var hooks []verification.Hook

	if cfg.Postgres.Host != "" {
		dbURL := storage.DatabaseURL(&cfg.Postgres)
		if err := storage.RunMigrations(dbURL, cfg.Postgres.MigrationsPath); err != nil {
			logger.WithError(err).Fatal("Failed to run migrations")
		}

		db, err := storage.NewPostgresDB(&cfg.Postgres)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Postgres")
		}
		defer db.Close()

		hooks = append(hooks, storage.NewAuditHook(storage.NewAuditRepository(db)))
		logger.Info("Submission audit trail enabled")
	}

	if cfg.Nats.URL != "" {
		publisher, err := events.NewPublisher(cfg.Nats.URL)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to NATS")
		}
		defer publisher.Close()

		hooks = append(hooks, publisher)
		logger.Info("Event publishing enabled")
	}

	// Simulated progression is an explicit opt-in for demo deployments
	var progress verification.ProgressSource
	if cfg.Provider.Simulate {
		progress = verification.NewSimulatedProgress()
		logger.Warn("Simulated provider progression enabled; do not run this in production")
	}

	verificationService, err := verification.NewService(&verification.Config{
		Store:     submissions,
		Progress:  progress,
		StatusTTL: cfg.Lifecycle.StatusTTL,
	}, hooks...)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create verification service")
	}

	providerClient, err := provider.NewClient(&cfg.Provider, cdc)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create provider client")
	}

	server := api.NewServer(
		&api.ServerConfig{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			IdleTimeout:     cfg.Server.IdleTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
			RateLimitRPS:    cfg.RateLimit.RequestsPerSecond,
			RateLimitBurst:  cfg.RateLimit.Burst,
		},
		verificationService,
		providerClient,
		cdc,
		sessions,
		data,
	)

	// Start server
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.WithError(err).Fatal("Server failed")
	case sig := <-sigCh:
		logger.WithFields(map[string]interface{}{"signal": sig.String()}).Info("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}

	logger.Info("Server stopped")
}
