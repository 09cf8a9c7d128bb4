package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/farm-engine/internal/audit"
	"github.com/jwebster45206/farm-engine/internal/config"
	"github.com/jwebster45206/farm-engine/internal/features"
	"github.com/jwebster45206/farm-engine/internal/handlers"
	"github.com/jwebster45206/farm-engine/internal/i18n"
	"github.com/jwebster45206/farm-engine/internal/logger"
	"github.com/jwebster45206/farm-engine/internal/middleware"
	"github.com/jwebster45206/farm-engine/internal/services/events"
	"github.com/jwebster45206/farm-engine/internal/services/queue"
	"github.com/jwebster45206/farm-engine/internal/storage"
	"github.com/jwebster45206/farm-engine/internal/worker"
	"github.com/jwebster45206/farm-engine/pkg/activity"
	"github.com/jwebster45206/farm-engine/pkg/engine"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg, "farm-api")

	log.Info("Starting Farm Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"compress_snapshots", cfg.CompressSnapshots)

	store, err := storage.NewRedisStorage(cfg.RedisAddr(), storage.Options{
		TTL:      cfg.WorldTTL,
		Compress: cfg.CompressSnapshots,
	}, log)
	if err != nil {
		log.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	queueClient, err := queue.NewClient(cfg.RedisAddr(), log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			log.Error("Error closing queue client", "error", err)
		}
	}()
	actionQueue := queue.NewActionQueue(queueClient)

	flags, err := features.LoadFile(cfg.FeatureFlagsFile)
	if err != nil {
		log.Error("Failed to load feature flags", "error", err, "path", cfg.FeatureFlagsFile)
		os.Exit(1)
	}
	bundle, err := i18n.New(cfg.DefaultLocale)
	if err != nil {
		log.Error("Failed to load locales", "error", err)
		os.Exit(1)
	}

	// The API only reads the audit log; workers write it.
	auditStore, err := audit.Open(cfg.AuditDBPath)
	if err != nil {
		log.Error("Failed to open audit log", "error", err, "path", cfg.AuditDBPath)
		os.Exit(1)
	}
	defer func() {
		if err := auditStore.Close(); err != nil {
			log.Error("Error closing audit log", "error", err)
		}
	}()

	executor := engine.New(
		engine.WithFeatureGate(flags),
		engine.WithTracker(activity.NewTracker(cfg.ActivityLogCapacity)),
		engine.WithLogger(log),
	)
	// Previews never write, so the processor gets no audit log.
	previewer := worker.NewActionProcessor(store, executor, bundle, nil, log)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, actionQueue, log)
	mux.Handle("/health", healthHandler)

	worldHandler := handlers.NewWorldHandler(store, handlers.WorldHandlerOptions{
		Queue:     actionQueue,
		Publisher: events.NewBroadcaster(queueClient.GetRedisClient(), log),
		Processor: previewer,
		Audit:     auditStore,
		Bundle:    bundle,
	}, log)
	mux.Handle("/v1/worlds", worldHandler)
	mux.Handle("/v1/worlds/", worldHandler)

	eventsHandler := handlers.NewEventsHandler(queueClient.GetRedisClient(), log)
	mux.Handle("/v1/events/worlds/", eventsHandler)
	mux.Handle("/v1/ws/worlds/", handlers.NewSocketHandler(queueClient.GetRedisClient(), log))

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the SSE endpoint holds connections open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
