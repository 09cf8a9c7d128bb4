package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/farm-engine/internal/audit"
	"github.com/jwebster45206/farm-engine/internal/config"
	"github.com/jwebster45206/farm-engine/internal/features"
	"github.com/jwebster45206/farm-engine/internal/i18n"
	"github.com/jwebster45206/farm-engine/internal/logger"
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

	log := logger.Setup(cfg, "farm-worker")

	log.Info("Starting Farm Engine Worker",
		"environment", cfg.Environment,
		"redis_url", cfg.RedisURL,
		"audit_db", cfg.AuditDBPath)

	// Initialize queue service
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
	log.Info("Queue service initialized successfully")

	// Initialize storage service
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
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing storage", "error", err)
		}
	}()
	log.Info("Storage service initialized successfully")

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

	executor := engine.New(
		engine.WithFeatureGate(flags),
		engine.WithTracker(activity.NewTracker(cfg.ActivityLogCapacity)),
		engine.WithLogger(log),
	)
	processor := worker.NewActionProcessor(store, executor, bundle, auditStore, log)
	log.Info("Action processor initialized successfully", "handlers", engine.Handlers())

	w := worker.New(actionQueue, processor, queueClient.GetRedisClient(), log, cfg.WorkerID)

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("Worker started, waiting for requests...", "worker_id", w.ID())

	<-quit
	log.Info("Worker shutdown signal received")
	w.Stop()

	// Give the worker time to finish the current request
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn("Worker did not stop in time")
	}

	log.Info("Worker exited")
}
