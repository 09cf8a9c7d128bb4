package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/farm-engine/internal/logger"
	"github.com/jwebster45206/farm-engine/internal/services/events"
	"github.com/jwebster45206/farm-engine/internal/services/queue"
	queuePkg "github.com/jwebster45206/farm-engine/pkg/queue"
)

const (
	workerTimeout = 5 * time.Second
	lockTTL       = 30 * time.Second
	errorBackoff  = time.Second
)

// FailureProcessing is reported in action.rejected events when the request
// failed for infrastructure reasons rather than a game rule.
const FailureProcessing = "ProcessingError"

var releaseLockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// LockKey is the Redis key that serialises processing of one world.
func LockKey(worldID uuid.UUID) string {
	return fmt.Sprintf("world-lock:%s", worldID.String())
}

// Worker processes requests from the action queue
type Worker struct {
	id          string
	queue       *queue.ActionQueue
	processor   *ActionProcessor
	broadcaster *events.Broadcaster
	redisClient *redis.Client
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a new worker instance
func New(actionQueue *queue.ActionQueue, processor *ActionProcessor, redisClient *redis.Client, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		queue:       actionQueue,
		processor:   processor,
		broadcaster: events.NewBroadcaster(redisClient, log),
		redisClient: redisClient,
		log:         log.With("worker_id", workerID),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// ID returns the worker's identifier, which is also the lock owner value.
func (w *Worker) ID() string {
	return w.id
}

// Start pulls requests until Stop is called. Infrastructure errors are
// logged and followed by a short back-off.
func (w *Worker) Start() error {
	w.log.Info("Worker starting")

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down")
			return nil
		default:
		}
		if err := w.processNextRequest(); err != nil {
			logger.WithError(w.log, err).Error("Error processing request")
			time.Sleep(errorBackoff)
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested")
	w.cancel()
}

// processNextRequest pulls the next request from the queue and processes it
// while holding that world's lock.
func (w *Worker) processNextRequest() error {
	ctx, cancel := context.WithTimeout(w.ctx, workerTimeout+time.Second)
	defer cancel()

	req, err := w.queue.BlockingDequeueRequest(ctx, workerTimeout)
	if err != nil {
		return fmt.Errorf("failed to dequeue request: %w", err)
	}
	if req == nil {
		return nil
	}

	log := logger.WithWorldID(logger.WithRequestID(w.log, req.RequestID), req.WorldID)
	log.Debug("Received request from queue")

	locked, err := w.acquireWorldLock(req.WorldID)
	if err != nil {
		return fmt.Errorf("failed to acquire world lock: %w", err)
	}
	if !locked {
		// Another worker owns this world. Re-queue at the end and move on.
		log.Info("World already locked, re-queueing request")
		if err := w.queue.EnqueueRequest(w.ctx, req); err != nil {
			return fmt.Errorf("failed to re-queue request: %w", err)
		}
		return nil
	}

	defer w.releaseWorldLock(log, req.WorldID)
	return w.processRequest(log, req)
}

// acquireWorldLock returns true if the lock was acquired, false if another
// worker holds it.
func (w *Worker) acquireWorldLock(worldID uuid.UUID) (bool, error) {
	return w.redisClient.SetNX(w.ctx, LockKey(worldID), w.id, lockTTL).Result()
}

// releaseWorldLock deletes the lock only if this worker still owns it.
func (w *Worker) releaseWorldLock(log *slog.Logger, worldID uuid.UUID) {
	// Release even when Stop has cancelled w.ctx.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := releaseLockScript.Run(ctx, w.redisClient, []string{LockKey(worldID)}, w.id).Err(); err != nil {
		logger.WithError(log, err).Error("Failed to release world lock")
	}
}

// processRequest runs one request and broadcasts the outcome.
func (w *Worker) processRequest(log *slog.Logger, req *queuePkg.Request) error {
	start := time.Now()

	out, err := w.processor.Process(w.ctx, req)
	if err != nil {
		logger.WithError(log, err).Error("Failed to process request")
		message := err.Error()
		if errors.Is(err, ErrWorldNotFound) {
			message = ErrWorldNotFound.Error()
		}
		if pubErr := w.broadcaster.PublishActionRejected(w.ctx, req.WorldID, req.RequestID, "", FailureProcessing, message); pubErr != nil {
			logger.WithError(log, pubErr).Error("Failed to publish failure event")
		}
		return fmt.Errorf("failed to process request %s: %w", req.RequestID, err)
	}

	if !out.Applied() {
		if err := w.broadcaster.PublishActionRejected(w.ctx, req.WorldID, req.RequestID,
			string(out.Kind), string(out.Failure.Kind), out.Message); err != nil {
			logger.WithError(log, err).Error("Failed to publish rejection event")
		}
		return nil
	}

	if err := w.broadcaster.PublishActionApplied(w.ctx, req.WorldID, req.RequestID, string(out.Kind), out.At); err != nil {
		logger.WithError(log, err).Error("Failed to publish applied event")
	}
	if err := w.broadcaster.PublishWorldUpdated(w.ctx, req.WorldID, out.World.Balance.String(), len(out.World.FarmActivity)); err != nil {
		logger.WithError(log, err).Error("Failed to publish world update")
	}

	log.Info("Action processed", "kind", out.Kind, "duration_ms", time.Since(start).Milliseconds())
	return nil
}
