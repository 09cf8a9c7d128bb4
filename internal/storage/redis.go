package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/farm-engine/pkg/storage"
)

// Options controls how worlds are written and how long startup waits for
// Redis.
type Options struct {
	TTL      time.Duration // 0 keeps worlds forever
	Compress bool

	ConnectAttempts int           // default 30
	RetryDelay      time.Duration // default 2s
}

func (o Options) withDefaults() Options {
	if o.ConnectAttempts <= 0 {
		o.ConnectAttempts = 30
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 2 * time.Second
	}
	return o
}

// RedisStorage implements storage.Storage on Redis.
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
	opts   Options
}

var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL is in the
// redis://host:port/db form. No connection is made until first use.
func NewRedisStorage(redisURL string, opts Options, logger *slog.Logger) (*RedisStorage, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &RedisStorage{
		client: redis.NewClient(redisOpts),
		logger: logger.With("component", "world-storage"),
		opts:   opts.withDefaults(),
	}, nil
}

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis: %w", err)
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection pings Redis until it answers, ctx ends, or
// Options.ConnectAttempts pings have failed.
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= r.opts.ConnectAttempts; attempt++ {
		if lastErr = r.Ping(ctx); lastErr == nil {
			r.logger.Info("Redis connection established", "attempts", attempt)
			return nil
		}
		r.logger.Debug("Redis not ready yet", "error", lastErr, "attempt", attempt)

		if attempt == r.opts.ConnectAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
		case <-time.After(r.opts.RetryDelay):
		}
	}
	return fmt.Errorf("redis unavailable after %d attempts: %w", r.opts.ConnectAttempts, lastErr)
}
