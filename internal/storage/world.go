package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/farm-engine/pkg/state"
)

func worldKey(id uuid.UUID) string {
	return "world:" + id.String()
}

// SaveWorld stamps UpdatedAt and writes the snapshot.
func (r *RedisStorage) SaveWorld(ctx context.Context, ws *state.WorldState) error {
	if ws == nil {
		return errors.New("world cannot be nil")
	}
	ws.UpdatedAt = time.Now()

	data, err := EncodeSnapshot(ws, r.opts.Compress)
	if err != nil {
		r.logger.Error("Failed to encode world", "world_id", ws.ID, "error", err)
		return err
	}

	if err := r.client.Set(ctx, worldKey(ws.ID), data, r.opts.TTL).Err(); err != nil {
		r.logger.Error("Failed to save world", "world_id", ws.ID, "error", err)
		return fmt.Errorf("failed to save world: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadWorld(ctx context.Context, id uuid.UUID) (*state.WorldState, error) {
	data, err := r.client.Get(ctx, worldKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Warn("World not found", "world_id", id)
			return nil, nil
		}
		r.logger.Error("Failed to load world", "world_id", id, "error", err)
		return nil, fmt.Errorf("failed to load world: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	ws, err := DecodeSnapshot(data)
	if err != nil {
		r.logger.Error("Failed to decode world", "world_id", id, "error", err)
		return nil, err
	}
	return ws, nil
}

func (r *RedisStorage) DeleteWorld(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, worldKey(id)).Err(); err != nil {
		r.logger.Error("Failed to delete world", "world_id", id, "error", err)
		return fmt.Errorf("failed to delete world: %w", err)
	}
	return nil
}
