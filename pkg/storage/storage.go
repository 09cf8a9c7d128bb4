package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwebster45206/farm-engine/pkg/state"
)

// Storage persists world snapshots.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	SaveWorld(ctx context.Context, ws *state.WorldState) error
	// LoadWorld returns nil, nil when the world does not exist.
	LoadWorld(ctx context.Context, id uuid.UUID) (*state.WorldState, error)
	DeleteWorld(ctx context.Context, id uuid.UUID) error
}
