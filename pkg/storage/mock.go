package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/farm-engine/pkg/state"
)

// MockStorage is an in-memory Storage for tests and offline tools.
type MockStorage struct {
	mu        sync.RWMutex
	worlds    map[uuid.UUID]*state.WorldState
	pingError error
}

var _ Storage = (*MockStorage)(nil)

func NewMockStorage() *MockStorage {
	return &MockStorage{
		worlds: make(map[uuid.UUID]*state.WorldState),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

// SaveWorld stores a copy so later mutation by the caller is not observed.
func (m *MockStorage) SaveWorld(ctx context.Context, ws *state.WorldState) error {
	if ws == nil {
		return errors.New("world cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.worlds[ws.ID] = ws.Clone()
	return nil
}

func (m *MockStorage) LoadWorld(ctx context.Context, id uuid.UUID) (*state.WorldState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ws, exists := m.worlds[id]
	if !exists {
		return nil, nil
	}
	return ws.Clone(), nil
}

func (m *MockStorage) DeleteWorld(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.worlds, id)
	return nil
}
