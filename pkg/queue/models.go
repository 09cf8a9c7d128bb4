package queue

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Request is one queued action against one world.
type Request struct {
	RequestID string          `json:"request_id"`
	WorldID   uuid.UUID       `json:"world_id"`
	Action    json.RawMessage `json:"action"`

	// At is the game timestamp in unix ms. Zero means the worker's clock
	// decides when the request is processed.
	At int64 `json:"at,omitempty"`

	// Locale selects the language of rejection messages, e.g. "pt-BR".
	Locale string `json:"locale,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewRequest builds a request with a fresh ID.
func NewRequest(worldID uuid.UUID, action json.RawMessage, at int64) *Request {
	return &Request{
		RequestID:  uuid.New().String(),
		WorldID:    worldID,
		Action:     action,
		At:         at,
		EnqueuedAt: time.Now(),
	}
}

// ToJSON converts the request to JSON bytes for Redis
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a request from JSON bytes
func FromJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	if req.WorldID == uuid.Nil {
		return nil, errors.New("request has no world_id")
	}
	return &req, nil
}
