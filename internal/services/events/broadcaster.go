package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeActionQueued   EventType = "action.queued"
	EventTypeActionApplied  EventType = "action.applied"
	EventTypeActionRejected EventType = "action.rejected"
	EventTypeWorldUpdated   EventType = "world.updated"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType      `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	WorldID   string         `json:"world_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Channel is the pub/sub channel carrying events for one world.
func Channel(worldID uuid.UUID) string {
	return fmt.Sprintf("world-events:%s", worldID.String())
}

// Subscribe listens on a world's channel and returns once Redis has
// confirmed the subscription, so no event published afterwards is missed.
func Subscribe(ctx context.Context, client *redis.Client, worldID uuid.UUID) (*redis.PubSub, error) {
	pubsub := client.Subscribe(ctx, Channel(worldID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", Channel(worldID), err)
	}
	return pubsub, nil
}

// Decode parses one pub/sub payload.
func Decode(payload string) (Event, error) {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if event.Type == "" {
		return Event{}, fmt.Errorf("event has no type")
	}
	return event, nil
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

func (b *Broadcaster) PublishActionQueued(ctx context.Context, worldID uuid.UUID, requestID, kind string) error {
	return b.publishToWorld(ctx, worldID, Event{
		Type:      EventTypeActionQueued,
		RequestID: requestID,
		WorldID:   worldID.String(),
		Data: map[string]any{
			"status": "queued",
			"kind":   kind,
		},
	})
}

func (b *Broadcaster) PublishActionApplied(ctx context.Context, worldID uuid.UUID, requestID, kind string, at int64) error {
	return b.publishToWorld(ctx, worldID, Event{
		Type:      EventTypeActionApplied,
		RequestID: requestID,
		WorldID:   worldID.String(),
		Data: map[string]any{
			"status": "applied",
			"kind":   kind,
			"at":     at,
		},
	})
}

// PublishActionRejected carries the failure kind for control flow and the
// translated message for display.
func (b *Broadcaster) PublishActionRejected(ctx context.Context, worldID uuid.UUID, requestID, kind, failure, message string) error {
	return b.publishToWorld(ctx, worldID, Event{
		Type:      EventTypeActionRejected,
		RequestID: requestID,
		WorldID:   worldID.String(),
		Data: map[string]any{
			"status":  "rejected",
			"kind":    kind,
			"failure": failure,
			"message": message,
		},
	})
}

func (b *Broadcaster) PublishWorldUpdated(ctx context.Context, worldID uuid.UUID, balance string, activityCount int) error {
	return b.publishToWorld(ctx, worldID, Event{
		Type:    EventTypeWorldUpdated,
		WorldID: worldID.String(),
		Data: map[string]any{
			"balance":        balance,
			"activity_count": activityCount,
		},
	})
}

func (b *Broadcaster) publishToWorld(ctx context.Context, worldID uuid.UUID, event Event) error {
	channel := Channel(worldID)

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event", event)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"request_id", event.RequestID,
	)

	return nil
}
