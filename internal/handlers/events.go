package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/farm-engine/internal/logger"
	"github.com/jwebster45206/farm-engine/internal/services/events"
)

const (
	eventsPrefix      = "/v1/events/worlds"
	keepaliveInterval = 30 * time.Second
)

// EventsHandler handles Server-Sent Events (SSE) for real-time world updates
type EventsHandler struct {
	redisClient *redis.Client
	logger      *slog.Logger
	keepalive   time.Duration
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(redisClient *redis.Client, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		redisClient: redisClient,
		logger:      logger,
		keepalive:   keepaliveInterval,
	}
}

// ServeHTTP handles SSE requests for world events
// GET /v1/events/worlds/{worldID}
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	segments := splitPath(r.URL.Path, eventsPrefix)
	if len(segments) != 1 {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid path. Expected /v1/events/worlds/{worldID}")
		return
	}
	worldID, ok := parseWorldID(segments[0])
	if !ok {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid world ID format.")
		return
	}

	log := logger.WithWorldID(h.logger, worldID).With("remote_addr", r.RemoteAddr)
	log.Info("SSE connection established")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	pubsub, err := events.Subscribe(r.Context(), h.redisClient, worldID)
	if err != nil {
		logger.WithError(log, err).Error("Failed to subscribe")
		return
	}
	defer func() {
		if err := pubsub.Close(); err != nil {
			logger.WithError(log, err).Error("Failed to close pubsub")
		}
	}()
	msgChan := pubsub.Channel()

	keepaliveTicker := time.NewTicker(h.keepalive)
	defer keepaliveTicker.Stop()

	if err := writeSSE(w, "connected", map[string]any{
		"world_id": worldID.String(),
		"message":  "Connected to event stream",
	}); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			log.Info("SSE client disconnected")
			return

		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			event, err := events.Decode(msg.Payload)
			if err != nil {
				logger.WithError(log, err).Error("Dropping malformed event", "payload", msg.Payload)
				continue
			}
			if err := writeSSE(w, string(event.Type), event); err != nil {
				log.Debug("Failed to write event", "error", err)
				return
			}

		case <-keepaliveTicker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				log.Debug("Failed to write keepalive", "error", err)
				return
			}
			flush(w)
		}
	}
}

// writeSSE writes one event frame and flushes it.
func writeSSE(w http.ResponseWriter, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload); err != nil {
		return err
	}
	flush(w)
	return nil
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}
