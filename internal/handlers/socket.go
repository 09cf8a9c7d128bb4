package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/farm-engine/internal/logger"
	"github.com/jwebster45206/farm-engine/internal/services/events"
)

const (
	socketPrefix = "/v1/ws/worlds"
	writeWait    = 5 * time.Second
)

// SocketHandler streams the same world events as EventsHandler over a
// WebSocket. Each event is one JSON text message.
type SocketHandler struct {
	redisClient *redis.Client
	logger      *slog.Logger
	keepalive   time.Duration
	upgrader    websocket.Upgrader
}

// NewSocketHandler creates a new WebSocket events handler
func NewSocketHandler(redisClient *redis.Client, logger *slog.Logger) *SocketHandler {
	return &SocketHandler{
		redisClient: redisClient,
		logger:      logger,
		keepalive:   keepaliveInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades GET /v1/ws/worlds/{worldID}
func (h *SocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}
	segments := splitPath(r.URL.Path, socketPrefix)
	if len(segments) != 1 {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid path. Expected /v1/ws/worlds/{worldID}")
		return
	}
	worldID, ok := parseWorldID(segments[0])
	if !ok {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid world ID format.")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn("WebSocket upgrade failed", "error", err, "world_id", worldID.String())
		return
	}
	defer conn.Close()

	log := logger.WithWorldID(h.logger, worldID).With("remote_addr", r.RemoteAddr)
	log.Info("WebSocket connection established")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	pubsub, err := events.Subscribe(ctx, h.redisClient, worldID)
	if err != nil {
		logger.WithError(log, err).Error("Failed to subscribe")
		h.close(conn, websocket.CloseInternalServerErr, "subscribe failed")
		return
	}
	defer func() {
		if err := pubsub.Close(); err != nil {
			logger.WithError(log, err).Error("Failed to close pubsub")
		}
	}()

	// Clients never send data; reading detects the close handshake.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.send(conn, map[string]any{
		"type":     "connected",
		"world_id": worldID.String(),
		"message":  "Connected to event stream",
	}); err != nil {
		return
	}

	ping := time.NewTicker(h.keepalive)
	defer ping.Stop()
	msgChan := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			log.Info("WebSocket client disconnected")
			return

		case msg, ok := <-msgChan:
			if !ok {
				h.close(conn, websocket.CloseGoingAway, "stream closed")
				return
			}
			event, err := events.Decode(msg.Payload)
			if err != nil {
				logger.WithError(log, err).Error("Dropping malformed event", "payload", msg.Payload)
				continue
			}
			if err := h.send(conn, event); err != nil {
				log.Debug("Failed to write event", "error", err)
				return
			}

		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Debug("Failed to write ping", "error", err)
				return
			}
		}
	}
}

func (h *SocketHandler) send(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

func (h *SocketHandler) close(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(time.Second))
}
