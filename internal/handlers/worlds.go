package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/farm-engine/internal/audit"
	"github.com/jwebster45206/farm-engine/internal/i18n"
	"github.com/jwebster45206/farm-engine/internal/schema"
	"github.com/jwebster45206/farm-engine/internal/worker"
	"github.com/jwebster45206/farm-engine/pkg/ledger"
	"github.com/jwebster45206/farm-engine/pkg/queue"
	"github.com/jwebster45206/farm-engine/pkg/state"
	"github.com/jwebster45206/farm-engine/pkg/storage"
)

const (
	worldsPrefix = "/v1/worlds"
	maxBodyBytes = 1 << 20
)

// Enqueuer accepts action requests for the worker.
type Enqueuer interface {
	EnqueueRequest(ctx context.Context, req *queue.Request) error
}

// QueuePublisher announces accepted requests. *events.Broadcaster implements it.
type QueuePublisher interface {
	PublishActionQueued(ctx context.Context, worldID uuid.UUID, requestID, kind string) error
}

// AuditReader is the read side of the audit log.
type AuditReader interface {
	ListByWorld(ctx context.Context, worldID uuid.UUID, limit int) ([]audit.Entry, error)
	CountRejections(ctx context.Context, worldID uuid.UUID) (map[string]int, error)
}

// WorldHandler serves everything under /v1/worlds.
type WorldHandler struct {
	storage   storage.Storage
	queue     Enqueuer
	publisher QueuePublisher
	processor *worker.ActionProcessor
	audit     AuditReader
	bundle    *i18n.Bundle
	logger    *slog.Logger
}

type WorldHandlerOptions struct {
	Queue     Enqueuer
	Publisher QueuePublisher // optional
	Processor *worker.ActionProcessor
	Audit     AuditReader // optional; /audit returns 404 without it
	Bundle    *i18n.Bundle
}

func NewWorldHandler(storage storage.Storage, opts WorldHandlerOptions, logger *slog.Logger) *WorldHandler {
	bundle := opts.Bundle
	if bundle == nil {
		bundle = i18n.Default()
	}
	return &WorldHandler{
		storage:   storage,
		queue:     opts.Queue,
		publisher: opts.Publisher,
		processor: opts.Processor,
		audit:     opts.Audit,
		bundle:    bundle,
		logger:    logger,
	}
}

// ServeHTTP routes world requests.
// Routes:
// POST   /v1/worlds                       - Create a world, optionally from a seed body
// GET    /v1/worlds/{id}                  - Read a world
// DELETE /v1/worlds/{id}                  - Delete a world
// POST   /v1/worlds/{id}/actions          - Queue an action
// POST   /v1/worlds/{id}/actions/preview  - Apply an action without saving
// GET    /v1/worlds/{id}/audit            - Audit entries for a world
func (h *WorldHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	segments := splitPath(r.URL.Path, worldsPrefix)
	if len(segments) == 0 {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handleCreate(w, r)
		return
	}

	worldID, ok := parseWorldID(segments[0])
	if !ok {
		h.logger.Warn("Invalid world ID", "id", segments[0])
		writeError(w, h.logger, http.StatusBadRequest, "Invalid world ID format")
		return
	}

	switch {
	case len(segments) == 1:
		switch r.Method {
		case http.MethodGet:
			h.handleRead(w, r, worldID)
		case http.MethodDelete:
			h.handleDelete(w, r, worldID)
		default:
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, DELETE")
		}
	case len(segments) == 2 && segments[1] == "actions":
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handleEnqueue(w, r, worldID)
	case len(segments) == 3 && segments[1] == "actions" && segments[2] == "preview":
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handlePreview(w, r, worldID)
	case len(segments) == 2 && segments[1] == "audit":
		if r.Method != http.MethodGet {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET")
			return
		}
		h.handleAudit(w, r, worldID)
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

func (h *WorldHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Failed to read request body")
		return
	}

	ws := state.NewWorldState()
	if len(body) > 0 {
		seeded, err := decodeSeed(body)
		if err != nil {
			h.logger.Warn("Invalid world seed", "error", err)
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		ws = seeded
	}

	existing, err := h.storage.LoadWorld(r.Context(), ws.ID)
	if err != nil {
		h.logger.Error("Failed to check for existing world", "error", err, "id", ws.ID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create world")
		return
	}
	if existing != nil {
		writeError(w, h.logger, http.StatusConflict, "World already exists")
		return
	}

	if err := h.storage.SaveWorld(r.Context(), ws); err != nil {
		h.logger.Error("Failed to save new world", "error", err, "id", ws.ID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create world")
		return
	}

	h.logger.Debug("World created", "id", ws.ID.String())
	writeJSON(w, h.logger, http.StatusCreated, ws)
}

// decodeSeed validates and decodes a client-supplied starting world.
func decodeSeed(body []byte) (*state.WorldState, error) {
	if err := schema.ValidateWorld(body); err != nil {
		return nil, err
	}
	var ws state.WorldState
	if err := json.Unmarshal(body, &ws); err != nil {
		return nil, err
	}
	if ws.ID == uuid.Nil {
		ws.ID = uuid.New()
	}
	if ws.Inventory == nil {
		ws.Inventory = ledger.Ledger{}
	}
	if ws.Wardrobe == nil {
		ws.Wardrobe = map[string]int{}
	}
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = time.Now()
	}
	if err := ws.Validate(); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (h *WorldHandler) handleRead(w http.ResponseWriter, r *http.Request, worldID uuid.UUID) {
	ws, ok := h.loadWorld(w, r, worldID)
	if !ok {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, ws)
}

func (h *WorldHandler) handleDelete(w http.ResponseWriter, r *http.Request, worldID uuid.UUID) {
	if _, ok := h.loadWorld(w, r, worldID); !ok {
		return
	}
	if err := h.storage.DeleteWorld(r.Context(), worldID); err != nil {
		h.logger.Error("Failed to delete world", "error", err, "id", worldID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete world")
		return
	}
	h.logger.Debug("World deleted", "id", worldID.String())
	w.WriteHeader(http.StatusNoContent)
}

// loadWorld writes a 404 or 500 and returns false when the world can't be used.
func (h *WorldHandler) loadWorld(w http.ResponseWriter, r *http.Request, worldID uuid.UUID) (*state.WorldState, bool) {
	ws, err := h.storage.LoadWorld(r.Context(), worldID)
	if err != nil {
		h.logger.Error("Failed to load world", "error", err, "id", worldID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load world")
		return nil, false
	}
	if ws == nil {
		writeError(w, h.logger, http.StatusNotFound, "World not found")
		return nil, false
	}
	return ws, true
}

func (h *WorldHandler) handleAudit(w http.ResponseWriter, r *http.Request, worldID uuid.UUID) {
	if h.audit == nil {
		writeError(w, h.logger, http.StatusNotFound, "Audit log is not enabled")
		return
	}
	limit := audit.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := parsePositiveInt(raw)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.audit.ListByWorld(r.Context(), worldID, limit)
	if err != nil {
		h.logger.Error("Failed to list audit entries", "error", err, "id", worldID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to read audit log")
		return
	}
	rejections, err := h.audit.CountRejections(r.Context(), worldID)
	if err != nil {
		h.logger.Error("Failed to count rejections", "error", err, "id", worldID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to read audit log")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, AuditResponse{
		WorldID:    worldID,
		Entries:    entries,
		Rejections: rejections,
	})
}

type AuditResponse struct {
	WorldID    uuid.UUID      `json:"world_id"`
	Entries    []audit.Entry  `json:"entries"`
	Rejections map[string]int `json:"rejections"`
}

var errNotPositive = errors.New("not a positive integer")
