package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jwebster45206/farm-engine/internal/schema"
	"github.com/jwebster45206/farm-engine/internal/worker"
	"github.com/jwebster45206/farm-engine/pkg/actions"
	"github.com/jwebster45206/farm-engine/pkg/queue"
	"github.com/jwebster45206/farm-engine/pkg/rules"
	"github.com/jwebster45206/farm-engine/pkg/state"
)

type EnqueueResponse struct {
	RequestID string    `json:"request_id"`
	WorldID   uuid.UUID `json:"world_id"`
	Status    string    `json:"status"`
}

type PreviewResponse struct {
	Kind  actions.Kind      `json:"kind"`
	At    int64             `json:"at"`
	World *state.WorldState `json:"world"`
}

// FailureResponse is the 422 body for a rejected preview.
type FailureResponse struct {
	Error   string     `json:"error"`
	Kind    rules.Kind `json:"kind"`
	Message string     `json:"message"`
}

// handleEnqueue validates an action and queues it for the worker.
// The body is the action envelope. ?at= sets the game timestamp in unix ms.
func (h *WorldHandler) handleEnqueue(w http.ResponseWriter, r *http.Request, worldID uuid.UUID) {
	if h.queue == nil {
		writeError(w, h.logger, http.StatusServiceUnavailable, "Action queue is not available")
		return
	}
	body, at, ok := h.readAction(w, r)
	if !ok {
		return
	}
	action, err := actions.Decode(body)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := h.loadWorld(w, r, worldID); !ok {
		return
	}

	req := queue.NewRequest(worldID, body, at)
	req.Locale = h.locale(r)
	if err := h.queue.EnqueueRequest(r.Context(), req); err != nil {
		h.logger.Error("Failed to enqueue action", "error", err, "world_id", worldID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to queue action")
		return
	}
	if h.publisher != nil {
		if err := h.publisher.PublishActionQueued(r.Context(), worldID, req.RequestID, string(action.Kind())); err != nil {
			h.logger.Warn("Failed to publish queued event", "error", err, "request_id", req.RequestID)
		}
	}

	h.logger.Debug("Action queued", "request_id", req.RequestID, "world_id", worldID.String(), "kind", action.Kind())
	writeJSON(w, h.logger, http.StatusAccepted, EnqueueResponse{
		RequestID: req.RequestID,
		WorldID:   worldID,
		Status:    "queued",
	})
}

// handlePreview applies an action to the stored world without saving it.
func (h *WorldHandler) handlePreview(w http.ResponseWriter, r *http.Request, worldID uuid.UUID) {
	if h.processor == nil {
		writeError(w, h.logger, http.StatusServiceUnavailable, "Preview is not available")
		return
	}
	body, at, ok := h.readAction(w, r)
	if !ok {
		return
	}

	out, err := h.processor.Evaluate(r.Context(), worldID, body, at, h.locale(r))
	if err != nil {
		if errors.Is(err, worker.ErrWorldNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "World not found")
			return
		}
		h.logger.Error("Failed to preview action", "error", err, "world_id", worldID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to preview action")
		return
	}
	if !out.Applied() {
		writeJSON(w, h.logger, http.StatusUnprocessableEntity, FailureResponse{
			Error:   out.Failure.Error(),
			Kind:    out.Failure.Kind,
			Message: out.Message,
		})
		return
	}
	writeJSON(w, h.logger, http.StatusOK, PreviewResponse{Kind: out.Kind, At: out.At, World: out.World})
}

// readAction reads and schema-checks the action body and the optional at
// query parameter.
func (h *WorldHandler) readAction(w http.ResponseWriter, r *http.Request) ([]byte, int64, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Failed to read request body")
		return nil, 0, false
	}
	if err := schema.ValidateAction(body); err != nil {
		h.logger.Warn("Invalid action", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return nil, 0, false
	}

	var at int64
	if raw := r.URL.Query().Get("at"); raw != "" {
		n, err := parsePositiveInt(raw)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "at must be a positive unix timestamp in milliseconds")
			return nil, 0, false
		}
		at = int64(n)
	}
	return body, at, true
}

// locale picks the message locale from ?lang= or Accept-Language.
func (h *WorldHandler) locale(r *http.Request) string {
	return h.bundle.Match(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language")).String()
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errNotPositive
	}
	return n, nil
}
