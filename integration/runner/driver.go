package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/farm-engine/internal/audit"
	"github.com/jwebster45206/farm-engine/internal/handlers"
	"github.com/jwebster45206/farm-engine/internal/worker"
	"github.com/jwebster45206/farm-engine/pkg/queue"
	"github.com/jwebster45206/farm-engine/pkg/state"
	"github.com/jwebster45206/farm-engine/pkg/storage"
)

const (
	// PollInterval is how often to check the audit log for a processed request
	PollInterval = 250 * time.Millisecond
	// ActionTimeout is max time to wait for the worker to process an action
	ActionTimeout = 30 * time.Second
)

// Driver runs scenario steps against some deployment of the engine.
type Driver interface {
	// Seed stores ws as a new world and returns its ID.
	Seed(ctx context.Context, ws *state.WorldState) (uuid.UUID, error)
	// Replace overwrites the stored world with ws, keeping its ID.
	Replace(ctx context.Context, ws *state.WorldState) error
	World(ctx context.Context, id uuid.UUID) (*state.WorldState, error)
	// Apply runs one action to completion and reports the outcome.
	Apply(ctx context.Context, id uuid.UUID, action json.RawMessage, at int64) (*StepOutcome, error)
}

// EngineDriver runs steps in-process through the worker's action processor.
type EngineDriver struct {
	Storage   storage.Storage
	Processor *worker.ActionProcessor
}

// NewEngineDriver creates a driver around processor and the storage it reads.
func NewEngineDriver(store storage.Storage, processor *worker.ActionProcessor) *EngineDriver {
	return &EngineDriver{Storage: store, Processor: processor}
}

func (d *EngineDriver) Seed(ctx context.Context, ws *state.WorldState) (uuid.UUID, error) {
	if err := d.Storage.SaveWorld(ctx, ws); err != nil {
		return uuid.Nil, err
	}
	return ws.ID, nil
}

func (d *EngineDriver) Replace(ctx context.Context, ws *state.WorldState) error {
	return d.Storage.SaveWorld(ctx, ws)
}

func (d *EngineDriver) World(ctx context.Context, id uuid.UUID) (*state.WorldState, error) {
	ws, err := d.Storage.LoadWorld(ctx, id)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, fmt.Errorf("%w: %s", worker.ErrWorldNotFound, id)
	}
	return ws, nil
}

func (d *EngineDriver) Apply(ctx context.Context, id uuid.UUID, action json.RawMessage, at int64) (*StepOutcome, error) {
	out, err := d.Processor.Process(ctx, queue.NewRequest(id, action, at))
	if err != nil {
		return nil, err
	}
	result := &StepOutcome{Applied: out.Applied(), Message: out.Message}
	if out.Failure != nil {
		result.Failure = string(out.Failure.Kind)
	}
	return result, nil
}

// HTTPDriver runs steps against a live API and worker. Actions are queued
// through the API and their outcome is read back from the audit endpoint.
type HTTPDriver struct {
	Client  *http.Client
	BaseURL string
}

// NewHTTPDriver creates a driver for the API at baseURL.
func NewHTTPDriver(client *http.Client, baseURL string) *HTTPDriver {
	return &HTTPDriver{Client: client, BaseURL: baseURL}
}

func (d *HTTPDriver) Seed(ctx context.Context, ws *state.WorldState) (uuid.UUID, error) {
	body, err := json.Marshal(ws)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal world: %w", err)
	}

	var created state.WorldState
	if err := d.do(ctx, http.MethodPost, "/v1/worlds", body, http.StatusCreated, &created); err != nil {
		return uuid.Nil, err
	}
	return created.ID, nil
}

func (d *HTTPDriver) Replace(ctx context.Context, ws *state.WorldState) error {
	if err := d.do(ctx, http.MethodDelete, "/v1/worlds/"+ws.ID.String(), nil, http.StatusNoContent, nil); err != nil {
		return err
	}
	_, err := d.Seed(ctx, ws)
	return err
}

func (d *HTTPDriver) World(ctx context.Context, id uuid.UUID) (*state.WorldState, error) {
	var ws state.WorldState
	if err := d.do(ctx, http.MethodGet, "/v1/worlds/"+id.String(), nil, http.StatusOK, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

func (d *HTTPDriver) Apply(ctx context.Context, id uuid.UUID, action json.RawMessage, at int64) (*StepOutcome, error) {
	path := "/v1/worlds/" + id.String() + "/actions"
	if at != 0 {
		path += "?" + url.Values{"at": {strconv.FormatInt(at, 10)}}.Encode()
	}

	var queued handlers.EnqueueResponse
	if err := d.do(ctx, http.MethodPost, path, action, http.StatusAccepted, &queued); err != nil {
		return nil, err
	}

	entry, err := d.pollForAuditEntry(ctx, id, queued.RequestID)
	if err != nil {
		return nil, err
	}
	return &StepOutcome{
		Applied: entry.Outcome == audit.OutcomeApplied,
		Failure: entry.Failure,
		Message: entry.Message,
	}, nil
}

// pollForAuditEntry polls the audit log until the worker has recorded requestID.
func (d *HTTPDriver) pollForAuditEntry(ctx context.Context, id uuid.UUID, requestID string) (*audit.Entry, error) {
	timeout := time.After(ActionTimeout)
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout:
			return nil, fmt.Errorf("timeout waiting for request %s (waited %v)", requestID, ActionTimeout)
		case <-ticker.C:
			var resp handlers.AuditResponse
			if err := d.do(ctx, http.MethodGet, "/v1/worlds/"+id.String()+"/audit", nil, http.StatusOK, &resp); err != nil {
				// Log error but continue polling
				continue
			}
			for i := range resp.Entries {
				if resp.Entries[i].RequestID == requestID {
					return &resp.Entries[i], nil
				}
			}
		}
	}
}

func (d *HTTPDriver) do(ctx context.Context, method, path string, body []byte, wantStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, d.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != wantStatus {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s returned %d (expected %d): %s", method, path, resp.StatusCode, wantStatus, string(b))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}
