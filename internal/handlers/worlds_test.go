package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/farm-engine/internal/audit"
	"github.com/jwebster45206/farm-engine/internal/i18n"
	"github.com/jwebster45206/farm-engine/internal/worker"
	"github.com/jwebster45206/farm-engine/pkg/engine"
	"github.com/jwebster45206/farm-engine/pkg/queue"
	"github.com/jwebster45206/farm-engine/pkg/rules"
	"github.com/jwebster45206/farm-engine/pkg/state"
	"github.com/jwebster45206/farm-engine/pkg/storage"
)

type fakeQueue struct {
	mu       sync.Mutex
	requests []*queue.Request
}

func (f *fakeQueue) EnqueueRequest(_ context.Context, req *queue.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return nil
}

type fakePublisher struct {
	kinds []string
}

func (f *fakePublisher) PublishActionQueued(_ context.Context, _ uuid.UUID, _, kind string) error {
	f.kinds = append(f.kinds, kind)
	return nil
}

type worldFixture struct {
	handler   *WorldHandler
	storage   *storage.MockStorage
	queue     *fakeQueue
	publisher *fakePublisher
	audit     *audit.Store
}

func setupWorldHandler(t *testing.T) *worldFixture {
	t.Helper()
	store := storage.NewMockStorage()
	auditStore, err := audit.Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = auditStore.Close() })

	q := &fakeQueue{}
	pub := &fakePublisher{}
	bundle := i18n.Default()
	processor := worker.NewActionProcessor(store, engine.New(), bundle, auditStore, testLogger())

	h := NewWorldHandler(store, WorldHandlerOptions{
		Queue:     q,
		Publisher: pub,
		Processor: processor,
		Audit:     auditStore,
		Bundle:    bundle,
	}, testLogger())
	return &worldFixture{handler: h, storage: store, queue: q, publisher: pub, audit: auditStore}
}

// seedWorld stores a farm with 4 pumpkins and a Pumpkin obsession over [1000, 2000].
func (f *worldFixture) seedWorld(t *testing.T) *state.WorldState {
	t.Helper()
	ws := state.NewWorldState()
	ws.Inventory["Pumpkin"] = decimal.NewFromInt(4)
	ws.BertObsession = &state.Obsession{
		Type: state.ObsessionCollectible, Name: "Pumpkin",
		Reward: decimal.NewFromInt(5), StartDate: 1000, EndDate: 2000,
	}
	require.NoError(t, f.storage.SaveWorld(context.Background(), ws))
	return ws
}

func (f *worldFixture) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func TestWorldHandler_Create(t *testing.T) {
	f := setupWorldHandler(t)

	rr := f.do(http.MethodPost, "/v1/worlds", "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var created state.WorldState
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&created))
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.NotNil(t, created.Bumpkin)

	saved, err := f.storage.LoadWorld(context.Background(), created.ID)
	require.NoError(t, err)
	assert.NotNil(t, saved)
}

func TestWorldHandler_CreateFromSeed(t *testing.T) {
	f := setupWorldHandler(t)
	id := uuid.New()

	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{
			name:           "valid seed",
			body:           `{"id":"` + id.String() + `","balance":"3.5","inventory":{"Pumpkin":"2"},"npcs":["bert"]}`,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "duplicate id",
			body:           `{"id":"` + id.String() + `"}`,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "schema violation",
			body:           `{"wardrobe":{"Farmer Hat":-1}}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "negative balance",
			body:           `{"balance":"-1"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "not json",
			body:           `{`,
			expectedStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(http.MethodPost, "/v1/worlds", tt.body)
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
		})
	}

	saved, err := f.storage.LoadWorld(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "3.5", saved.Balance.String())
	assert.NotNil(t, saved.Wardrobe)
	_, ok := saved.NPCs.Get(state.BertID)
	assert.True(t, ok)
}

func TestWorldHandler_ReadAndDelete(t *testing.T) {
	f := setupWorldHandler(t)
	ws := f.seedWorld(t)
	path := "/v1/worlds/" + ws.ID.String()

	rr := f.do(http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var got state.WorldState
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, ws.ID, got.ID)
	assert.Equal(t, "4", got.Inventory.Balance("Pumpkin").String())

	rr = f.do(http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = f.do(http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = f.do(http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWorldHandler_Routing(t *testing.T) {
	f := setupWorldHandler(t)
	id := uuid.New().String()

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"bad id", http.MethodGet, "/v1/worlds/not-a-uuid", http.StatusBadRequest},
		{"list not supported", http.MethodGet, "/v1/worlds", http.StatusMethodNotAllowed},
		{"patch not supported", http.MethodPatch, "/v1/worlds/" + id, http.StatusMethodNotAllowed},
		{"get actions", http.MethodGet, "/v1/worlds/" + id + "/actions", http.StatusMethodNotAllowed},
		{"get preview", http.MethodGet, "/v1/worlds/" + id + "/actions/preview", http.StatusMethodNotAllowed},
		{"post audit", http.MethodPost, "/v1/worlds/" + id + "/audit", http.StatusMethodNotAllowed},
		{"unknown sub-resource", http.MethodGet, "/v1/worlds/" + id + "/crops", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(tt.method, tt.path, "")
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
		})
	}
}

func TestWorldHandler_Enqueue(t *testing.T) {
	f := setupWorldHandler(t)
	ws := f.seedWorld(t)
	path := "/v1/worlds/" + ws.ID.String() + "/actions"

	rr := f.do(http.MethodPost, path+"?at=1500&lang=pt-BR", `{"type":"bertObsession.completed"}`)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	var resp EnqueueResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, ws.ID, resp.WorldID)

	require.Len(t, f.queue.requests, 1)
	req := f.queue.requests[0]
	assert.Equal(t, resp.RequestID, req.RequestID)
	assert.Equal(t, int64(1500), req.At)
	assert.Equal(t, "pt-BR", req.Locale)
	assert.JSONEq(t, `{"type":"bertObsession.completed"}`, string(req.Action))
	assert.Equal(t, []string{"bertObsession.completed"}, f.publisher.kinds)

	// Enqueueing never touches the stored world.
	saved, err := f.storage.LoadWorld(context.Background(), ws.ID)
	require.NoError(t, err)
	assert.Empty(t, saved.FarmActivity)
}

func TestWorldHandler_EnqueueRejectsBadInput(t *testing.T) {
	f := setupWorldHandler(t)
	ws := f.seedWorld(t)
	path := "/v1/worlds/" + ws.ID.String() + "/actions"

	tests := []struct {
		name           string
		path           string
		body           string
		expectedStatus int
	}{
		{"unknown kind", path, `{"type":"land.expanded"}`, http.StatusBadRequest},
		{"missing amount", path, `{"type":"crop.sold","crop":"Pumpkin"}`, http.StatusBadRequest},
		{"bad at", path + "?at=yesterday", `{"type":"bertObsession.completed"}`, http.StatusBadRequest},
		{"negative at", path + "?at=-5", `{"type":"bertObsession.completed"}`, http.StatusBadRequest},
		{"missing world", "/v1/worlds/" + uuid.New().String() + "/actions", `{"type":"bertObsession.completed"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
		})
	}
	assert.Empty(t, f.queue.requests)
}

func TestWorldHandler_Preview(t *testing.T) {
	f := setupWorldHandler(t)
	ws := f.seedWorld(t)
	path := "/v1/worlds/" + ws.ID.String() + "/actions/preview"

	rr := f.do(http.MethodPost, path+"?at=1500", `{"type":"crop.sold","crop":"Pumpkin","amount":"2"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp PreviewResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, int64(1500), resp.At)
	require.NotNil(t, resp.World)
	assert.Equal(t, "0.8", resp.World.Balance.String())
	assert.Equal(t, "2", resp.World.Inventory.Balance("Pumpkin").String())

	saved, err := f.storage.LoadWorld(context.Background(), ws.ID)
	require.NoError(t, err)
	assert.True(t, saved.Balance.IsZero(), "preview must not save")
}

func TestWorldHandler_PreviewRejection(t *testing.T) {
	f := setupWorldHandler(t)
	ws := f.seedWorld(t)
	path := "/v1/worlds/" + ws.ID.String() + "/actions/preview"

	tests := []struct {
		name    string
		target  string
		headers []string
		kind    rules.Kind
	}{
		{
			name:    "outside window in Portuguese",
			target:  path + "?at=2500",
			headers: []string{"Accept-Language", "pt-BR,pt;q=0.9"},
			kind:    rules.QuestNotAvailable,
		},
		{
			name:    "outside window in English",
			target:  path + "?at=2500&lang=en-US",
			headers: []string{"Accept-Language", "pt-BR"},
			kind:    rules.QuestNotAvailable,
		},
	}
	var messages []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(http.MethodPost, tt.target, `{"type":"bertObsession.completed"}`, tt.headers...)
			require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
			var resp FailureResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
			assert.Equal(t, tt.kind, resp.Kind)
			assert.NotEmpty(t, resp.Error)
			assert.NotEmpty(t, resp.Message)
			messages = append(messages, resp.Message)
		})
	}
	require.Len(t, messages, 2)
	assert.NotEqual(t, messages[0], messages[1], "locale must change the message")

	rr := f.do(http.MethodPost, "/v1/worlds/"+uuid.New().String()+"/actions/preview", `{"type":"bertObsession.completed"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWorldHandler_Audit(t *testing.T) {
	f := setupWorldHandler(t)
	ws := f.seedWorld(t)
	ctx := context.Background()

	for _, e := range []audit.Entry{
		{RequestID: "r1", WorldID: ws.ID, Action: "bertObsession.completed", Outcome: audit.OutcomeApplied, At: 1500},
		{RequestID: "r2", WorldID: ws.ID, Action: "bertObsession.completed", Outcome: audit.OutcomeRejected, Failure: "AlreadyCompleted", At: 1600},
	} {
		_, err := f.audit.Record(ctx, e)
		require.NoError(t, err)
	}

	rr := f.do(http.MethodGet, "/v1/worlds/"+ws.ID.String()+"/audit", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp AuditResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, "r2", resp.Entries[0].RequestID)
	assert.Equal(t, map[string]int{"AlreadyCompleted": 1}, resp.Rejections)

	rr = f.do(http.MethodGet, "/v1/worlds/"+ws.ID.String()+"/audit?limit=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.Entries, 1)

	rr = f.do(http.MethodGet, "/v1/worlds/"+ws.ID.String()+"/audit?limit=0", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWorldHandler_WithoutOptionalServices(t *testing.T) {
	store := storage.NewMockStorage()
	h := NewWorldHandler(store, WorldHandlerOptions{}, testLogger())
	id := uuid.New().String()

	tests := []struct {
		path           string
		method         string
		expectedStatus int
	}{
		{"/v1/worlds/" + id + "/actions", http.MethodPost, http.StatusServiceUnavailable},
		{"/v1/worlds/" + id + "/actions/preview", http.MethodPost, http.StatusServiceUnavailable},
		{"/v1/worlds/" + id + "/audit", http.MethodGet, http.StatusNotFound},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{"type":"bertObsession.completed"}`))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, tt.expectedStatus, rr.Code, tt.path)
	}
}
