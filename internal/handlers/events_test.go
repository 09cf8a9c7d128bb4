package handlers

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/farm-engine/internal/services/events"
)

func TestEventsHandler_BadRequests(t *testing.T) {
	h := NewEventsHandler(nil, testLogger())

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"post", http.MethodPost, "/v1/events/worlds/" + uuid.New().String(), http.StatusMethodNotAllowed},
		{"missing id", http.MethodGet, "/v1/events/worlds", http.StatusBadRequest},
		{"extra segment", http.MethodGet, "/v1/events/worlds/" + uuid.New().String() + "/x", http.StatusBadRequest},
		{"bad id", http.MethodGet, "/v1/events/worlds/farm-1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
		})
	}
}

// readEvent returns the name of the next SSE event, skipping comments.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var name, data string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("Failed to read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
}

func TestEventsHandler_StreamsWorldEvents(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	server := httptest.NewServer(NewEventsHandler(client, testLogger()))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	worldID := uuid.New()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/v1/events/worlds/"+worldID.String(), nil)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Expected text/event-stream, got %s", ct)
	}

	reader := bufio.NewReader(resp.Body)
	if name, _ := readEvent(t, reader); name != "connected" {
		t.Fatalf("Expected connected event, got %s", name)
	}

	b := events.NewBroadcaster(client, testLogger())
	if err := b.PublishActionRejected(ctx, worldID, "req-9", "crop.sold", "ItemNotOwned", "You don't have that."); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}
	// Events for other worlds must not leak into this stream.
	if err := b.PublishActionApplied(ctx, uuid.New(), "req-x", "crop.sold", 1); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}
	if err := b.PublishWorldUpdated(ctx, worldID, "1.5", 2); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}

	name, data := readEvent(t, reader)
	if name != string(events.EventTypeActionRejected) {
		t.Errorf("Expected %s, got %s", events.EventTypeActionRejected, name)
	}
	if !strings.Contains(data, `"request_id":"req-9"`) || !strings.Contains(data, `"failure":"ItemNotOwned"`) {
		t.Errorf("Unexpected event data %s", data)
	}

	name, _ = readEvent(t, reader)
	if name != string(events.EventTypeWorldUpdated) {
		t.Errorf("Expected %s, got %s", events.EventTypeWorldUpdated, name)
	}
}
