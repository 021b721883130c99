package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestEventHub_Broadcast(t *testing.T) {
	hub := NewEventHub(nil)
	srv := New(Config{Events: hub})

	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	defer conn.Close()

	// Wait for the hub to register the client.
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Fatal("client was not registered")
	}

	hub.Publish(EventSessionSaved, map[string]string{"name": "sesion_1"})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read event: %v", err)
	}

	var event Event
	if err := json.Unmarshal(msg, &event); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	if event.Type != EventSessionSaved {
		t.Errorf("event type = %q, want %q", event.Type, EventSessionSaved)
	}
	if event.Timestamp == 0 {
		t.Error("event timestamp should be set")
	}
}

func TestEventHub_ClientRemovedOnClose(t *testing.T) {
	hub := NewEventHub(nil)
	srv := New(Config{Events: hub})

	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 0 {
		t.Error("client should be removed after close")
	}

	// Publishing with no clients is a no-op.
	hub.Publish(EventModeChanged, nil)
}
