package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Event is one kiosk occurrence pushed to WebSocket clients.
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Event types published by the kiosk.
const (
	EventModeChanged    = "mode_changed"
	EventButtonPressed  = "button_pressed"
	EventSessionSaved   = "session_saved"
	EventTextRecognized = "text_recognized"
	EventColorChanged   = "color_changed"
)

// EventHub broadcasts kiosk events to connected WebSocket clients.
type EventHub struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
}

// NewEventHub creates an empty hub.
func NewEventHub(logger *zap.Logger) *EventHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventHub{
		logger:  logger,
		clients: make(map[*websocket.Conn]bool),
	}
}

// Publish sends an event to every connected client. Slow or broken clients
// are dropped.
func (h *EventHub) Publish(eventType string, data interface{}) {
	msg, err := json.Marshal(Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
