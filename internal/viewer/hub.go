// Package viewer relays transcript events from Kafka to browsers over
// WebSocket.
package viewer

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"call-transcript-service/internal/observability/logging"
)

// Event is the message pushed to browsers. Payload carries the original
// Kafka event unchanged.
type Event struct {
	EventType string          `json:"eventType"`
	CallID    string          `json:"callId"`
	JobID     string          `json:"jobId"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// client is the subset of websocket.Conn used by the hub.
type client interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Hub fans events out to connected WebSocket clients.
type Hub struct {
	clients    map[client]bool
	broadcast  chan Event
	register   chan client
	unregister chan client
	done       chan struct{} // closed when Run returns
	mu         sync.RWMutex
	logger     zerolog.Logger
}

// NewHub creates a hub. Call Run to start it.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[client]bool),
		broadcast:  make(chan Event, 100),
		register:   make(chan client),
		unregister: make(chan client),
		done:       make(chan struct{}),
		logger:     logging.WithComponent("viewer"),
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.Close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info().Int("clients", total).Msg("Client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.Close()
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info().Int("clients", total).Msg("Client disconnected")

		case event := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				if err := c.WriteJSON(event); err != nil {
					h.logger.Warn().Err(err).Msg("Write error, dropping client")
					c.Close()
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues an event for broadcast. It blocks while the queue is full
// and gives up when ctx is done or the hub has stopped.
func (h *Hub) Publish(ctx context.Context, event Event) {
	select {
	case h.broadcast <- event:
	case <-ctx.Done():
	case <-h.done:
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local dev
	},
}

// ServeWS upgrades the request and registers the connection. The read loop
// only detects disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	go func() {
		defer func() {
			select {
			case h.unregister <- conn:
			case <-h.done:
				conn.Close()
			}
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
