// Package websocket implements a WebSocket Hub that tells dashboards when match data changed.
// Messages are only hints ("refetch now"): there is no delivery or ordering guarantee and
// nothing is persisted. Clients keep their own periodic refresh as the source of truth.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
)

// EventMatchesChanged is the only event type the hub emits today.
const EventMatchesChanged = "matches.changed"

// Event is the JSON payload pushed to every connected client.
type Event struct {
	Type     string      `json:"type"`
	Reason   string      `json:"reason"`             // "created", "updated", "deleted", "roster", "auto-update"
	MatchIDs []uuid.UUID `json:"matchIds,omitempty"` // Matches touched by the change, when known
}

// Client represents a single connected dashboard.
// conn is nil for in-process subscribers (tests); the pumps in client.go only run for real sockets.
type Client struct {
	Send chan []byte // Buffered channel of outgoing messages; the hub writes here, writePump drains it
	conn *gws.Conn
}

// NewClient creates a client with the standard send buffer.
func NewClient() *Client {
	return &Client{Send: make(chan []byte, sendBuffer)}
}

// Hub manages all active WebSocket connections.
// It runs in its own goroutine and processes registration, unregistration, and broadcast
// events through channels, so the clients map is only ever touched by Run.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	logger *slog.Logger
	done   chan struct{} // Closed when Run returns
}

// NewHub creates a Hub. The broadcast channel is buffered so publishers rarely wait;
// when it is full, publishing drops the event instead of blocking the HTTP handler.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Run is the Hub's main event loop. It blocks until ctx is cancelled, then closes every
// client's Send channel so their write pumps exit.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				delete(h.clients, client)
				close(client.Send)
			}
			h.logger.Info("realtime hub stopped")
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Debug("realtime client registered", slog.Int("clients", len(h.clients)))

		case client := <-h.unregister:
			h.remove(client)

		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.Send <- msg:
				// The client's buffer is full: it is too slow, so drop it rather than stall everyone.
				default:
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.Send) // Closing the channel signals the write pump to stop
	h.logger.Debug("realtime client unregistered", slog.Int("clients", len(h.clients)))
}

// Register adds a client so it starts receiving broadcasts.
// It returns false when the hub has already stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client when its connection closes.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// MatchesChanged publishes a matches.changed event. It never blocks: when nobody is
// listening or the queue is full the event is dropped.
func (h *Hub) MatchesChanged(reason string, matchIDs ...uuid.UUID) {
	if h == nil {
		return
	}
	select {
	case <-h.done:
		return
	default:
	}

	data, err := json.Marshal(Event{Type: EventMatchesChanged, Reason: reason, MatchIDs: matchIDs})
	if err != nil {
		h.logger.Error("encode realtime event", slog.Any("error", err))
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("realtime queue full, dropping event", slog.String("reason", reason))
	}
}
