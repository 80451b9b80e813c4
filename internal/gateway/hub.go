// Package gateway is the bot's presentation layer: a JSON REST API polled
// by the dashboard plus a WebSocket feed that pushes status, analysis and
// trade events as they happen. It reads shared state only through the
// status store and ledger accessors; it never mutates trading state
// directly.
package gateway

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"trading-agent/internal/model"
)

// Hub fans outbound events to connected WebSocket clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]bool)}
}

// Broadcast sends one typed event to every connected client. Slow clients
// are dropped rather than blocking the caller.
func (h *Hub) Broadcast(event string, data any) {
	envelope, err := json.Marshal(map[string]any{
		"event": event,
		"data":  data,
		"ts":    time.Now().Format(time.RFC3339Nano),
	})
	if err != nil {
		log.Printf("[gateway] marshal %s event: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- envelope:
		default:
			// Client buffer full; close it from its own pump.
			go c.close()
		}
	}
}

// PublishAnalysis pushes a fresh analysis to connected dashboards. Satisfies
// the scheduler's publisher port; the error is always nil.
func (h *Hub) PublishAnalysis(ctx context.Context, symbol string, snap *model.Snapshot, sig *model.Signal) error {
	h.Broadcast("analysis", map[string]any{
		"symbol":   symbol,
		"snapshot": snap,
		"signal":   sig,
	})
	return nil
}

// PublishTrade pushes a trade transition to connected dashboards.
func (h *Hub) PublishTrade(ctx context.Context, t model.Trade) error {
	h.Broadcast("trade", t)
	return nil
}

// AddClient registers a client with the hub.
func (h *Hub) AddClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()
	log.Printf("[gateway] ws client connected (%d total)", n)
}

// RemoveClient deregisters a client and releases its send queue.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	log.Printf("[gateway] ws client disconnected (%d total)", n)
}

// ClientCount returns the number of connected WebSocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
