package websocket

import (
	"context"
	"errors"
	"log/slog"

	"clevermock-web/internal/observability"
)

var errSendBufferFull = errors.New("websocket: send buffer full")

// Hub tracks the live interview screens, one per key. Opening the same
// interview in a second tab supersedes the first.
type Hub struct {
	// Live screens by key
	screens map[string]*Client

	register   chan *Client
	unregister chan *Client

	// Shutdown signal
	done chan struct{}
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		screens:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			slog.Info("hub shutting down gracefully")
			return ctx.Err()

		case client := <-h.register:
			if old, ok := h.screens[client.key]; ok && old != client {
				old.supersede()
				slog.Info("interview screen superseded", slog.String("key", client.key))
			}
			h.screens[client.key] = client
			observability.InterviewScreensActive.Set(float64(len(h.screens)))

		case client := <-h.unregister:
			if h.screens[client.key] == client {
				delete(h.screens, client.key)
				observability.InterviewScreensActive.Set(float64(len(h.screens)))
			}
		}
	}
}

// shutdown ends every live screen
func (h *Hub) shutdown() {
	close(h.done)

	for key, client := range h.screens {
		client.ctxCancel()
		delete(h.screens, key)
	}
	observability.InterviewScreensActive.Set(0)

	slog.Info("hub shutdown complete")
}

// Register adds a screen, superseding any screen with the same key
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.ctxCancel()
	}
}

// Unregister removes a screen
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
