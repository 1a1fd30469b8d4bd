package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/solutionspelichet/library-un/internal/infrastructure"
	"github.com/solutionspelichet/library-un/internal/operations"
)

// TypeConnection is sent to a client once it is registered
const TypeConnection = "connection"

// broadcastBuffer bounds how many frames may wait for the hub loop
const broadcastBuffer = 256

// Envelope is the frame sent to clients
type Envelope struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
	TraceID   string `json:"trace_id,omitempty"`
}

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	done       chan struct{}

	mu      sync.RWMutex
	running bool

	sent    atomic.Int64
	dropped atomic.Int64

	logger *slog.Logger
}

// NewHub creates a hub. Call Start before registering clients.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Start runs the hub loop in its own goroutine. It is idempotent.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

// Stop ends the hub loop and closes every client
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			h.logger.Info("hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.Info("client registered",
				slog.String("client_id", c.id),
				slog.String("remote_addr", c.remoteAddr),
				slog.Int("total_clients", count))
			if msg, err := h.encode(TypeConnection, map[string]any{"status": "connected", "client_id": c.id}, c.traceID); err == nil {
				h.deliver(c, msg)
			}

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.Info("client unregistered",
				slog.String("client_id", c.id),
				slog.Int("total_clients", count),
				slog.Duration("connection_duration", time.Since(c.connectedAt)))

		case msg := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for c := range h.clients {
				clients = append(clients, c)
			}
			h.mu.RUnlock()

			for _, c := range clients {
				h.deliver(c, msg)
			}
		}
	}
}

// deliver queues msg for c, dropping c when its buffer is full. Only the
// hub loop calls it.
func (h *Hub) deliver(c *Client, msg []byte) {
	select {
	case c.send <- msg:
		h.sent.Add(1)
	default:
		h.mu.Lock()
		if _, ok := h.clients[c]; ok {
			delete(h.clients, c)
			close(c.send)
		}
		h.mu.Unlock()
		h.logger.Warn("client send buffer full, disconnecting", slog.String("client_id", c.id))
	}
}

// Register adds a client. It returns false when the hub is not running.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes a client
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// Report broadcasts a progress event. It never blocks; events are dropped
// when the hub is backed up.
func (h *Hub) Report(ctx context.Context, e operations.ProgressEvent) {
	msg, err := h.encode(e.Type, e, infrastructure.GetTraceID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "cannot encode progress event",
			slog.String("type", e.Type),
			slog.String("error", err.Error()))
		return
	}
	h.Broadcast(msg)
}

// Broadcast queues a raw frame for every client
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.dropped.Add(1)
		h.logger.Warn("broadcast queue full, frame dropped", slog.Int("size", len(msg)))
	}
}

func (h *Hub) encode(typ string, data any, traceID string) ([]byte, error) {
	return json.Marshal(Envelope{
		Type:      typ,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
		TraceID:   traceID,
	})
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns delivery counters
func (h *Hub) Stats() map[string]int64 {
	return map[string]int64{
		"active_clients":  int64(h.ClientCount()),
		"messages_sent":   h.sent.Load(),
		"frames_dropped":  h.dropped.Load(),
		"broadcast_queue": int64(len(h.broadcast)),
	}
}
