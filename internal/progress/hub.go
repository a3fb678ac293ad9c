// Package progress implements the ProgressSink capability: it fans out
// per-item progress events to subscribed WebSocket clients and retains the
// last-known snapshot for each item so a late or reconnecting subscriber
// can catch up.
package progress

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wizziwig82/musiclib-ingest/internal/ingest"
	"github.com/wizziwig82/musiclib-ingest/internal/logger"
)

// eventType distinguishes the two message shapes sent over the wire.
type eventType string

const (
	eventProgress  eventType = "progress"
	eventBatchDone eventType = "batch_done"
)

type wireMessage struct {
	Type      eventType            `json:"type"`
	Progress  *ingest.UploadProgress `json:"progress,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// Metrics tracks hub-level WebSocket statistics.
type Metrics struct {
	TotalConnections   atomic.Int64
	ActiveConnections  atomic.Int64
	MessagesSent       atomic.Int64
	ConnectionsDropped atomic.Int64
}

// Hub maintains the set of subscribed progress clients, the last-known
// snapshot per item, and fans out Emit/EmitBatchDone calls to every
// connected client. It implements ingest.ProgressSink.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*Client]struct{}
	snapshots map[string]ingest.UploadProgress

	register   chan *Client
	unregister chan *Client
	broadcast  chan wireMessage

	metrics *Metrics

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub constructs a Hub and starts its dispatch loop.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		clients:    make(map[*Client]struct{}),
		snapshots:  make(map[string]ingest.UploadProgress),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		broadcast:  make(chan wireMessage, 256),
		metrics:    &Metrics{},
		ctx:        ctx,
		cancel:     cancel,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return
		case c := <-h.register:
			h.registerClient(c)
		case c := <-h.unregister:
			h.unregisterClient(c)
		case msg := <-h.broadcast:
			h.dispatch(msg)
		}
	}
}

func (h *Hub) registerClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	snapshot := make([]ingest.UploadProgress, 0, len(h.snapshots))
	for _, p := range h.snapshots {
		snapshot = append(snapshot, p)
	}
	h.mu.Unlock()

	h.metrics.TotalConnections.Add(1)
	h.metrics.ActiveConnections.Add(1)

	for _, p := range snapshot {
		p := p
		data, err := json.Marshal(wireMessage{Type: eventProgress, Progress: &p, Timestamp: time.Now()})
		if err != nil {
			continue
		}
		c.trySend(data)
	}
}

func (h *Hub) unregisterClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		h.metrics.ActiveConnections.Add(-1)
	}
}

func (h *Hub) dispatch(msg wireMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Error("progress: failed to marshal message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.trySend(data) {
			h.metrics.MessagesSent.Add(1)
		} else {
			h.metrics.ConnectionsDropped.Add(1)
			go func(c *Client) { h.unregister <- c }(c)
		}
	}
}

// Emit is called by the pipeline on every status transition (by the
// coordinator at admission and by the drain task afterwards). It is
// non-blocking: a full broadcast buffer drops the message rather than
// stalling the caller.
func (h *Hub) Emit(p ingest.UploadProgress) {
	p.UpdatedAt = time.Now()

	h.mu.Lock()
	h.snapshots[p.ItemID] = p
	h.mu.Unlock()

	select {
	case h.broadcast <- wireMessage{Type: eventProgress, Progress: &p, Timestamp: p.UpdatedAt}:
	default:
		logger.Log.Warn("progress: broadcast buffer full, dropping event", logger.WithItemID(p.ItemID))
	}
}

// EmitBatchDone signals every subscriber that the current batch has
// finished draining.
func (h *Hub) EmitBatchDone() {
	select {
	case h.broadcast <- wireMessage{Type: eventBatchDone, Timestamp: time.Now()}:
	default:
	}
}

// Snapshot returns the last-known progress for itemID, if any.
func (h *Hub) Snapshot(itemID string) (ingest.UploadProgress, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.snapshots[itemID]
	return p, ok
}

// Register admits a new client into the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.ctx.Done():
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// Shutdown stops the hub's dispatch loop and closes every client.
func (h *Hub) Shutdown() {
	h.cancel()
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
	}
	h.clients = make(map[*Client]struct{})
}
