package progress

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/wizziwig82/musiclib-ingest/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256
)

// Client represents one subscribed progress WebSocket connection. Unlike a
// two-way chat client it never reads application messages from the peer —
// subscription is implicit in the connection itself — but still answers
// pings to detect dead connections.
type Client struct {
	conn *websocket.Conn
	hub  *Hub

	send chan []byte

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// NewClient wraps an accepted WebSocket connection for hub registration.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// trySend enqueues data for delivery, returning false if the client's
// buffer is full (the caller treats this as a dead connection).
func (c *Client) trySend(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// WritePump pumps queued progress events to the WebSocket connection until
// the hub closes the send channel or the connection dies. It owns the
// connection's lifecycle and must run in its own goroutine per client.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.Close(websocket.StatusGoingAway, "server shutdown")
			return

		case data, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "closing")
				return
			}
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Log.Warn("progress: write failed, dropping client", zap.Error(err))
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				logger.Log.Warn("progress: ping failed, dropping client", zap.Error(err))
				return
			}
		}
	}
}

// ReadPump discards anything the peer sends (subscribers are not expected
// to send application messages) and exits when the connection closes, so
// the hub can clean up the client promptly on disconnect.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(4096)
	for {
		readCtx, readCancel := context.WithTimeout(c.ctx, pongWait)
		_, _, err := c.conn.Read(readCtx)
		readCancel()
		if err != nil {
			return
		}
	}
}

// Close tears down the connection exactly once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	c.conn.Close(websocket.StatusNormalClosure, "closing")
}
