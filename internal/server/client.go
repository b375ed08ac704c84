package server

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"collabchat/internal/protocol"
)

const (
	sendBufferSize = 256
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	writeWait      = 10 * time.Second
)

// Client is one live connection and its session state. The transport handle
// is exclusively owned by the server for the connection's lifetime; session
// fields read by other goroutines are guarded by mu.
type Client struct {
	conn   *websocket.Conn
	server *Server
	send   chan []byte
	addr   string
	id     string

	mu       sync.Mutex
	username string
	room     *Room
	closed   bool

	cleanup sync.Once
	limiter *rateLimiter
}

func newClient(conn *websocket.Conn, s *Server, addr string) *Client {
	if conn != nil {
		conn.SetReadLimit(s.cfg.MaxMessageSize)
	}
	return &Client{
		conn:    conn,
		server:  s,
		send:    make(chan []byte, sendBufferSize),
		addr:    addr,
		id:      uuid.NewString()[:8],
		limiter: newRateLimiter(s.cfg.RateLimit.Burst, s.cfg.RateLimit.RefillInterval),
	}
}

// Username returns the display name, or "" while unauthenticated.
func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

func (c *Client) setUsername(name string) {
	c.mu.Lock()
	c.username = name
	c.mu.Unlock()
}

// Room returns the client's current room, or nil.
func (c *Client) Room() *Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Client) setRoom(r *Room) {
	c.mu.Lock()
	c.room = r
	c.mu.Unlock()
}

// clearRoom resets the current room only if it still points at r, so a stale
// removal can never clobber a newer membership.
func (c *Client) clearRoom(r *Room) {
	c.mu.Lock()
	if c.room == r {
		c.room = nil
	}
	c.mu.Unlock()
}

// trySend queues data for delivery without blocking. It reports false when
// the connection is closed or its send buffer is full; callers treat that as
// a stale-member signal.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// sendMessage encodes and queues an outbound protocol message.
func (c *Client) sendMessage(msg protocol.Message) bool {
	return c.trySend(msg.Encode())
}

// markClosed transitions the client to its terminal state and closes the send
// channel, stopping the write pump. Safe to call more than once.
func (c *Client) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump drives the connection's receive loop: it reads frames, applies the
// rate limit, and hands each frame to the server for decode and dispatch.
// Loop exit triggers the connection's cleanup exactly once.
func (c *Client) readPump() {
	defer c.server.dropClient(c)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		slog.Warn("failed to set read deadline", "addr", c.addr, "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadExit(err)
			return
		}
		if !c.limiter.allow() {
			slog.Warn("rate limit exceeded, discarding frame",
				"addr", c.addr, "username", c.Username())
			c.sendMessage(protocol.NewError("rate limit exceeded"))
			continue
		}
		c.server.handleFrame(c, raw)
	}
}

func (c *Client) logReadExit(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		slog.Warn("frame exceeded maximum size", "addr", c.addr,
			"limit", c.server.cfg.MaxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		slog.Info("client disconnected", "addr", c.addr, "reason", err)
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		slog.Info("connection closed", "addr", c.addr)
	default:
		slog.Warn("websocket read error", "addr", c.addr, "error", err)
	}
}

// writePump drains the send channel onto the wire and keeps the connection
// alive with periodic pings. It exits when the send channel is closed or a
// write fails, closing the transport either way.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			slog.Warn("error closing connection", "addr", c.addr, "error", err)
		}
	}()

	for {
		select {
		case data, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !c.writeFrame(data) {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// writeFrame writes data as one text frame. Queued frames are not coalesced;
// each protocol message stays its own WebSocket frame so clients can decode
// them independently.
func (c *Client) writeFrame(data []byte) bool {
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		if !isExpectedCloseError(err) {
			slog.Warn("websocket write error", "addr", c.addr, "error", err)
		}
		return false
	}
	return true
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "websocket: close sent") ||
		strings.Contains(msg, "broken pipe")
}
