package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"collabchat/internal/protocol"
)

// systemUser is the display name attributed to server-created rooms.
const systemUser = "System"

// Server owns the room directory, the active-connection registry, and the
// message dispatcher, and drives every connection's lifecycle from accept to
// cleanup. It has no knowledge of client rendering; its only surface is the
// wire protocol.
type Server struct {
	cfg        Config
	directory  *Directory
	registry   *Registry
	dispatcher *Dispatcher
	origins    *originPolicy

	mu      sync.Mutex
	clients map[*Client]struct{}
	closed  bool
	wg      sync.WaitGroup
}

// New builds a Server from cfg, creates the default room, and registers the
// protocol handlers. Passing nil uses the default configuration.
func New(cfg *Config) *Server {
	if cfg == nil {
		cfg = NewConfig()
	}
	cfg.sanitize()

	s := &Server{
		cfg:        *cfg,
		directory:  NewDirectory(),
		registry:   NewRegistry(),
		dispatcher: NewDispatcher(),
		origins:    newOriginPolicy(cfg.AllowedOrigins),
		clients:    make(map[*Client]struct{}),
	}

	s.directory.GetOrCreate(cfg.DefaultRoom, systemUser)
	slog.Info("room created", "room", cfg.DefaultRoom, "created_by", systemUser)

	registerHandlers(s.dispatcher)
	return s
}

// Directory returns the server's room directory.
func (s *Server) Directory() *Directory { return s.directory }

// Registry returns the server's active-connection registry.
func (s *Server) Registry() *Registry { return s.registry }

// attach adopts an upgraded connection and starts its pump goroutines. The
// connection is closed immediately if the server is shutting down.
func (s *Server) attach(conn *websocket.Conn, addr string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	c := newClient(conn, s, addr)
	s.clients[c] = struct{}{}
	total := len(s.clients)
	s.wg.Add(2)
	s.mu.Unlock()

	slog.Info("connection accepted", "addr", addr, "user_id", c.id, "total", total)

	go func() {
		defer s.wg.Done()
		c.writePump()
	}()
	go func() {
		defer s.wg.Done()
		c.readPump()
	}()
}

// handleFrame decodes one inbound frame and routes it through the dispatcher.
// Undecodable frames get an error reply and the loop continues; they are not
// fatal. Unauthenticated connections may only send connect.
func (s *Server) handleFrame(c *Client, raw []byte) {
	msg, err := protocol.Decode(raw)
	if err != nil {
		slog.Warn("undecodable frame", "addr", c.addr, "error", err)
		c.sendMessage(protocol.NewError(err.Error()))
		return
	}

	if c.Username() == "" && msg.Type != protocol.TypeConnect {
		c.sendMessage(protocol.NewConnectionError(ErrProtocolViolation.Error()))
		return
	}

	if !s.dispatcher.Dispatch(s, c, msg) {
		c.sendMessage(protocol.NewError("unsupported message type"))
	}
}

// dropClient performs the connection's terminal cleanup: leave the current
// room with a single user_left notification, release the display name, close
// the transport. Idempotent; transport closure, an explicit disconnect, and
// server shutdown may all race to call it.
func (s *Server) dropClient(c *Client) {
	c.cleanup.Do(func() {
		if room := c.Room(); room != nil {
			s.removeFromRoom(c, room)
		}
		s.registry.Unregister(c)

		s.mu.Lock()
		delete(s.clients, c)
		total := len(s.clients)
		s.mu.Unlock()

		c.markClosed()
		if c.conn != nil {
			if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
				slog.Warn("error closing connection", "addr", c.addr, "error", err)
			}
		}

		slog.Info("connection dropped",
			"addr", c.addr, "username", c.Username(), "total", total)
	})
}

// removeFromRoom takes c out of room and emits the presence traffic: one
// user_left to the remaining members, an updated roster, and a directory
// refresh to everyone. Empty rooms other than the default are evicted.
// Reports whether c was a member; a second call is a no-op.
func (s *Server) removeFromRoom(c *Client, room *Room) bool {
	if !room.Remove(c) {
		return false
	}
	username := c.Username()
	slog.Info("user left room", "username", username, "room", room.Name())

	s.reportStale(room.Broadcast(protocol.NewUserLeft(username, room.Name()).Encode(), nil))

	if room.MemberCount() > 0 {
		s.reportStale(room.Broadcast(protocol.NewRoomUsers(room.Name(), room.Usernames()).Encode(), nil))
	} else if room.Name() != s.cfg.DefaultRoom {
		if s.directory.Evict(room) {
			slog.Info("room deleted", "room", room.Name())
		}
	}

	s.broadcastRoomsList()
	return true
}

// broadcastAll fans msg out to every authenticated connection.
func (s *Server) broadcastAll(msg protocol.Message) {
	data := msg.Encode()
	var stale []*Client
	for _, c := range s.registry.Clients() {
		if !c.trySend(data) {
			stale = append(stale, c)
		}
	}
	s.reportStale(stale)
}

// broadcastRoomsList pushes the current directory snapshot to everyone, so
// clients always see up-to-date member counts.
func (s *Server) broadcastRoomsList() {
	s.broadcastAll(protocol.NewRoomsList(s.directory.List()))
}

// reportStale schedules cleanup for members whose send buffer was
// unavailable during a broadcast.
func (s *Server) reportStale(stale []*Client) {
	for _, c := range stale {
		slog.Warn("dropping unresponsive connection",
			"addr", c.addr, "username", c.Username())
		go s.dropClient(c)
	}
}

// Shutdown closes every client connection and waits for the pump goroutines
// to finish, up to timeout. New connections are refused once it begins.
func (s *Server) Shutdown(timeout time.Duration) error {
	s.mu.Lock()
	s.closed = true
	clients := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	slog.Info("shutting down", "connections", len(clients))
	for _, c := range clients {
		s.dropClient(c)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("shutdown complete")
		return nil
	case <-time.After(timeout):
		slog.Warn("shutdown timeout reached")
		return context.DeadlineExceeded
	}
}

// CreateServer wraps handler in an HTTP server with production timeouts.
func CreateServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
