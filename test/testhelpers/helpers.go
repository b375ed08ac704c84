// Package testhelpers provides shared utilities for integration tests.
//
// It contains helpers for spinning up an in-process chat server, dialing
// WebSocket connections against it, and exchanging protocol frames with
// deadline-bounded reads so tests fail fast instead of hanging.
package testhelpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"collabchat/internal/protocol"
	"collabchat/internal/server"
)

// StartChatServer starts a chat server behind an httptest listener and
// returns the server together with the ws:// URL of its WebSocket endpoint.
// Both are torn down automatically when the test finishes.
func StartChatServer(t *testing.T) (*server.Server, string) {
	t.Helper()

	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{"*"}
	// Generous limit so tests can send bursts without tripping throttling.
	cfg.RateLimit = server.RateLimitConfig{Burst: 1000, RefillInterval: 10 * time.Millisecond}

	srv := server.New(cfg)
	ts := httptest.NewServer(srv.Routes())

	t.Cleanup(func() {
		ts.Close()
		if err := srv.Shutdown(2 * time.Second); err != nil {
			t.Logf("shutdown error: %v", err)
		}
	})

	return srv, BuildWebSocketURL(ts.URL)
}

// StartChatServerWithConfig is like StartChatServer but uses the caller's
// configuration unmodified.
func StartChatServerWithConfig(t *testing.T, cfg *server.Config) (*server.Server, string) {
	t.Helper()

	srv := server.New(cfg)
	ts := httptest.NewServer(srv.Routes())

	t.Cleanup(func() {
		ts.Close()
		if err := srv.Shutdown(2 * time.Second); err != nil {
			t.Logf("shutdown error: %v", err)
		}
	})

	return srv, BuildWebSocketURL(ts.URL)
}

// BuildWebSocketURL converts an httptest base URL into the ws:// URL of the
// chat endpoint.
func BuildWebSocketURL(serverURL string) string {
	return "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
}

// Dial opens a WebSocket connection with the given Origin header and fails
// the test if the handshake does not complete.
func Dial(t *testing.T, wsURL, origin string) *websocket.Conn {
	t.Helper()

	conn, err := TryDial(wsURL, origin)
	if err != nil {
		t.Fatalf("Failed to dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// TryDial opens a WebSocket connection and returns the handshake error, if
// any, so tests can assert on rejected handshakes.
func TryDial(wsURL, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(wsURL, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// SendFrame writes one protocol message as a text frame.
func SendFrame(t *testing.T, conn *websocket.Conn, msg protocol.Message) {
	t.Helper()

	if err := conn.WriteMessage(websocket.TextMessage, msg.Encode()); err != nil {
		t.Fatalf("Failed to send %s frame: %v", msg.Type, err)
	}
}

// ReadFrame reads and decodes the next frame, failing the test if nothing
// arrives before the timeout.
func ReadFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) *protocol.Message {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	msg, err := protocol.Decode(data)
	if err != nil {
		t.Fatalf("Received undecodable frame %q: %v", data, err)
	}
	return msg
}

// WaitForType reads frames until one of the wanted type arrives, skipping
// everything else. Fails the test when the timeout expires first. A read
// deadline error is fatal because gorilla marks the read side of a
// connection permanently failed after any read error.
func WaitForType(t *testing.T, conn *websocket.Conn, want protocol.Type, timeout time.Duration) *protocol.Message {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Connection failed while waiting for %s: %v", want, err)
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			continue
		}
		if msg.Type == want {
			return msg
		}
	}
}

// ExpectNoFrameOfType drains frames for the given window and fails the test
// if any frame of the unwanted type shows up. The connection cannot be read
// from again afterwards; call this last.
func ExpectNoFrameOfType(t *testing.T, conn *websocket.Conn, unwanted protocol.Type, window time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(window)); err != nil {
		return
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			continue
		}
		if msg.Type == unwanted {
			t.Errorf("Received unexpected %s frame: %v", unwanted, msg.Payload)
			return
		}
	}
}

// ConnectAs performs the connect handshake for username and returns the
// connection_ack payload. The trailing rooms_list frame is consumed too so
// tests start from a quiet connection.
func ConnectAs(t *testing.T, conn *websocket.Conn, username string) *protocol.Message {
	t.Helper()

	SendFrame(t, conn, protocol.NewConnect(username))
	ack := WaitForType(t, conn, protocol.TypeConnectionAck, 2*time.Second)
	WaitForType(t, conn, protocol.TypeRoomsList, 2*time.Second)
	return ack
}

// DrainFrames reads and discards frames for the given window. Like
// ExpectNoFrameOfType it leaves the connection unreadable; call this last.
func DrainFrames(conn *websocket.Conn, window time.Duration) {
	if err := conn.SetReadDeadline(time.Now().Add(window)); err != nil {
		return
	}
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// CloseWebSocket performs a clean close handshake.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
