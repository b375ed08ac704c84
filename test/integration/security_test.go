package integration

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"collabchat/internal/server"
	"collabchat/test/testhelpers"
)

// newPermissiveConfig returns a configuration suitable for tests: wildcard
// origins and a rate limit that normal traffic cannot trip.
func newPermissiveConfig() *server.Config {
	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{"*"}
	cfg.RateLimit = server.RateLimitConfig{Burst: 1000, RefillInterval: 10 * time.Millisecond}
	return cfg
}

func TestOriginPolicyEnforcedDuringUpgrade(t *testing.T) {
	cfg := newPermissiveConfig()
	cfg.AllowedOrigins = []string{"http://trusted.example"}
	_, wsURL := testhelpers.StartChatServerWithConfig(t, cfg)

	t.Run("Allowed origin connects", func(t *testing.T) {
		conn, err := testhelpers.TryDial(wsURL, "http://trusted.example")
		if err != nil {
			t.Fatalf("Expected handshake to succeed: %v", err)
		}
		_ = conn.Close()
	})

	t.Run("Origin matching is case-insensitive", func(t *testing.T) {
		conn, err := testhelpers.TryDial(wsURL, "HTTP://Trusted.Example")
		if err != nil {
			t.Fatalf("Expected handshake to succeed: %v", err)
		}
		_ = conn.Close()
	})

	t.Run("Disallowed origin is refused", func(t *testing.T) {
		conn, err := testhelpers.TryDial(wsURL, "http://evil.example")
		if err == nil {
			_ = conn.Close()
			t.Fatal("Expected handshake to fail for a disallowed origin")
		}
	})
}

func TestWildcardOriginAllowsEverything(t *testing.T) {
	_, wsURL := testhelpers.StartChatServerWithConfig(t, newPermissiveConfig())

	conn, err := testhelpers.TryDial(wsURL, "http://anywhere.example")
	if err != nil {
		t.Fatalf("Expected wildcard policy to accept any origin: %v", err)
	}
	_ = conn.Close()
}

func TestWebSocketEndpointRejectsNonGET(t *testing.T) {
	srv := server.New(newPermissiveConfig())
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/ws", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("Failed to POST: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected status %d, got %d", http.StatusMethodNotAllowed, resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := server.New(newPermissiveConfig())
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	for _, path := range []string{"/", "/healthz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("Failed to GET %s: %v", path, err)
		}

		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusOK, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "text/plain" {
			t.Errorf("%s: expected content type text/plain, got %s", path, ct)
		}
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			t.Fatalf("Failed to read body: %v", err)
		}
		if !strings.Contains(string(body), "running") {
			t.Errorf("%s: unexpected health body: %q", path, body)
		}
	}
}
