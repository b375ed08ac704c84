package server

import (
	"testing"

	"github.com/stretchr/testify/require"

	"collabchat/internal/protocol"
)

// newTestServer builds a server with default configuration and no listener.
func newTestServer() *Server {
	return New(NewConfig())
}

// newTestClient builds a transport-less client, authenticated under name when
// name is non-empty.
func newTestClient(t *testing.T, s *Server, name string) *Client {
	t.Helper()
	c := newClient(nil, s, "test:"+name)
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	if name != "" {
		require.NoError(t, s.registry.Register(c, name))
		c.setUsername(name)
	}
	return c
}

// queuedMessages drains and decodes everything currently queued for c.
func queuedMessages(t *testing.T, c *Client) []protocol.Message {
	t.Helper()
	var out []protocol.Message
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return out
			}
			msg, err := protocol.Decode(data)
			require.NoError(t, err)
			out = append(out, *msg)
		default:
			return out
		}
	}
}

// countByType tallies how many of msgs carry the given tag.
func countByType(msgs []protocol.Message, typ protocol.Type) int {
	n := 0
	for _, m := range msgs {
		if m.Type == typ {
			n++
		}
	}
	return n
}

// firstOfType returns the first message with the given tag, if any.
func firstOfType(msgs []protocol.Message, typ protocol.Type) (protocol.Message, bool) {
	for _, m := range msgs {
		if m.Type == typ {
			return m, true
		}
	}
	return protocol.Message{}, false
}
