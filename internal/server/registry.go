package server

import (
	"strings"
	"sync"
)

// Registry is the set of authenticated connections, keyed by case-folded
// display name. A connection appears here if and only if it holds a name; the
// registry tracks the claimed key itself rather than reading it back from the
// client, so a cleanup racing the connect handshake can never leak a name.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]*Client
	byClient map[*Client]string
}

// NewRegistry returns an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:   make(map[string]*Client),
		byClient: make(map[*Client]string),
	}
}

// Register claims username for c. Names are compared case-insensitively; a
// name held by another active connection yields ErrNameCollision.
func (g *Registry) Register(c *Client, username string) error {
	key := strings.ToLower(username)

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, taken := g.byName[key]; taken {
		return ErrNameCollision
	}
	g.byName[key] = c
	g.byClient[c] = key
	return nil
}

// Unregister releases whatever name c registered, making it immediately
// available for reuse. Unregistering a connection that never registered is a
// no-op.
func (g *Registry) Unregister(c *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key, ok := g.byClient[c]
	if !ok {
		return
	}
	delete(g.byClient, c)
	delete(g.byName, key)
}

// Lookup returns the connection holding username, if any.
func (g *Registry) Lookup(username string) (*Client, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.byName[strings.ToLower(username)]
	return c, ok
}

// Clients returns a snapshot of all authenticated connections.
func (g *Registry) Clients() []*Client {
	g.mu.RLock()
	defer g.mu.RUnlock()

	clients := make([]*Client, 0, len(g.byName))
	for _, c := range g.byName {
		clients = append(clients, c)
	}
	return clients
}

// Count returns the number of authenticated connections.
func (g *Registry) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.byName)
}
