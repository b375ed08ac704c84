package server

import (
	"sync"
	"time"
)

// maxHistory is the number of chat messages each room retains.
const maxHistory = 100

// HistoryEntry is one retained chat message.
type HistoryEntry struct {
	Username  string `json:"username"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Room is a named set of member connections. It owns broadcast fan-out and
// keeps a bounded history of relayed chat messages. Rooms hold non-owning
// references to clients; connection lifetime belongs to the Server.
type Room struct {
	name      string
	createdBy string
	createdAt time.Time

	mu      sync.Mutex
	members map[*Client]struct{}
	history []HistoryEntry
}

func newRoom(name, createdBy string) *Room {
	return &Room{
		name:      name,
		createdBy: createdBy,
		createdAt: time.Now(),
		members:   make(map[*Client]struct{}),
	}
}

// Name returns the room's unique name.
func (r *Room) Name() string { return r.name }

// CreatedBy returns the display name of the room's creator.
func (r *Room) CreatedBy() string { return r.createdBy }

// CreatedAt returns the room's creation time.
func (r *Room) CreatedAt() time.Time { return r.createdAt }

// Add inserts a client into the member set and points the client's current
// room back at this room, keeping both sides of the membership consistent.
// It returns ErrAlreadyMember if the client is already present.
func (r *Room) Add(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[c]; ok {
		return ErrAlreadyMember
	}
	r.members[c] = struct{}{}
	c.setRoom(r)
	return nil
}

// Remove deletes a client from the member set. It clears the client's current
// room only if it still points at this room, and reports whether the client
// was a member. Removing an absent client is a no-op.
func (r *Room) Remove(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[c]; !ok {
		return false
	}
	delete(r.members, c)
	c.clearRoom(r)
	return true
}

// Has reports whether c is currently a member.
func (r *Room) Has(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[c]
	return ok
}

// MemberCount returns the current number of members.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Usernames returns a snapshot of the display names of current members.
func (r *Room) Usernames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.members))
	for member := range r.members {
		names = append(names, member.Username())
	}
	return names
}

// Broadcast sends data to every current member except exclude (which may be
// nil). Members whose send buffer is unavailable are skipped and returned as
// stale so the caller can schedule their cleanup; one unreachable member never
// blocks delivery to the rest.
func (r *Room) Broadcast(data []byte, exclude *Client) []*Client {
	members := r.snapshot()

	var stale []*Client
	for _, member := range members {
		if member == exclude {
			continue
		}
		if !member.trySend(data) {
			stale = append(stale, member)
		}
	}
	return stale
}

func (r *Room) snapshot() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := make([]*Client, 0, len(r.members))
	for member := range r.members {
		members = append(members, member)
	}
	return members
}

// AddHistory appends a relayed chat message, trimming to the retention cap.
func (r *Room) AddHistory(entry HistoryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.history = append(r.history, entry)
	if len(r.history) > maxHistory {
		r.history = r.history[len(r.history)-maxHistory:]
	}
}

// History returns up to limit of the most recent chat messages. A limit of
// zero or less returns everything retained.
func (r *Room) History(limit int) []HistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 || limit > len(r.history) {
		limit = len(r.history)
	}
	out := make([]HistoryEntry, limit)
	copy(out, r.history[len(r.history)-limit:])
	return out
}
