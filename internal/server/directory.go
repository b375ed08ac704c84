package server

import (
	"sync"
	"time"

	"collabchat/internal/protocol"
)

// Directory is the process-wide mapping from room name to Room. Creation is
// atomic with respect to concurrent callers, and listings preserve creation
// order.
type Directory struct {
	mu    sync.Mutex
	rooms map[string]*Room
	order []string
}

// NewDirectory returns an empty room directory.
func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string]*Room)}
}

// GetOrCreate returns the room registered under name, creating and
// registering a new empty room if none exists. The second result reports
// whether this call created the room; two simultaneous callers for the same
// name always observe the same Room object.
func (d *Directory) GetOrCreate(name, createdBy string) (*Room, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if room, ok := d.rooms[name]; ok {
		return room, false
	}
	room := newRoom(name, createdBy)
	d.rooms[name] = room
	d.order = append(d.order, name)
	return room, true
}

// Get returns the room registered under name, if any.
func (d *Directory) Get(name string) (*Room, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	room, ok := d.rooms[name]
	return room, ok
}

// Join looks up name and adds c to its member set in one step, so a
// concurrent eviction can never separate the lookup from the membership
// change. It returns the joined room, ErrUnknownRoom if no room is registered
// under name, or ErrAlreadyMember.
func (d *Directory) Join(name string, c *Client) (*Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	room, ok := d.rooms[name]
	if !ok {
		return nil, ErrUnknownRoom
	}
	if err := room.Add(c); err != nil {
		return nil, err
	}
	return room, nil
}

// Evict unregisters room if it is still the room registered under its name
// and has no members; both conditions are re-checked under the directory
// lock, so a member added through Join can never end up in an unregistered
// room. It reports whether the room was removed.
func (d *Directory) Evict(room *Room) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	name := room.Name()
	if d.rooms[name] != room || room.MemberCount() > 0 {
		return false
	}
	delete(d.rooms, name)
	for i, n := range d.order {
		if n == name {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of registered rooms.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rooms)
}

// List returns a snapshot of every room in creation order. Member counts are
// read at call time and may be transitional.
func (d *Directory) List() []protocol.RoomInfo {
	d.mu.Lock()
	rooms := make([]*Room, 0, len(d.order))
	for _, name := range d.order {
		rooms = append(rooms, d.rooms[name])
	}
	d.mu.Unlock()

	infos := make([]protocol.RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		infos = append(infos, protocol.RoomInfo{
			Name:      room.Name(),
			UserCount: room.MemberCount(),
			CreatedBy: room.CreatedBy(),
			CreatedAt: room.CreatedAt().Format(time.RFC3339),
		})
	}
	return infos
}
