package server

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"collabchat/internal/protocol"
)

// Validation limits for client-supplied names.
const (
	maxUsernameLength = 30
	maxRoomNameLength = 50
)

func unknownRoom(name string) error {
	return fmt.Errorf("room %q: %w", name, ErrUnknownRoom)
}

// registerHandlers installs the handler for each inbound message type.
// Extending the protocol means adding one registration here.
func registerHandlers(d *Dispatcher) {
	d.Register(protocol.TypeConnect, handleConnect)
	d.Register(protocol.TypeDisconnect, handleDisconnect)
	d.Register(protocol.TypeCreateRoom, handleCreateRoom)
	d.Register(protocol.TypeJoinRoom, handleJoinRoom)
	d.Register(protocol.TypeLeaveRoom, handleLeaveRoom)
	d.Register(protocol.TypeListRooms, handleListRooms)
	d.Register(protocol.TypeChatMessage, handleChatMessage)
}

// handleConnect authenticates the connection with a unique display name and
// replies with an ack and the room listing. On a name collision the sender
// gets a connection_error and stays unauthenticated, free to retry.
func handleConnect(s *Server, c *Client, msg *protocol.Message) {
	if c.Username() != "" {
		c.sendMessage(protocol.NewConnectionError("already connected"))
		return
	}

	username := strings.TrimSpace(msg.String("username"))
	if username == "" {
		c.sendMessage(protocol.NewConnectionError("username cannot be empty"))
		return
	}
	if len(username) > maxUsernameLength {
		c.sendMessage(protocol.NewConnectionError(
			fmt.Sprintf("username too long (max %d characters)", maxUsernameLength)))
		return
	}

	if err := s.registry.Register(c, username); err != nil {
		slog.Info("rejected connect", "username", username, "addr", c.addr, "reason", err)
		c.sendMessage(protocol.NewConnectionError("name in use"))
		return
	}
	c.setUsername(username)

	slog.Info("user connected", "username", username, "user_id", c.id, "addr", c.addr)
	c.sendMessage(protocol.NewConnectionAck(username, c.id))
	c.sendMessage(protocol.NewRoomsList(s.directory.List()))
}

// handleDisconnect is the client's explicit goodbye; it runs the same cleanup
// as a transport closure.
func handleDisconnect(s *Server, c *Client, _ *protocol.Message) {
	slog.Info("client requested disconnect", "username", c.Username())
	s.dropClient(c)
}

// handleCreateRoom creates a room and joins the creator to it, leaving any
// previous room first. Everyone is told about the new room; the creator also
// gets the roster and a welcome notice.
func handleCreateRoom(s *Server, c *Client, msg *protocol.Message) {
	name := strings.TrimSpace(msg.String("room_name"))
	if name == "" {
		c.sendMessage(protocol.NewError("room name cannot be empty"))
		return
	}
	if len(name) > maxRoomNameLength {
		c.sendMessage(protocol.NewError(
			fmt.Sprintf("room name too long (max %d characters)", maxRoomNameLength)))
		return
	}

	var room *Room
	for {
		_, created := s.directory.GetOrCreate(name, c.Username())
		if !created {
			c.sendMessage(protocol.NewError(fmt.Sprintf("room %q already exists", name)))
			return
		}
		slog.Info("room created", "room", name, "created_by", c.Username())

		if prev := c.Room(); prev != nil {
			s.removeFromRoom(c, prev)
		}

		var err error
		if room, err = s.directory.Join(name, c); err == nil {
			break
		}
		// The empty room was evicted before its creator could enter;
		// recreate and try again.
	}
	slog.Info("user joined room", "username", c.Username(), "room", name)

	s.broadcastAll(protocol.NewSystemMessage(fmt.Sprintf("Room %q has been created", name), ""))
	s.broadcastRoomsList()
	c.sendMessage(protocol.NewRoomUsers(name, room.Usernames()))
	c.sendMessage(protocol.NewSystemMessage(fmt.Sprintf("You created and joined room %q", name), name))
}

// handleJoinRoom moves the sender into an existing room, leaving the previous
// room implicitly. Joining a room that does not exist is an error; rooms are
// only created through create_room.
func handleJoinRoom(s *Server, c *Client, msg *protocol.Message) {
	name := strings.TrimSpace(msg.String("room_name"))
	if name == "" {
		c.sendMessage(protocol.NewError("room name cannot be empty"))
		return
	}

	if _, ok := s.directory.Get(name); !ok {
		c.sendMessage(protocol.NewError(unknownRoom(name).Error()))
		return
	}
	if cur := c.Room(); cur != nil && cur.Name() == name {
		c.sendMessage(protocol.NewError(ErrAlreadyMember.Error()))
		return
	}

	if prev := c.Room(); prev != nil {
		s.removeFromRoom(c, prev)
	}
	room, err := s.directory.Join(name, c)
	if err != nil {
		// Lost a race with the room's eviction after the existence check.
		c.sendMessage(protocol.NewError(unknownRoom(name).Error()))
		return
	}

	username := c.Username()
	slog.Info("user joined room", "username", username, "room", name)

	s.reportStale(room.Broadcast(protocol.NewUserJoined(username, name).Encode(), c))
	c.sendMessage(protocol.NewRoomUsers(name, room.Usernames()))
	c.sendMessage(protocol.NewSystemMessage(fmt.Sprintf("You joined room %q", name), name))
	s.broadcastRoomsList()
}

// handleLeaveRoom removes the sender from the named room, or from the
// current room when the payload names none. A double leave is answered with
// an error but never re-broadcasts a departure.
func handleLeaveRoom(s *Server, c *Client, msg *protocol.Message) {
	name := strings.TrimSpace(msg.String("room_name"))

	var room *Room
	if name != "" {
		var ok bool
		if room, ok = s.directory.Get(name); !ok {
			c.sendMessage(protocol.NewError(unknownRoom(name).Error()))
			return
		}
	} else if room = c.Room(); room == nil {
		c.sendMessage(protocol.NewError("not in any room"))
		return
	}

	if !s.removeFromRoom(c, room) {
		c.sendMessage(protocol.NewError(ErrNotMember.Error()))
	}
}

// handleListRooms replies with the directory snapshot, in creation order.
func handleListRooms(s *Server, c *Client, _ *protocol.Message) {
	c.sendMessage(protocol.NewRoomsList(s.directory.List()))
}

// handleChatMessage relays a chat line to every member of the room,
// including the sender, so all clients render it from one source of truth.
// The sender must be a member; nobody else ever sees a rejected message.
func handleChatMessage(s *Server, c *Client, msg *protocol.Message) {
	content := strings.TrimSpace(msg.String("content"))
	if content == "" {
		return
	}

	name := strings.TrimSpace(msg.String("room_name"))
	var room *Room
	if name != "" {
		var ok bool
		if room, ok = s.directory.Get(name); !ok {
			c.sendMessage(protocol.NewError(unknownRoom(name).Error()))
			return
		}
	} else if room = c.Room(); room == nil {
		c.sendMessage(protocol.NewError("not in any room"))
		return
	}

	if !room.Has(c) {
		c.sendMessage(protocol.NewError(ErrNotMember.Error()))
		return
	}

	username := c.Username()
	room.AddHistory(HistoryEntry{
		Username:  username,
		Content:   content,
		Timestamp: time.Now().Format(time.RFC3339),
	})

	s.reportStale(room.Broadcast(protocol.NewChatMessage(username, room.Name(), content).Encode(), nil))
	slog.Debug("message routed", "username", username, "room", room.Name())
}
