package protocol

// RoomInfo is one entry of a rooms_list payload.
type RoomInfo struct {
	Name      string `json:"name"`
	UserCount int    `json:"user_count"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at"`
}

// NewConnect builds the client's initial authentication request.
func NewConnect(username string) Message {
	return New(TypeConnect, map[string]any{"username": username})
}

// NewDisconnect builds the client's explicit goodbye.
func NewDisconnect(username string) Message {
	return New(TypeDisconnect, map[string]any{"username": username})
}

// NewConnectionAck confirms a successful connect.
func NewConnectionAck(username, userID string) Message {
	return New(TypeConnectionAck, map[string]any{
		"username": username,
		"user_id":  userID,
	})
}

// NewConnectionError rejects a connect attempt; the connection stays
// unauthenticated and may retry.
func NewConnectionError(reason string) Message {
	return New(TypeConnectionError, map[string]any{"reason": reason})
}

// NewCreateRoom requests creation of a room.
func NewCreateRoom(roomName string) Message {
	return New(TypeCreateRoom, map[string]any{"room_name": roomName})
}

// NewJoinRoom requests membership in a room.
func NewJoinRoom(roomName string) Message {
	return New(TypeJoinRoom, map[string]any{"room_name": roomName})
}

// NewLeaveRoom requests leaving a room.
func NewLeaveRoom(roomName string) Message {
	return New(TypeLeaveRoom, map[string]any{"room_name": roomName})
}

// NewListRooms requests the current room listing.
func NewListRooms() Message {
	return New(TypeListRooms, map[string]any{})
}

// NewRoomsList carries the directory snapshot, in room creation order.
func NewRoomsList(rooms []RoomInfo) Message {
	if rooms == nil {
		rooms = []RoomInfo{}
	}
	return New(TypeRoomsList, map[string]any{"rooms": rooms})
}

// NewRoomUsers carries the roster of a single room.
func NewRoomUsers(roomName string, users []string) Message {
	if users == nil {
		users = []string{}
	}
	return New(TypeRoomUsers, map[string]any{
		"room_name": roomName,
		"users":     users,
	})
}

// NewChatMessage relays one user's chat line to a room.
func NewChatMessage(username, roomName, content string) Message {
	return New(TypeChatMessage, map[string]any{
		"username":  username,
		"room_name": roomName,
		"content":   content,
	})
}

// NewSystemMessage carries server-originated informational text. roomName may
// be empty for server-wide notices.
func NewSystemMessage(content, roomName string) Message {
	return New(TypeSystemMessage, map[string]any{
		"content":   content,
		"room_name": roomName,
	})
}

// NewUserJoined notifies a room's members that a user joined.
func NewUserJoined(username, roomName string) Message {
	return New(TypeUserJoined, map[string]any{
		"username":  username,
		"room_name": roomName,
	})
}

// NewUserLeft notifies a room's members that a user left.
func NewUserLeft(username, roomName string) Message {
	return New(TypeUserLeft, map[string]any{
		"username":  username,
		"room_name": roomName,
	})
}

// NewError reports a non-fatal request failure to a single client.
func NewError(message string) Message {
	return New(TypeError, map[string]any{"message": message})
}
