package server

import "errors"

// Error values for the protocol handlers. All of these are non-fatal for the
// connection that triggered them: the client receives an error or
// connection_error reply and the receive loop continues.
var (
	// ErrNameCollision reports a connect with a display name already held by
	// an active connection. The client may retry with a different name.
	ErrNameCollision = errors.New("display name already in use")

	// ErrProtocolViolation reports a frame that is valid on the wire but not
	// in the connection's current state.
	ErrProtocolViolation = errors.New("first message must be connect")

	// ErrUnknownRoom reports a reference to a room that does not exist.
	// Rooms are never created implicitly; create_room must come first.
	ErrUnknownRoom = errors.New("room does not exist")

	// ErrAlreadyMember reports an add of a connection already in the room.
	ErrAlreadyMember = errors.New("already a member of this room")

	// ErrNotMember reports a room operation by a connection that is not a
	// member of the named room.
	ErrNotMember = errors.New("not a member of this room")
)
