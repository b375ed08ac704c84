// Package protocol defines the wire message envelope exchanged between chat
// clients and the server, the set of known message types, and the JSON
// encoder/decoder for them.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type is the dispatch tag carried in a message's "type" field.
type Type string

// Message types understood by the server and its clients.
const (
	// Connection lifecycle.
	TypeConnect         Type = "connect"
	TypeDisconnect      Type = "disconnect"
	TypeConnectionAck   Type = "connection_ack"
	TypeConnectionError Type = "connection_error"

	// Rooms.
	TypeCreateRoom Type = "create_room"
	TypeJoinRoom   Type = "join_room"
	TypeLeaveRoom  Type = "leave_room"
	TypeListRooms  Type = "list_rooms"
	TypeRoomsList  Type = "rooms_list"
	TypeRoomUsers  Type = "room_users"

	// Chat.
	TypeChatMessage   Type = "chat_message"
	TypeSystemMessage Type = "system_message"

	// Presence notifications.
	TypeUserJoined Type = "user_joined"
	TypeUserLeft   Type = "user_left"

	// Errors.
	TypeError Type = "error"
)

var knownTypes = map[Type]struct{}{
	TypeConnect:         {},
	TypeDisconnect:      {},
	TypeConnectionAck:   {},
	TypeConnectionError: {},
	TypeCreateRoom:      {},
	TypeJoinRoom:        {},
	TypeLeaveRoom:       {},
	TypeListRooms:       {},
	TypeRoomsList:       {},
	TypeRoomUsers:       {},
	TypeChatMessage:     {},
	TypeSystemMessage:   {},
	TypeUserJoined:      {},
	TypeUserLeft:        {},
	TypeError:           {},
}

// Known reports whether t is one of the protocol's message types.
func Known(t Type) bool {
	_, ok := knownTypes[t]
	return ok
}

// Message is the envelope for every frame on the wire. The payload shape is
// fully determined by the type tag; Timestamp is the producer's local RFC 3339
// instant and is informational only, never an ordering key.
type Message struct {
	Type      Type           `json:"type"`
	Payload   map[string]any `json:"payload"`
	Timestamp string         `json:"timestamp"`
}

// DecodeError reports a frame that could not be decoded into a Message.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return "protocol: " + e.Reason
}

// New creates a message of the given type with a producer-assigned timestamp.
func New(t Type, payload map[string]any) Message {
	if payload == nil {
		payload = map[string]any{}
	}
	return Message{
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// Encode serializes the message to its JSON wire form. Messages built by this
// package carry only JSON-representable payload values, so encoding them
// cannot fail.
func (m Message) Encode() []byte {
	data, err := json.Marshal(m)
	if err != nil {
		return []byte(`{"type":"error","payload":{"message":"internal encoding failure"},"timestamp":""}`)
	}
	return data
}

// Decode parses a wire frame. It fails with a *DecodeError when the input is
// not valid JSON, the type field is missing, or the type is not a known tag.
// Payload contents are not validated here; that is the handlers' job.
func Decode(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &DecodeError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if m.Type == "" {
		return nil, &DecodeError{Reason: "missing type field"}
	}
	if !Known(m.Type) {
		return nil, &DecodeError{Reason: fmt.Sprintf("unknown message type %q", m.Type)}
	}
	if m.Payload == nil {
		m.Payload = map[string]any{}
	}
	return &m, nil
}

// String returns the payload value for key if it is a string, or "".
func (m *Message) String(key string) string {
	v, _ := m.Payload[key].(string)
	return v
}
