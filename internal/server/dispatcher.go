package server

import "collabchat/internal/protocol"

// HandlerFunc processes one decoded inbound message from c. Handlers emit
// outbound traffic through the client, room, and server send capabilities.
type HandlerFunc func(s *Server, c *Client, msg *protocol.Message)

// Dispatcher maps inbound message types to their handlers. It performs no
// business logic beyond the lookup; adding a message type means adding one
// registration, not modifying existing handlers.
type Dispatcher struct {
	handlers map[protocol.Type]HandlerFunc
}

// NewDispatcher returns a dispatcher with no handlers registered.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[protocol.Type]HandlerFunc)}
}

// Register installs handler for messages of type t, replacing any previous
// registration.
func (d *Dispatcher) Register(t protocol.Type, handler HandlerFunc) {
	d.handlers[t] = handler
}

// Dispatch routes msg to its registered handler. It reports whether a handler
// was registered for the message's type.
func (d *Dispatcher) Dispatch(s *Server, c *Client, msg *protocol.Message) bool {
	handler, ok := d.handlers[msg.Type]
	if !ok {
		return false
	}
	handler(s, c, msg)
	return true
}
