package server

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"collabchat/internal/protocol"
)

func TestDispatcherRoutesByType(t *testing.T) {
	s := newTestServer()
	c := newTestClient(t, s, "alice")
	d := NewDispatcher()

	var got protocol.Type
	d.Register(protocol.TypeListRooms, func(_ *Server, _ *Client, msg *protocol.Message) {
		got = msg.Type
	})

	msg := protocol.NewListRooms()
	assert.True(t, d.Dispatch(s, c, &msg))
	assert.Equal(t, protocol.TypeListRooms, got)
}

func TestDispatcherReportsUnregisteredType(t *testing.T) {
	s := newTestServer()
	c := newTestClient(t, s, "alice")
	d := NewDispatcher()

	msg := protocol.NewListRooms()
	assert.False(t, d.Dispatch(s, c, &msg))
}

func TestDispatcherRegistrationIsIndependent(t *testing.T) {
	s := newTestServer()
	c := newTestClient(t, s, "alice")
	d := NewDispatcher()

	calls := make(map[protocol.Type]int)
	for _, typ := range []protocol.Type{protocol.TypeListRooms, protocol.TypeLeaveRoom} {
		typ := typ
		d.Register(typ, func(_ *Server, _ *Client, _ *protocol.Message) {
			calls[typ]++
		})
	}

	listMsg := protocol.NewListRooms()
	leaveMsg := protocol.NewLeaveRoom("general")
	d.Dispatch(s, c, &listMsg)
	d.Dispatch(s, c, &leaveMsg)

	assert.Equal(t, 1, calls[protocol.TypeListRooms])
	assert.Equal(t, 1, calls[protocol.TypeLeaveRoom])
}
