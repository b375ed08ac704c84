// Package integration contains end-to-end tests that exercise the chat
// server over real WebSocket connections.
//
// These tests run the full path: HTTP upgrade, connect handshake, room
// membership changes, and message fan-out between multiple clients.
package integration

import (
	"testing"
	"time"

	"collabchat/internal/protocol"
	"collabchat/test/testhelpers"
)

const frameTimeout = 3 * time.Second

func TestConnectHandshake(t *testing.T) {
	_, wsURL := testhelpers.StartChatServer(t)

	conn := testhelpers.Dial(t, wsURL, "http://localhost:8765")
	testhelpers.SendFrame(t, conn, protocol.NewConnect("alice"))

	ack := testhelpers.WaitForType(t, conn, protocol.TypeConnectionAck, frameTimeout)
	if got := ack.String("username"); got != "alice" {
		t.Errorf("Expected ack for alice, got %q", got)
	}
	if ack.String("user_id") == "" {
		t.Error("Expected a non-empty user_id in the ack")
	}

	listing := testhelpers.WaitForType(t, conn, protocol.TypeRoomsList, frameTimeout)
	rooms, ok := listing.Payload["rooms"].([]any)
	if !ok || len(rooms) != 1 {
		t.Fatalf("Expected the default room in the initial listing, got %v", listing.Payload["rooms"])
	}
	if name := rooms[0].(map[string]any)["name"]; name != "General" {
		t.Errorf("Expected default room General, got %v", name)
	}
}

func TestRoomLifecycleAcrossClients(t *testing.T) {
	_, wsURL := testhelpers.StartChatServer(t)

	alice := testhelpers.Dial(t, wsURL, "http://localhost:8765")
	bob := testhelpers.Dial(t, wsURL, "http://localhost:8765")
	testhelpers.ConnectAs(t, alice, "alice")
	testhelpers.ConnectAs(t, bob, "bob")

	// Alice creates a room and is auto-joined.
	testhelpers.SendFrame(t, alice, protocol.NewCreateRoom("games"))
	roster := testhelpers.WaitForType(t, alice, protocol.TypeRoomUsers, frameTimeout)
	if got := roster.String("room_name"); got != "games" {
		t.Fatalf("Expected roster for games, got %q", got)
	}

	// Everyone sees the new room announced.
	announce := testhelpers.WaitForType(t, bob, protocol.TypeSystemMessage, frameTimeout)
	if content := announce.String("content"); content == "" {
		t.Error("Expected a non-empty room announcement")
	}

	// Bob joins; Alice is told, Bob gets the roster.
	testhelpers.SendFrame(t, bob, protocol.NewJoinRoom("games"))
	joined := testhelpers.WaitForType(t, alice, protocol.TypeUserJoined, frameTimeout)
	if got := joined.String("username"); got != "bob" {
		t.Errorf("Expected user_joined for bob, got %q", got)
	}
	roster = testhelpers.WaitForType(t, bob, protocol.TypeRoomUsers, frameTimeout)
	users, ok := roster.Payload["users"].([]any)
	if !ok || len(users) != 2 {
		t.Errorf("Expected two users in the games roster, got %v", roster.Payload["users"])
	}

	// Bob chats; both members receive the message.
	testhelpers.SendFrame(t, bob, protocol.NewChatMessage("bob", "games", "glhf"))
	aliceChat := testhelpers.WaitForType(t, alice, protocol.TypeChatMessage, frameTimeout)
	bobChat := testhelpers.WaitForType(t, bob, protocol.TypeChatMessage, frameTimeout)
	for _, msg := range []*protocol.Message{aliceChat, bobChat} {
		if msg.String("username") != "bob" || msg.String("content") != "glhf" {
			t.Errorf("Unexpected chat payload: %v", msg.Payload)
		}
	}

	// Bob leaves; Alice gets exactly one user_left.
	testhelpers.SendFrame(t, bob, protocol.NewLeaveRoom("games"))
	left := testhelpers.WaitForType(t, alice, protocol.TypeUserLeft, frameTimeout)
	if got := left.String("username"); got != "bob" {
		t.Errorf("Expected user_left for bob, got %q", got)
	}
	testhelpers.ExpectNoFrameOfType(t, alice, protocol.TypeUserLeft, 300*time.Millisecond)
}

func TestChatStaysInsideRoom(t *testing.T) {
	_, wsURL := testhelpers.StartChatServer(t)

	alice := testhelpers.Dial(t, wsURL, "http://localhost:8765")
	bob := testhelpers.Dial(t, wsURL, "http://localhost:8765")
	carol := testhelpers.Dial(t, wsURL, "http://localhost:8765")
	testhelpers.ConnectAs(t, alice, "alice")
	testhelpers.ConnectAs(t, bob, "bob")
	testhelpers.ConnectAs(t, carol, "carol")

	testhelpers.SendFrame(t, alice, protocol.NewCreateRoom("games"))
	testhelpers.WaitForType(t, alice, protocol.TypeRoomUsers, frameTimeout)
	testhelpers.SendFrame(t, bob, protocol.NewJoinRoom("games"))
	testhelpers.WaitForType(t, bob, protocol.TypeRoomUsers, frameTimeout)
	testhelpers.SendFrame(t, carol, protocol.NewJoinRoom("General"))
	testhelpers.WaitForType(t, carol, protocol.TypeRoomUsers, frameTimeout)

	testhelpers.SendFrame(t, bob, protocol.NewChatMessage("bob", "games", "secret plan"))

	testhelpers.WaitForType(t, alice, protocol.TypeChatMessage, frameTimeout)
	testhelpers.WaitForType(t, bob, protocol.TypeChatMessage, frameTimeout)
	testhelpers.ExpectNoFrameOfType(t, carol, protocol.TypeChatMessage, 500*time.Millisecond)
}

func TestDisconnectCleansUpPresence(t *testing.T) {
	srv, wsURL := testhelpers.StartChatServer(t)

	alice := testhelpers.Dial(t, wsURL, "http://localhost:8765")
	bob := testhelpers.Dial(t, wsURL, "http://localhost:8765")
	testhelpers.ConnectAs(t, alice, "alice")
	testhelpers.ConnectAs(t, bob, "bob")

	testhelpers.SendFrame(t, alice, protocol.NewCreateRoom("games"))
	testhelpers.WaitForType(t, alice, protocol.TypeRoomUsers, frameTimeout)
	testhelpers.SendFrame(t, bob, protocol.NewJoinRoom("games"))
	testhelpers.WaitForType(t, bob, protocol.TypeRoomUsers, frameTimeout)

	// Bob's transport dies without a polite disconnect.
	if err := bob.Close(); err != nil {
		t.Fatalf("Failed to close bob's connection: %v", err)
	}

	left := testhelpers.WaitForType(t, alice, protocol.TypeUserLeft, frameTimeout)
	if got := left.String("username"); got != "bob" {
		t.Errorf("Expected user_left for bob, got %q", got)
	}

	// The name is released and immediately reusable.
	waitFor(t, func() bool { return srv.Registry().Count() == 1 })
	reborn := testhelpers.Dial(t, wsURL, "http://localhost:8765")
	testhelpers.ConnectAs(t, reborn, "bob")
}

func TestEmptyRoomDisappearsFromListing(t *testing.T) {
	srv, wsURL := testhelpers.StartChatServer(t)

	alice := testhelpers.Dial(t, wsURL, "http://localhost:8765")
	testhelpers.ConnectAs(t, alice, "alice")

	testhelpers.SendFrame(t, alice, protocol.NewCreateRoom("temp"))
	testhelpers.WaitForType(t, alice, protocol.TypeRoomUsers, frameTimeout)

	testhelpers.SendFrame(t, alice, protocol.NewLeaveRoom("temp"))

	waitFor(t, func() bool {
		_, ok := srv.Directory().Get("temp")
		return !ok
	})
	if _, ok := srv.Directory().Get("General"); !ok {
		t.Error("Default room must survive being empty")
	}

	testhelpers.SendFrame(t, alice, protocol.NewListRooms())
	listing := testhelpers.WaitForType(t, alice, protocol.TypeRoomsList, frameTimeout)
	rooms := listing.Payload["rooms"].([]any)
	for _, entry := range rooms {
		if entry.(map[string]any)["name"] == "temp" {
			t.Error("Evicted room still present in the directory listing")
		}
	}
}

// waitFor polls cond until it holds or the test deadline budget runs out.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("Condition not reached within 2 seconds")
}
