package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"studiogate/internal/app/user"
)

func TestNewMessageEnvelope(t *testing.T) {
	sender := user.Participant{ID: "u1", Name: "Jane", Moderator: true}

	msg, err := NewMessage(TypeText, "studio-42", sender, TextPayload{Content: "hello"})
	if err != nil {
		t.Fatalf("new message: %v", err)
	}

	if msg.ID == "" {
		t.Fatalf("message ID not stamped")
	}
	if msg.Room != "studio-42" || msg.Type != TypeText {
		t.Fatalf("envelope = %+v", msg)
	}
	if msg.Timestamp == 0 {
		t.Fatalf("timestamp not stamped")
	}

	var payload TextPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.Content != "hello" {
		t.Fatalf("content = %q", payload.Content)
	}
}

func TestNewMessageNilPayload(t *testing.T) {
	msg, err := NewMessage(TypeUserLeft, "studio-42", SystemUser, nil)
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	if msg.Payload != nil {
		t.Fatalf("expected empty payload, got %s", msg.Payload)
	}
}

// dialTestConn upgrades a loopback WebSocket and returns its server side,
// which is what a Client wraps in production.
func dialTestConn(t *testing.T) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	serverConns := make(chan *websocket.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	clientConn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { clientConn.Close() })

	serverConn := <-serverConns
	t.Cleanup(func() { serverConn.Close() })
	return serverConn
}

func waitForParticipants(t *testing.T, room *Room, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		room.mu.RLock()
		got := len(room.clients)
		room.mu.RUnlock()
		if got == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("room never reached %d participants", want)
}

func TestRoomTimerStoppedWhileOccupied(t *testing.T) {
	room := NewRoom("studio-42", 10, make(chan RoomCleanupMsg, 1))
	defer room.Stop()

	alice := NewClient(room, dialTestConn(t), user.Participant{ID: "u1", Name: "Alice"})
	room.handleRegister(alice)

	// The inactivity countdown must not run while the room has
	// participants; otherwise an active room dies a fixed interval after
	// its last join regardless of chat traffic.
	if room.shutdownTimer.Stop() {
		t.Fatalf("inactivity timer running while the room is occupied")
	}

	room.handleUnregister(alice)

	// Empty again: the countdown is re-armed.
	if !room.shutdownTimer.Stop() {
		t.Fatalf("inactivity timer not re-armed after the room emptied")
	}
}

func TestDisconnectUnregistersParticipant(t *testing.T) {
	cleanup := make(chan RoomCleanupMsg, 1)
	room := NewRoom("studio-42", 10, cleanup)
	go room.Run()
	defer room.Stop()

	alice := NewClient(room, dialTestConn(t), user.Participant{ID: "u1", Name: "Alice"})
	room.RegisterClient(alice)
	waitForParticipants(t, room, 1)

	// A disconnect must always reach the event loop; a dropped unregister
	// leaves a ghost participant in the room map.
	alice.cleanupOnDisconnect()
	waitForParticipants(t, room, 0)
}

func TestDisconnectAfterRoomStopped(t *testing.T) {
	cleanup := make(chan RoomCleanupMsg, 1)
	room := NewRoom("studio-42", 10, cleanup)
	go room.Run()

	alice := NewClient(room, dialTestConn(t), user.Participant{ID: "u1", Name: "Alice"})
	room.RegisterClient(alice)
	waitForParticipants(t, room, 1)

	room.Stop()
	<-cleanup

	done := make(chan struct{})
	go func() {
		alice.cleanupOnDisconnect()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("disconnect blocked after the room stopped")
	}
}

func TestManagerRoomLifecycle(t *testing.T) {
	m := NewManager()
	defer m.Shutdown()

	if m.GetRoom("studio-42") != nil {
		t.Fatalf("unexpected room before creation")
	}

	room := m.GetOrCreateRoom("studio-42", 10)
	if room == nil {
		t.Fatalf("room not created")
	}
	if room.Code != "studio-42" || room.MaxClients != 10 {
		t.Fatalf("room = %+v", room)
	}

	if again := m.GetOrCreateRoom("studio-42", 10); again != room {
		t.Fatalf("second GetOrCreateRoom returned a different room")
	}
	if m.GetRoom("studio-42") != room {
		t.Fatalf("GetRoom did not return the active room")
	}

	if room.IsFull() {
		t.Fatalf("empty room reported full")
	}
}
