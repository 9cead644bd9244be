package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"studiogate/internal/app/chat"
	"studiogate/internal/pkg/auth/roomtoken"
)

// mintRoomToken issues a token directly through the deps signer, the same
// way the issuance endpoint does.
func mintRoomToken(t *testing.T, deps *AppDeps, room string, moderator bool) string {
	t.Helper()

	claims, err := roomtoken.BuildClaims(
		roomtoken.Identity{ID: "u-" + room, Name: "Viewer", Moderator: moderator},
		room,
		time.Now(),
		deps.Config.TokenPolicy(),
	)
	if err != nil {
		t.Fatalf("build claims: %v", err)
	}

	token, err := deps.Signer.Sign(claims)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return token
}

func dialChat(t *testing.T, srv *httptest.Server, room, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + room
	if token != "" {
		url += "?access_token=" + token
	}
	return websocket.DefaultDialer.Dial(url, nil)
}

func readMessageType(t *testing.T, conn *websocket.Conn, want chat.MessageType) chat.Message {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	conn.SetReadDeadline(deadline)

	for time.Now().Before(deadline) {
		var msg chat.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		if msg.Type == want {
			return msg
		}
	}

	t.Fatalf("did not receive %s in time", want)
	return chat.Message{}
}

func newChatTestServer(t *testing.T) (*AppDeps, *httptest.Server) {
	t.Helper()

	deps, _ := newTestDeps(t, roomtoken.ScopeLiteral, testSigningSecret)
	deps.Manager = chat.NewManager()
	t.Cleanup(deps.Manager.Shutdown)

	srv := httptest.NewServer(Router(deps))
	t.Cleanup(srv.Close)

	return deps, srv
}

func TestChatJoinRequiresToken(t *testing.T) {
	_, srv := newChatTestServer(t)

	_, resp, err := dialChat(t, srv, "studio-42", "")
	if err == nil {
		t.Fatalf("expected handshake failure without token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestChatJoinRejectsWrongRoomToken(t *testing.T) {
	deps, srv := newChatTestServer(t)

	token := mintRoomToken(t, deps, "other-room", false)

	_, resp, err := dialChat(t, srv, "studio-42", token)
	if err == nil {
		t.Fatalf("expected handshake failure for wrong-room token")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestChatJoinAndInitData(t *testing.T) {
	deps, srv := newChatTestServer(t)

	token := mintRoomToken(t, deps, "studio-42", false)

	conn, _, err := dialChat(t, srv, "studio-42", token)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msg := readMessageType(t, conn, chat.TypeInitData)

	var initData chat.InitDataPayload
	if err := json.Unmarshal(msg.Payload, &initData); err != nil {
		t.Fatalf("init data payload: %v", err)
	}
	if initData.CurrentUser.ID != "u-studio-42" {
		t.Fatalf("current user = %+v", initData.CurrentUser)
	}
	if len(initData.OnlineUsers) != 1 {
		t.Fatalf("online users = %+v", initData.OnlineUsers)
	}
}

func TestChatWildcardTokenJoinsAnyRoom(t *testing.T) {
	deps, srv := newChatTestServer(t)

	// Mint under wildcard policy; the join gate must honor the wildcard.
	wildcardPolicy := deps.Config.TokenPolicy()
	wildcardPolicy.RoomScope = roomtoken.ScopeWildcard

	claims, err := roomtoken.BuildClaims(
		roomtoken.Identity{ID: "u-any", Name: "Roamer"},
		"whatever",
		time.Now(),
		wildcardPolicy,
	)
	if err != nil {
		t.Fatalf("build claims: %v", err)
	}
	token, err := deps.Signer.Sign(claims)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	conn, _, err := dialChat(t, srv, "studio-42", token)
	if err != nil {
		t.Fatalf("dial with wildcard token: %v", err)
	}
	defer conn.Close()

	readMessageType(t, conn, chat.TypeInitData)
}

func TestChatTextBroadcast(t *testing.T) {
	deps, srv := newChatTestServer(t)

	viewerToken := mintRoomToken(t, deps, "studio-42", false)

	viewer, _, err := dialChat(t, srv, "studio-42", viewerToken)
	if err != nil {
		t.Fatalf("dial viewer: %v", err)
	}
	defer viewer.Close()
	readMessageType(t, viewer, chat.TypeInitData)

	// Second participant with a distinct ID.
	senderClaims, err := roomtoken.BuildClaims(
		roomtoken.Identity{ID: "u-sender", Name: "Sender"},
		"studio-42",
		time.Now(),
		deps.Config.TokenPolicy(),
	)
	if err != nil {
		t.Fatalf("build claims: %v", err)
	}
	senderToken, err := deps.Signer.Sign(senderClaims)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	sender, _, err := dialChat(t, srv, "studio-42", senderToken)
	if err != nil {
		t.Fatalf("dial sender: %v", err)
	}
	defer sender.Close()
	readMessageType(t, sender, chat.TypeInitData)

	outbound := map[string]any{
		"type":    chat.TypeText,
		"payload": chat.TextPayload{Content: "hello studio"},
	}
	if err := sender.WriteJSON(outbound); err != nil {
		t.Fatalf("write: %v", err)
	}

	msg := readMessageType(t, viewer, chat.TypeText)

	var payload chat.TextPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("text payload: %v", err)
	}
	if payload.Content != "hello studio" {
		t.Fatalf("content = %q", payload.Content)
	}
	if msg.Sender.ID != "u-sender" {
		t.Fatalf("sender = %+v", msg.Sender)
	}
}
