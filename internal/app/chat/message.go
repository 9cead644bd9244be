/*
Package chat implements the live stream chat: a Manager owning Rooms, each
Room an event loop broadcasting messages between connected Clients.

This file defines the wire messages exchanged over the WebSocket.
*/
package chat

import (
	"encoding/json"
	"fmt"
	"time"

	"studiogate/internal/app/user"
	"studiogate/internal/pkg/randx"
)

// MessageType discriminates chat wire messages.
type MessageType string

const (
	// TypeText is a chat text message from a participant.
	TypeText MessageType = "TEXT"

	// TypeUserJoined announces a participant joining the room.
	TypeUserJoined MessageType = "USER_JOINED"

	// TypeUserLeft announces a participant leaving the room.
	TypeUserLeft MessageType = "USER_LEFT"

	// TypeInitData carries the initial room state to a joining client.
	TypeInitData MessageType = "INIT_DATA"

	// TypeStreamStatus is a moderator-only stream control announcement
	// (live/offline, title changes).
	TypeStreamStatus MessageType = "STREAM_STATUS"

	// TypeError carries an error to a single client.
	TypeError MessageType = "ERROR"
)

// SystemUser is the sender of server-originated messages.
var SystemUser = user.Participant{ID: "system", Name: "System"}

// Message is the envelope of every chat wire message.
type Message struct {
	ID        string           `json:"id"`
	Type      MessageType      `json:"type"`
	Room      string           `json:"room"`
	Sender    user.Participant `json:"sender"`
	Timestamp int64            `json:"timestamp"`
	Payload   json.RawMessage  `json:"payload,omitempty"`
}

// NewMessage builds an envelope around the given payload, stamping a fresh
// message ID and timestamp.
func NewMessage(msgType MessageType, room string, sender user.Participant, payload any) (Message, error) {
	var raw json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return Message{}, fmt.Errorf("marshal %s payload: %w", msgType, err)
		}
		raw = encoded
	}

	return Message{
		ID:        randx.MessageID(),
		Type:      msgType,
		Room:      room,
		Sender:    sender,
		Timestamp: time.Now().UnixMilli(),
		Payload:   raw,
	}, nil
}

// TextPayload is the body of a TEXT message.
type TextPayload struct {
	Content string `json:"content"`
}

// UserEventPayload is the body of USER_JOINED / USER_LEFT messages.
type UserEventPayload struct {
	User user.Participant `json:"user"`
}

// StreamStatusPayload is the body of a STREAM_STATUS announcement.
type StreamStatusPayload struct {
	Live  bool   `json:"live"`
	Title string `json:"title,omitempty"`
}

// InitDataPayload is the body of the INIT_DATA message sent to a client
// right after joining.
type InitDataPayload struct {
	CurrentUser user.Participant   `json:"currentUser"`
	OnlineUsers []user.Participant `json:"onlineUsers"`
	MaxUsers    int                `json:"maxUsers"`
}

// ErrorPayload is the body of an ERROR message.
type ErrorPayload struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}
