/*
Package chat implements the live stream chat.

This file defines the Client: one WebSocket connection and its read/write
pumps.
*/
package chat

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"studiogate/internal/app/user"
	"studiogate/internal/pkg/errs"
	"studiogate/internal/pkg/logx"
)

const (
	// writeWait bounds a single write to the WebSocket.
	writeWait = 10 * time.Second

	// pongWait is how long the server waits for a pong before dropping the
	// connection.
	pongWait = 60 * time.Second

	// pingPeriod is the heartbeat interval; must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds inbound frames.
	maxMessageSize = 8192

	// MaxContentBytes bounds the text content of one chat message.
	MaxContentBytes = 2000

	// WsCloseCodeSessionReplaced signals the client that a newer connection
	// took over this participant's session.
	WsCloseCodeSessionReplaced = 4001
)

// Client is one active WebSocket connection of a room participant.
type Client struct {
	room *Room
	conn *websocket.Conn

	participant user.Participant

	// send queues outbound frames for the write pump.
	send chan []byte

	// closeOnce guards the send channel against double close.
	closeOnce sync.Once

	logger zerolog.Logger
}

// NewClient wraps an upgraded connection for the given participant.
func NewClient(room *Room, wsConn *websocket.Conn, participant user.Participant) *Client {
	return &Client{
		room:        room,
		conn:        wsConn,
		participant: participant,
		send:        make(chan []byte, 256),
		logger: logx.Logger().With().
			Str("client_id", participant.ID).
			Str("room_code", room.Code).
			Logger(),
	}
}

// ReadPump reads frames from the connection until it closes, dispatching
// inbound messages and maintaining the pong deadline.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Connection closed unexpectedly")
			}
			break
		}

		c.processInboundMessage(messageBytes)
	}
}

func (c *Client) cleanupOnDisconnect() {
	// The send must not be dropped when the event loop is momentarily
	// busy; a lost unregister leaves a ghost participant in the room.
	select {
	case c.room.unregister <- c:
	case <-c.room.stopChan:
	}

	if err := c.conn.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		c.logger.Warn().Err(err).Msg("Connection close error")
	}
}

func (c *Client) processInboundMessage(messageBytes []byte) {
	var inbound struct {
		Type    MessageType     `json:"type"`
		Payload json.RawMessage `json:"payload,omitempty"`
	}

	if err := json.Unmarshal(messageBytes, &inbound); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid JSON")
		return
	}

	switch inbound.Type {
	case TypeText:
		c.handleText(inbound.Payload)

	case TypeStreamStatus:
		c.handleStreamStatus(inbound.Payload)

	default:
		c.logger.Warn().Str("msg_type", string(inbound.Type)).Msg("Unsupported inbound message type")
	}
}

func (c *Client) handleText(payloadBytes json.RawMessage) {
	var payload TextPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Invalid TEXT payload")
		return
	}

	if len(payload.Content) > MaxContentBytes {
		c.SendError(errs.ErrMessageTooLong.WithHint("messages are limited to %d bytes", MaxContentBytes))
		return
	}

	msg, err := NewMessage(TypeText, c.room.Code, c.participant, payload)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build TEXT message")
		return
	}

	c.room.broadcast <- msg
}

// handleStreamStatus relays a stream control announcement. Only moderators
// may post these; the flag comes from the room token, not from the client.
func (c *Client) handleStreamStatus(payloadBytes json.RawMessage) {
	if !c.participant.Moderator {
		c.logger.Warn().Msg("Non-moderator attempted STREAM_STATUS")
		c.SendError(errs.ErrUnauthorized.WithHint("only moderators may change stream status"))
		return
	}

	var payload StreamStatusPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		c.logger.Warn().Err(err).Msg("Invalid STREAM_STATUS payload")
		return
	}

	msg, err := NewMessage(TypeStreamStatus, c.room.Code, c.participant, payload)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build STREAM_STATUS message")
		return
	}

	c.room.broadcast <- msg
}

// WritePump drains the send queue to the connection and keeps the heartbeat
// alive. It exits when the send channel closes or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			c.logger.Warn().Err(err).Msg("Connection close error in write pump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Warn().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Warn().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Info().Err(err).Msg("Ping failed, dropping connection")
		return false
	}

	return true
}

// sendMessage marshals data onto the send queue without blocking.
func (c *Client) sendMessage(data any) error {
	messageBytes, err := json.Marshal(data)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to marshal outbound message")
		return err
	}

	select {
	case c.send <- messageBytes:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Send queue full, dropping message")
		return errors.New("client send queue full")
	}
}

// SendError delivers an ERROR message to this client only.
func (c *Client) SendError(err error) {
	body := ErrorPayload{Error: "internal server error"}

	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		body.Error = customErr.Code
		body.Hint = customErr.Hint
	}

	msg, buildErr := NewMessage(TypeError, c.room.Code, SystemUser, body)
	if buildErr != nil {
		c.logger.Error().Err(buildErr).Msg("Failed to build ERROR message")
		return
	}

	if sendErr := c.sendMessage(msg); sendErr != nil {
		c.logger.Warn().Err(sendErr).Msg("Failed to queue ERROR message")
	}
}

// SendInitData delivers the initial room state to a freshly joined client.
func (c *Client) SendInitData(payload InitDataPayload) error {
	msg, err := NewMessage(TypeInitData, c.room.Code, SystemUser, payload)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build INIT_DATA message")
		return err
	}

	return c.sendMessage(msg)
}

// Kick closes the connection with the session-replaced close code.
func (c *Client) Kick(reason string) {
	c.logger.Warn().Str("reason", reason).Msg("Kicking connection")

	closeMessage := websocket.FormatCloseMessage(WsCloseCodeSessionReplaced, reason)

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.CloseMessage, closeMessage); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to write kick close frame")
	}

	c.closeSend()
}

// closeSend closes the outbound queue exactly once, ending the write pump.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}
