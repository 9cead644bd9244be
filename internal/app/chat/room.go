/*
Package chat implements the live stream chat.

This file defines the Room: the hub of one stream's chat session. It owns
client registration, broadcasting and automatic shutdown on inactivity.
*/
package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"studiogate/internal/app/user"
	"studiogate/internal/pkg/errs"
	"studiogate/internal/pkg/logx"
)

const (
	broadcastChannelBuffer = 1024

	// DefaultMaxClients bounds the viewers of one stream chat.
	DefaultMaxClients = 500

	// RoomInactivityTimeout is how long an empty room stays alive before
	// its Run loop exits.
	RoomInactivityTimeout = 5 * time.Minute
)

// Room is one active stream chat session.
type Room struct {
	// Code is the room reference, matching the room claim of the access
	// tokens participants joined with.
	Code string

	// MaxClients caps concurrent participants; 0 means unbounded.
	MaxClients int

	// clients maps participant ID to connection.
	clients map[string]*Client

	broadcast  chan Message
	register   chan *Client
	unregister chan *Client

	// cleanupChan notifies the Manager when the Run loop has finished.
	cleanupChan chan<- RoomCleanupMsg

	stopChan      chan struct{}
	shutdownTimer *time.Timer

	mu     sync.RWMutex
	logger zerolog.Logger
}

// NewRoom creates a Room; the caller starts its Run loop.
func NewRoom(roomCode string, maxClients int, cleanupChan chan<- RoomCleanupMsg) *Room {
	return &Room{
		Code:          roomCode,
		MaxClients:    maxClients,
		clients:       make(map[string]*Client),
		broadcast:     make(chan Message, broadcastChannelBuffer),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		cleanupChan:   cleanupChan,
		stopChan:      make(chan struct{}),
		shutdownTimer: time.NewTimer(RoomInactivityTimeout),
		logger:        logx.Logger().With().Str("room_code", roomCode).Logger(),
	}
}

// Stop terminates the Run loop immediately. Safe to call more than once.
func (r *Room) Stop() {
	select {
	case <-r.stopChan:
	default:
		close(r.stopChan)
	}
}

// Run is the room's event loop: registration, deregistration, broadcast and
// inactivity shutdown. It exits on inactivity timeout or Stop, notifying the
// Manager for cleanup on the way out.
func (r *Room) Run() {
	defer func() {
		// Mark the room stopped so late RegisterClient calls fail fast
		// instead of blocking on a loop that is no longer receiving.
		r.Stop()

		if r.shutdownTimer != nil {
			r.shutdownTimer.Stop()
		}

		// The Manager may have closed the cleanup channel during shutdown.
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Warn().Msg("Cleanup channel closed before room notification")
				}
			}()

			select {
			case r.cleanupChan <- RoomCleanupMsg{RoomCode: r.Code}:
			default:
				r.logger.Warn().Msg("Cleanup channel full, skipping notification")
			}
		}()

		r.mu.Lock()
		for _, client := range r.clients {
			client.closeSend()
		}
		r.clients = make(map[string]*Client)
		r.mu.Unlock()
	}()

	for {
		select {
		case client := <-r.register:
			r.handleRegister(client)

		case client := <-r.unregister:
			r.handleUnregister(client)

		case message := <-r.broadcast:
			r.handleBroadcast(message)

		case <-r.shutdownTimer.C:
			r.logger.Info().Dur("timeout", RoomInactivityTimeout).Msg("Room inactive, shutting down")
			return

		case <-r.stopChan:
			r.logger.Info().Msg("Room stop requested")
			return
		}
	}
}

func (r *Room) handleRegister(client *Client) {
	r.mu.Lock()

	if existing, ok := r.clients[client.participant.ID]; ok {
		r.logger.Warn().
			Str("client_id", client.participant.ID).
			Msg("Participant already connected, replacing old connection")
		existing.Kick("session replaced by a new connection")
	}

	// An occupied room never times out: the countdown is stopped here and
	// re-armed only when the last participant leaves.
	if r.shutdownTimer.Stop() {
		select {
		case <-r.shutdownTimer.C:
		default:
		}
	}

	if _, replaced := r.clients[client.participant.ID]; !replaced && r.MaxClients > 0 && len(r.clients) >= r.MaxClients {
		r.logger.Warn().
			Str("client_id", client.participant.ID).
			Int("max_clients", r.MaxClients).
			Msg("Room full, rejecting participant")

		client.SendError(errs.ErrRoomFull)
		client.closeSend()
		r.mu.Unlock()
		return
	}

	r.clients[client.participant.ID] = client

	onlineUsers := make([]user.Participant, 0, len(r.clients))
	for _, c := range r.clients {
		onlineUsers = append(onlineUsers, c.participant)
	}

	initData := InitDataPayload{
		CurrentUser: client.participant,
		OnlineUsers: onlineUsers,
		MaxUsers:    r.MaxClients,
	}

	total := len(r.clients)
	r.mu.Unlock()

	r.logger.Info().
		Str("client_id", client.participant.ID).
		Int("total_users", total).
		Msg("Participant joined")

	if err := client.SendInitData(initData); err != nil {
		r.queueUnregister(client)
		return
	}

	r.announce(TypeUserJoined, UserEventPayload{User: client.participant})
}

func (r *Room) handleUnregister(client *Client) {
	r.mu.Lock()

	current, ok := r.clients[client.participant.ID]
	switch {
	case ok && current == client:
		delete(r.clients, client.participant.ID)
		client.closeSend()

		r.logger.Info().
			Str("client_id", client.participant.ID).
			Int("total_users", len(r.clients)).
			Msg("Participant left")

		if len(r.clients) == 0 {
			if r.shutdownTimer.Stop() {
				select {
				case <-r.shutdownTimer.C:
				default:
				}
			}
			r.shutdownTimer.Reset(RoomInactivityTimeout)
		}

		r.mu.Unlock()
		r.announce(TypeUserLeft, UserEventPayload{User: client.participant})
		return

	case ok:
		// A replaced connection unregistering after its successor joined.
		r.logger.Info().
			Str("stale_client_id", client.participant.ID).
			Msg("Ignoring unregister for stale connection")

	default:
		r.logger.Warn().
			Str("client_id", client.participant.ID).
			Msg("Unregister for unknown participant")
	}

	r.mu.Unlock()
}

func (r *Room) handleBroadcast(message Message) {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		r.logger.Error().Err(err).Str("message_id", message.ID).Msg("Failed to marshal broadcast message")
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, client := range r.clients {
		if client.participant.ID == message.Sender.ID {
			continue
		}

		select {
		case client.send <- messageBytes:
		default:
			r.logger.Warn().
				Str("client_id", client.participant.ID).
				Msg("Send queue full, dropping participant")
			r.queueUnregister(client)
		}
	}
}

// announce broadcasts a system message to the room.
func (r *Room) announce(msgType MessageType, payload any) {
	msg, err := NewMessage(msgType, r.Code, SystemUser, payload)
	if err != nil {
		r.logger.Error().Err(err).Str("msg_type", string(msgType)).Msg("Failed to build system message")
		return
	}

	select {
	case r.broadcast <- msg:
	default:
		r.logger.Warn().Str("msg_type", string(msgType)).Msg("Broadcast channel full, dropping system message")
	}
}

// queueUnregister hands a client to the unregister channel without blocking
// the event loop.
func (r *Room) queueUnregister(client *Client) {
	select {
	case r.unregister <- client:
	default:
		r.logger.Warn().Msg("Unregister channel full, skipping client cleanup")
	}
}

// RegisterClient queues a client for registration.
func (r *Room) RegisterClient(client *Client) {
	select {
	case r.register <- client:
	case <-r.stopChan:
		client.SendError(errs.ErrInternal.WithHint("room is shutting down"))
		client.closeSend()
	}
}

// IsFull reports whether the room is at capacity.
func (r *Room) IsFull() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.MaxClients > 0 && len(r.clients) >= r.MaxClients
}
