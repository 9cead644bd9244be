/*
Package chat implements the live stream chat.

This file defines the Manager, which creates, tracks and cleans up active
Room instances.
*/
package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"studiogate/internal/pkg/logx"
)

// RoomCleanupMsg asks the Manager to drop a finished room.
type RoomCleanupMsg struct {
	RoomCode string
}

// Manager coordinates all active chat rooms.
type Manager struct {
	// rooms maps room code to its active Room.
	rooms map[string]*Room

	mu sync.RWMutex

	// cleanup receives notifications from rooms whose Run loop has ended.
	cleanup chan RoomCleanupMsg

	// wg waits for the cleanup loop during shutdown.
	wg sync.WaitGroup

	logger zerolog.Logger
}

// NewManager constructs a Manager and starts its cleanup loop.
func NewManager() *Manager {
	m := &Manager{
		rooms:   make(map[string]*Room),
		cleanup: make(chan RoomCleanupMsg, 10),
		logger:  logx.Logger().With().Str("component", "chat_manager").Logger(),
	}

	m.wg.Add(1)
	go m.runCleanupLoop()

	return m
}

func (m *Manager) runCleanupLoop() {
	defer m.wg.Done()

	for msg := range m.cleanup {
		m.deleteRoom(msg.RoomCode)
	}

	m.logger.Info().Msg("Cleanup loop stopped")
}

func (m *Manager) deleteRoom(roomCode string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[roomCode]; ok {
		delete(m.rooms, roomCode)
		m.logger.Info().Str("room_code", roomCode).Msg("Room removed")
	}
}

// GetOrCreateRoom returns the active room for the code, starting one when
// none is running. Stream chat rooms come into existence with their first
// viewer and shut down after inactivity.
func (m *Manager) GetOrCreateRoom(roomCode string, maxClients int) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room, ok := m.rooms[roomCode]; ok {
		return room
	}

	room := NewRoom(roomCode, maxClients, m.cleanup)
	m.rooms[roomCode] = room

	go room.Run()

	m.logger.Info().Str("room_code", roomCode).Int("max_clients", maxClients).Msg("Room started")
	return room
}

// GetRoom returns the active room for the code, or nil.
func (m *Manager) GetRoom(roomCode string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.rooms[roomCode]
}

// Shutdown stops every room and the cleanup loop, blocking until done.
func (m *Manager) Shutdown() {
	m.logger.Info().Msg("Shutting down chat manager")

	m.mu.Lock()
	for _, room := range m.rooms {
		room.Stop()
	}
	m.rooms = nil
	m.mu.Unlock()

	close(m.cleanup)
	m.wg.Wait()

	m.logger.Info().Msg("Chat manager shutdown complete")
}
