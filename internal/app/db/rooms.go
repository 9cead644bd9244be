package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Room is a row of the room directory: a room a creator has provisioned for
// their channel. The directory does not gate token issuance, which treats
// room references as opaque.
type Room struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
}

// RoomStore runs room directory queries against the pool.
type RoomStore struct {
	pool *pgxpool.Pool
}

// NewRoomStore wraps the pool in a RoomStore.
func NewRoomStore(pool *pgxpool.Pool) *RoomStore {
	return &RoomStore{pool: pool}
}

// CreateRoom inserts a new directory entry. A duplicate code surfaces as a
// unique violation (see IsUniqueViolation).
func (s *RoomStore) CreateRoom(ctx context.Context, code, name, ownerID string) (*Room, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO rooms (code, name, owner_id)
		 VALUES ($1, $2, $3)
		 RETURNING code, name, owner_id, created_at`,
		code, name, ownerID,
	)

	var room Room
	if err := row.Scan(&room.Code, &room.Name, &room.OwnerID, &room.CreatedAt); err != nil {
		return nil, err
	}

	return &room, nil
}

// GetRoomByCode fetches one directory entry. A missing row surfaces as
// pgx.ErrNoRows.
func (s *RoomStore) GetRoomByCode(ctx context.Context, code string) (*Room, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT code, name, owner_id, created_at FROM rooms WHERE code = $1`,
		code,
	)

	var room Room
	if err := row.Scan(&room.Code, &room.Name, &room.OwnerID, &room.CreatedAt); err != nil {
		return nil, err
	}

	return &room, nil
}

// ListRoomsByOwner returns the directory entries owned by a creator, newest
// first.
func (s *RoomStore) ListRoomsByOwner(ctx context.Context, ownerID string) ([]Room, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT code, name, owner_id, created_at
		 FROM rooms WHERE owner_id = $1
		 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.Code, &room.Name, &room.OwnerID, &room.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}
