/*
Package handler provides the HTTP handlers and routing for the StudioGate
server.

This file implements the room directory: rooms a creator has provisioned
for their channel. The directory never gates token issuance, which treats
room references as opaque.
*/
package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"studiogate/internal/app/db"
	"studiogate/internal/pkg/auth/identity"
	"studiogate/internal/pkg/errs"
	"studiogate/internal/pkg/logx"
	"studiogate/internal/pkg/randx"
	"studiogate/internal/pkg/req"
	"studiogate/internal/pkg/resp"
)

// maxRoomNameLength bounds the display name of a directory entry.
const maxRoomNameLength = 120

// CreateRoomInput is the request body for room creation.
type CreateRoomInput struct {
	// Name is the room's display name in the creator dashboard.
	Name string `json:"name"`
}

// HandleCreateRoom provisions a new directory entry with a generated code.
// Requires an authenticated creator.
func HandleCreateRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := identity.FromContext(r)
		if claims == nil {
			resp.WriteError(w, r, errs.ErrUnauthorized)
			return
		}

		var input CreateRoomInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.WriteError(w, r, customErr)
			return
		}

		name := strings.TrimSpace(input.Name)
		if name == "" || len(name) > maxRoomNameLength {
			resp.WriteError(w, r, errs.ErrInvalidParams.WithHint(
				"name must be 1-%d characters", maxRoomNameLength))
			return
		}

		code, err := randx.RoomCode()
		if err != nil {
			logx.Error(err, "Failed to generate room code")
			resp.WriteError(w, r, errs.ErrInternal)
			return
		}

		room, err := deps.Rooms.CreateRoom(r.Context(), code, name, claims.Subject)
		if err != nil {
			if db.IsUniqueViolation(err) {
				resp.WriteError(w, r, errs.ErrRoomCodeExists.WithHint("retry the request"))
				return
			}
			logx.Error(err, "Failed to create room", "code", code)
			resp.WriteError(w, r, errs.ErrInternal)
			return
		}

		resp.WriteSuccess(w, r, room)
	}
}

// HandleGetRoom fetches one directory entry by code.
func HandleGetRoom(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		if !randx.IsValidRoomCode(code) {
			resp.WriteError(w, r, errs.ErrRoomNotFound)
			return
		}

		room, err := deps.Rooms.GetRoomByCode(r.Context(), code)
		if err != nil {
			if db.IsNotFound(err) {
				resp.WriteError(w, r, errs.ErrRoomNotFound)
				return
			}
			logx.Error(err, "Failed to fetch room", "code", code)
			resp.WriteError(w, r, errs.ErrInternal)
			return
		}

		resp.WriteSuccess(w, r, room)
	}
}

// HandleListRooms returns the authenticated creator's directory entries.
func HandleListRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := identity.FromContext(r)
		if claims == nil {
			resp.WriteError(w, r, errs.ErrUnauthorized)
			return
		}

		rooms, err := deps.Rooms.ListRoomsByOwner(r.Context(), claims.Subject)
		if err != nil {
			logx.Error(err, "Failed to list rooms", "owner", claims.Subject)
			resp.WriteError(w, r, errs.ErrInternal)
			return
		}

		if rooms == nil {
			rooms = []db.Room{}
		}
		resp.WriteSuccess(w, r, rooms)
	}
}
