/*
Package handler provides the HTTP handlers and routing for the StudioGate
server.

This file upgrades chat join requests. Joining requires a valid room access
token whose room claim covers the requested room; the token's identity
becomes the chat participant.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"studiogate/internal/app/chat"
	"studiogate/internal/app/user"
	"studiogate/internal/pkg/errs"
	"studiogate/internal/pkg/limiter"
	"studiogate/internal/pkg/logx"
	"studiogate/internal/pkg/resp"
)

// HandleWebSocket authenticates and upgrades a chat join request.
func HandleWebSocket(upgrader websocket.Upgrader, joinLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !joinLimiter.GetLimiter(limiter.ClientIP(r)).Allow() {
			logx.Warn("Chat join rejected: rate limit exceeded", "ip", limiter.ClientIP(r))
			resp.WriteError(w, r, errs.ErrRateLimited)
			return
		}

		roomCode := chi.URLParam(r, "room")
		if roomCode == "" {
			resp.WriteError(w, r, errs.ErrInvalidParams.WithHint("room path segment is required"))
			return
		}

		// Browsers cannot set headers on WebSocket dials, so the room token
		// arrives as a query parameter.
		tokenString := r.URL.Query().Get("access_token")
		if tokenString == "" {
			resp.WriteError(w, r, errs.ErrTokenInvalid.WithHint("pass the room token as the access_token query parameter"))
			return
		}

		claims, err := deps.Signer.Parse(tokenString)
		if err != nil {
			logx.Warn("Chat join rejected: invalid room token", "room", roomCode, "error", err)
			resp.WriteError(w, r, errs.ErrTokenInvalid)
			return
		}

		if !claims.CoversRoom(roomCode) {
			logx.Warn("Chat join rejected: token for different room",
				"requested_room", roomCode,
				"token_room", claims.Room,
			)
			resp.WriteError(w, r, errs.ErrTokenWrongRoom)
			return
		}

		participant := user.Participant{
			ID:        claims.Context.User.ID,
			Name:      claims.Context.User.Name,
			Moderator: claims.Context.User.Moderator,
		}

		room := deps.Manager.GetOrCreateRoom(roomCode, chat.DefaultMaxClients)
		if room.IsFull() {
			resp.WriteError(w, r, errs.ErrRoomFull)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "WebSocket upgrade failed", "room", roomCode)
			return
		}

		client := chat.NewClient(room, conn, participant)

		go client.WritePump()

		room.RegisterClient(client)

		logx.Info("Chat participant connected",
			"client_id", participant.ID,
			"room", roomCode,
			"moderator", participant.Moderator,
		)

		client.ReadPump()
	}
}
