/*
Package handler provides the HTTP handlers and routing for the StudioGate
server.

This file implements the room access token issuance endpoint. Every call
mints a fresh token with a fresh issued-at; the endpoint is deliberately not
idempotent so that clients can refresh by simply calling again.
*/
package handler

import (
	"errors"
	"net/http"
	"strings"

	"studiogate/internal/pkg/auth/identity"
	"studiogate/internal/pkg/auth/roomtoken"
	"studiogate/internal/pkg/errs"
	"studiogate/internal/pkg/logx"
	"studiogate/internal/pkg/randx"
	"studiogate/internal/pkg/req"
	"studiogate/internal/pkg/resp"
)

// IssueTokenInput is the request body of POST /token. Room is decoded
// loosely so that a missing, null or non-string value all surface as the
// same validation failure instead of a generic parse error.
type IssueTokenInput struct {
	Room      any    `json:"room"`
	Moderator bool   `json:"moderator,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
}

// IssueTokenOutput is the success body of POST /token. Expires is the
// token's expiry as unix seconds.
type IssueTokenOutput struct {
	Token   string `json:"token"`
	Room    string `json:"room"`
	Expires int64  `json:"expires"`
}

// HandleIssueToken mints a room access token for the caller.
//
// Validation order: room present, room non-empty after trimming, signing
// configured. The echoed room in the response is always the trimmed
// requested name, even when deployment policy embeds a wildcard in the
// signed claim.
func HandleIssueToken(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			resp.WriteError(w, r, &errs.CustomError{
				Status: http.StatusMethodNotAllowed,
				Code:   "method not allowed",
				Hint:   "use POST",
			})
			return
		}

		var input IssueTokenInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.WriteError(w, r, customErr)
			return
		}

		requestedRoom, ok := input.Room.(string)
		if !ok {
			resp.WriteError(w, r, errs.ErrRoomRequired)
			return
		}

		room := strings.TrimSpace(requestedRoom)
		if room == "" {
			resp.WriteError(w, r, errs.ErrRoomEmpty)
			return
		}

		// Deployment misconfiguration is checked after request validation
		// and independent of request shape, so bad client input never masks
		// it and vice versa.
		if !deps.Signer.Configured() {
			logx.Error(roomtoken.ErrNotConfigured, "Token issuance refused: no signing key material",
				"room", room,
			)
			resp.WriteError(w, r, errs.ErrSigningNotConfigured)
			return
		}

		ident, customErr := resolveIdentity(r, input)
		if customErr != nil {
			resp.WriteError(w, r, customErr)
			return
		}

		now := deps.now()

		claims, err := roomtoken.BuildClaims(ident, room, now, deps.Config.TokenPolicy())
		if err != nil {
			// Only an empty room reaches here, and it was checked above.
			resp.WriteError(w, r, errs.ErrRoomEmpty)
			return
		}

		token, err := deps.Signer.Sign(claims)
		if err != nil {
			if errors.Is(err, roomtoken.ErrNotConfigured) {
				resp.WriteError(w, r, errs.ErrSigningNotConfigured)
				return
			}

			// The raw signing error stays server-side.
			logx.Error(err, "Room token signing failed", "room", room)
			resp.WriteError(w, r, errs.ErrTokenIssuance)
			return
		}

		resp.WriteSuccess(w, r, IssueTokenOutput{
			Token:   token,
			Room:    room,
			Expires: claims.ExpiresAt.Unix(),
		})
	}
}

// resolveIdentity derives the token identity for this request. An
// authenticated caller's Bearer identity supplies id, name and email;
// anonymous callers get a generated guest identity, filled from the request
// body where provided. The moderator flag always comes from the request
// body and defaults to false.
func resolveIdentity(r *http.Request, input IssueTokenInput) (roomtoken.Identity, *errs.CustomError) {
	ident := roomtoken.Identity{
		Name:      strings.TrimSpace(input.Name),
		Email:     strings.TrimSpace(input.Email),
		Moderator: input.Moderator,
	}

	if claims := identity.FromContext(r); claims != nil {
		ident.ID = claims.Subject
		if claims.Name != "" {
			ident.Name = claims.Name
		}
		if claims.Email != "" {
			ident.Email = claims.Email
		}
		return ident, nil
	}

	guestID, err := randx.GuestID()
	if err != nil {
		logx.Error(err, "Failed to generate guest ID")
		return roomtoken.Identity{}, errs.ErrInternal
	}
	ident.ID = guestID

	if ident.Name == "" {
		nickname, err := randx.GuestNickname()
		if err != nil {
			logx.Error(err, "Failed to generate guest nickname")
			return roomtoken.Identity{}, errs.ErrInternal
		}
		ident.Name = nickname
	}

	return ident, nil
}
