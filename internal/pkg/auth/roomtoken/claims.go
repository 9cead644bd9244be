/*
Package roomtoken builds and signs the room access tokens presented to the
external conferencing verifier.

A token proves that a given person may join a given room with a given role
(moderator or guest) for a limited time window. Tokens are minted fresh per
join request, never stored server-side, and expire naturally: there is no
revocation mechanism, so the validity window is kept short.
*/
package roomtoken

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// WildcardRoom is the room reference meaning "any room on this deployment".
const WildcardRoom = "*"

// RoomScope selects which room reference is embedded in signed claims.
type RoomScope string

const (
	// ScopeLiteral embeds the requested room name, scoping the token to it.
	ScopeLiteral RoomScope = "literal"

	// ScopeWildcard embeds WildcardRoom regardless of the requested room,
	// granting access to every room. Opt-in per deployment.
	ScopeWildcard RoomScope = "wildcard"
)

// ErrEmptyRoom is returned when the requested room is empty after trimming.
var ErrEmptyRoom = errors.New("room cannot be empty")

// Identity describes the person a token is minted for. It is constructed per
// request from whatever upstream authentication concluded (or from guest
// defaults) and is never persisted by this package.
type Identity struct {
	// ID is the opaque user identifier (registered user ID or guest ID).
	ID string

	// Name is the display name shown to other room participants.
	Name string

	// Email is optional; when empty it is omitted from the signed claims
	// rather than replaced with a placeholder.
	Email string

	// Moderator indicates elevated privileges within the target room.
	Moderator bool
}

// UserClaims is the nested identity record inside a signed claim set.
type UserClaims struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Moderator bool   `json:"moderator"`
}

// ContextClaims wraps the identity record under the "context" key, matching
// the claim layout the conferencing verifier expects.
type ContextClaims struct {
	User UserClaims `json:"user"`
}

// Claims is the complete signed payload of a room access token.
type Claims struct {
	jwt.RegisteredClaims

	// Room is the room reference this token grants access to. It is either
	// the trimmed requested room or WildcardRoom, depending on RoomScope.
	Room string `json:"room"`

	// Context carries the nested identity record.
	Context ContextClaims `json:"context"`
}

// Policy holds the per-deployment claim parameters. Issuer, audience,
// algorithm and key material must match the external verifier's
// configuration; they are agreed out of band, never negotiated.
type Policy struct {
	// Issuer is embedded as the "iss" claim of every token.
	Issuer string

	// Audience is embedded as the "aud" claim of every token.
	Audience string

	// Subject is the optional tenant identifier ("sub" claim). Omitted from
	// claims when empty.
	Subject string

	// TTL is the fixed validity window: exp is always iat + TTL.
	TTL time.Duration

	// Skew is the clock-drift allowance: nbf is always iat - Skew.
	Skew time.Duration

	// RoomScope selects literal versus wildcard room claims.
	RoomScope RoomScope
}

// BuildClaims constructs the claim set for one token. It is a pure function
// of its inputs: given identical now it produces identical claims, performs
// no I/O and keeps no state.
//
// The requested room is trimmed before use; an empty result is a validation
// failure, never silently coerced. The identity's email is omitted when
// absent.
func BuildClaims(id Identity, room string, now time.Time, p Policy) (*Claims, error) {
	room = strings.TrimSpace(room)
	if room == "" {
		return nil, ErrEmptyRoom
	}

	claimRoom := room
	if p.RoomScope == ScopeWildcard {
		claimRoom = WildcardRoom
	}

	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.Issuer,
			Subject:   p.Subject,
			Audience:  jwt.ClaimStrings{p.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-p.Skew)),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.TTL)),
		},
		Room: claimRoom,
		Context: ContextClaims{
			User: UserClaims{
				ID:        id.ID,
				Name:      id.Name,
				Email:     id.Email,
				Moderator: id.Moderator,
			},
		},
	}, nil
}

// CoversRoom reports whether the claim set grants access to the given room,
// honoring the wildcard.
func (c *Claims) CoversRoom(room string) bool {
	return c.Room == WildcardRoom || c.Room == room
}
