/*
Package identity extracts the caller's studio identity from a Bearer token
issued by the upstream authentication service.

Extraction is best-effort: a missing or invalid token never interrupts the
request, the caller is simply treated as anonymous. Handlers that require an
authenticated creator check FromContext themselves.
*/
package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"studiogate/internal/pkg/logx"
)

// Claims is the payload of a studio identity token.
type Claims struct {
	jwt.RegisteredClaims

	// Name is the creator's display name.
	Name string `json:"name,omitempty"`

	// Email is the creator's account email.
	Email string `json:"email,omitempty"`
}

type contextKey string

// contextClaimsKey stores the parsed identity Claims in the request context.
const contextClaimsKey contextKey = "identity_claims"

// Parse validates an identity token string and returns its claims.
func Parse(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (any, error) {
			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid or expired identity token")
	}

	return claims, nil
}

// ExtractorMiddleware attempts to extract and validate a Bearer identity
// token from the Authorization header, injecting the Claims into the request
// context on success. Failure or absence falls through as anonymous; no 401
// is issued here.
func ExtractorMiddleware(secret string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := Parse(parts[1], secret)
			if err != nil {
				logx.Warn("Invalid identity token provided, treating caller as anonymous", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), contextClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext returns the authenticated identity Claims, or nil when the
// caller is anonymous.
func FromContext(r *http.Request) *Claims {
	claims, ok := r.Context().Value(contextClaimsKey).(*Claims)
	if !ok {
		return nil
	}
	return claims
}
