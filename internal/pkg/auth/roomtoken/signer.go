package roomtoken

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"studiogate/internal/pkg/logx"
)

// ErrNotConfigured is returned by Sign when no key material is present for
// the configured algorithm. It indicates deployment misconfiguration, not bad
// client input, and must be surfaced to clients as a server error without
// leaking any detail.
var ErrNotConfigured = errors.New("token signing is not configured")

// SignerConfig selects the signing algorithm and supplies key material.
// The algorithm is fixed per deployment; issuer and verifier must agree on it
// out of band.
type SignerConfig struct {
	// Algorithm is "HS256" (symmetric, the default) or "RS256".
	Algorithm string

	// Secret is the shared secret for HS256.
	Secret string

	// PrivateKeyPEM is the PKCS#1/PKCS#8 PEM-encoded RSA private key for RS256.
	PrivateKeyPEM string
}

// Signer wraps claim sets in signed, tamper-evident envelopes and validates
// tokens it previously issued. A Signer is immutable and safe for concurrent
// use.
type Signer struct {
	method jwt.SigningMethod
	secret []byte
	rsaKey *rsa.PrivateKey
}

// NewSigner constructs a Signer for the configured algorithm.
//
// A malformed private key or unknown algorithm is rejected here, at startup.
// Absent key material is deliberately NOT rejected here: it is reported per
// request by Sign as ErrNotConfigured, so that an otherwise healthy server
// answers issuance requests with a clean server error instead of refusing to
// boot mid-rollout.
func NewSigner(cfg SignerConfig) (*Signer, error) {
	switch cfg.Algorithm {
	case "", "HS256":
		return &Signer{
			method: jwt.SigningMethodHS256,
			secret: []byte(cfg.Secret),
		}, nil

	case "RS256":
		s := &Signer{method: jwt.SigningMethodRS256}
		if cfg.PrivateKeyPEM != "" {
			key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.PrivateKeyPEM))
			if err != nil {
				return nil, fmt.Errorf("parse RS256 private key: %w", err)
			}
			s.rsaKey = key
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
}

// Configured reports whether key material is present for the configured
// algorithm. Handlers check this before building claims so that deployment
// misconfiguration is reported independent of request shape.
func (s *Signer) Configured() bool {
	if s.rsaKey != nil {
		return true
	}
	return s.method == jwt.SigningMethodHS256 && len(s.secret) > 0
}

// Sign serializes and signs the claim set, returning the compact token
// string. Neither the key material nor the signed token is ever logged; the
// token is a bearer credential.
func (s *Signer) Sign(claims *Claims) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}

	token := jwt.NewWithClaims(s.method, claims)

	var signed string
	var err error
	if s.rsaKey != nil {
		signed, err = token.SignedString(s.rsaKey)
	} else {
		signed, err = token.SignedString(s.secret)
	}
	if err != nil {
		return "", fmt.Errorf("sign room token: %w", err)
	}

	logx.Logger().Debug().
		Str("alg", s.method.Alg()).
		Str("room", claims.Room).
		Str("iss", claims.Issuer).
		Strs("aud", claims.Audience).
		Bool("moderator", claims.Context.User.Moderator).
		Msg("Room access token signed")

	return signed, nil
}

// Parse validates a token string against this Signer's key material and
// returns its claims. The signing method allow-list is pinned to the
// configured algorithm, so an HS256 deployment rejects RS256 tokens and vice
// versa.
func (s *Signer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (any, error) {
			if s.rsaKey != nil {
				return &s.rsaKey.PublicKey, nil
			}
			if len(s.secret) == 0 {
				return nil, ErrNotConfigured
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid or expired room token")
	}

	return claims, nil
}
