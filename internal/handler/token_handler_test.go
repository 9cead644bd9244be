package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"studiogate/internal/configs"
	"studiogate/internal/pkg/auth/identity"
	"studiogate/internal/pkg/auth/roomtoken"
)

const (
	testSigningSecret  = "test-signing-secret"
	testIdentitySecret = "test-identity-secret"
)

// newTestDeps builds deps with a fixed clock and an HS256 signer. Chat
// manager, room store and media storage stay nil; the issuance path never
// touches them.
func newTestDeps(t *testing.T, scope roomtoken.RoomScope, secret string) (*AppDeps, time.Time) {
	t.Helper()

	signer, err := roomtoken.NewSigner(roomtoken.SignerConfig{Algorithm: "HS256", Secret: secret})
	if err != nil {
		t.Fatalf("signer: %v", err)
	}

	// The fixed clock stays anchored to real time so decoded tokens pass
	// the library's expiry validation.
	now := time.Now().Truncate(time.Second)

	return &AppDeps{
		Config: &configs.AppConfig{
			Environment:       "development",
			TokenIssuer:       "studiogate",
			TokenAudience:     "conference",
			TokenSubject:      "tenant-1",
			TokenTTL:          time.Hour,
			TokenSkew:         10 * time.Second,
			TokenRoomScope:    scope,
			IdentityJWTSecret: testIdentitySecret,
		},
		Signer: signer,
		Now:    func() time.Time { return now },
	}, now
}

func postToken(t *testing.T, router http.Handler, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeIssued(t *testing.T, deps *AppDeps, rec *httptest.ResponseRecorder) (IssueTokenOutput, *roomtoken.Claims) {
	t.Helper()

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var out IssueTokenOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	claims, err := deps.Signer.Parse(out.Token)
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	return out, claims
}

func TestIssueTokenValidation(t *testing.T) {
	deps, _ := newTestDeps(t, roomtoken.ScopeLiteral, testSigningSecret)
	router := Router(deps)

	cases := []struct {
		name string
		body string
	}{
		{"missing room", `{}`},
		{"null room", `{"room": null}`},
		{"non-string room", `{"room": 5}`},
		{"empty room", `{"room": ""}`},
		{"whitespace room", `{"room": "   "}`},
		{"malformed body", `{"room": `},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postToken(t, router, tc.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body = %s", rec.Code, rec.Body.String())
			}

			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body["error"] == "" || body["error"] == nil {
				t.Fatalf("error field missing: %s", rec.Body.String())
			}
			if _, ok := body["token"]; ok {
				t.Fatalf("validation failure must not issue a token: %s", rec.Body.String())
			}
		})
	}
}

func TestIssueTokenRoomMustBeString(t *testing.T) {
	deps, _ := newTestDeps(t, roomtoken.ScopeLiteral, testSigningSecret)
	router := Router(deps)

	// Missing, null and wrongly-typed rooms all answer the same
	// validation error, not a generic parse failure.
	cases := []struct {
		name string
		body string
	}{
		{"missing", `{}`},
		{"null", `{"room": null}`},
		{"number", `{"room": 5}`},
		{"boolean", `{"room": true}`},
		{"array", `{"room": ["studio-42"]}`},
		{"object", `{"room": {"name": "studio-42"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postToken(t, router, tc.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body = %s", rec.Code, rec.Body.String())
			}

			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body["error"] != "room is required" {
				t.Fatalf("error = %v, want %q", body["error"], "room is required")
			}
		})
	}
}

func TestIssueTokenFreshness(t *testing.T) {
	deps, now := newTestDeps(t, roomtoken.ScopeLiteral, testSigningSecret)
	router := Router(deps)

	first := postToken(t, router, `{"room": "studio-42"}`, nil)
	out1, claims1 := decodeIssued(t, deps, first)

	// Advance the injected clock; a refresh one second later must mint a
	// distinct token even for identical inputs.
	later := now.Add(time.Second)
	deps.Now = func() time.Time { return later }

	second := postToken(t, router, `{"room": "studio-42"}`, nil)
	out2, claims2 := decodeIssued(t, deps, second)

	if out1.Token == out2.Token {
		t.Fatalf("sequential calls returned the same token")
	}
	if !claims2.IssuedAt.After(claims1.IssuedAt.Time) {
		t.Fatalf("second iat %v not after first %v", claims2.IssuedAt, claims1.IssuedAt)
	}
}

func TestIssueTokenTemporalInvariant(t *testing.T) {
	deps, now := newTestDeps(t, roomtoken.ScopeLiteral, testSigningSecret)
	router := Router(deps)

	rec := postToken(t, router, `{"room": "studio-42"}`, nil)
	out, claims := decodeIssued(t, deps, rec)

	iat := claims.IssuedAt.Unix()
	nbf := claims.NotBefore.Unix()
	exp := claims.ExpiresAt.Unix()

	if iat != now.Unix() {
		t.Fatalf("iat = %d, want %d", iat, now.Unix())
	}
	if !(nbf < iat && iat <= exp) {
		t.Fatalf("temporal invariant violated: nbf=%d iat=%d exp=%d", nbf, iat, exp)
	}
	if exp-iat != 3600 {
		t.Fatalf("validity window = %d, want 3600", exp-iat)
	}
	if out.Expires != exp {
		t.Fatalf("response expires = %d, claim exp = %d", out.Expires, exp)
	}
}

func TestIssueTokenModeratorFidelity(t *testing.T) {
	deps, _ := newTestDeps(t, roomtoken.ScopeLiteral, testSigningSecret)
	router := Router(deps)

	cases := []struct {
		name string
		body string
		want bool
	}{
		{"explicit true", `{"room": "studio-42", "moderator": true}`, true},
		{"explicit false", `{"room": "studio-42", "moderator": false}`, false},
		{"omitted", `{"room": "studio-42"}`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postToken(t, router, tc.body, nil)
			_, claims := decodeIssued(t, deps, rec)
			if claims.Context.User.Moderator != tc.want {
				t.Fatalf("moderator = %v, want %v", claims.Context.User.Moderator, tc.want)
			}
		})
	}
}

func TestIssueTokenRoomFidelityLiteral(t *testing.T) {
	deps, _ := newTestDeps(t, roomtoken.ScopeLiteral, testSigningSecret)
	router := Router(deps)

	rec := postToken(t, router, `{"room": "  studio-42  "}`, nil)
	out, claims := decodeIssued(t, deps, rec)

	if out.Room != "studio-42" {
		t.Fatalf("response room = %q, want trimmed input", out.Room)
	}
	if claims.Room != "studio-42" {
		t.Fatalf("claim room = %q, want literal room", claims.Room)
	}
}

func TestIssueTokenRoomFidelityWildcard(t *testing.T) {
	deps, _ := newTestDeps(t, roomtoken.ScopeWildcard, testSigningSecret)
	router := Router(deps)

	rec := postToken(t, router, `{"room": "studio-42"}`, nil)
	out, claims := decodeIssued(t, deps, rec)

	// Wildcard policy widens the signed claim but the response still echoes
	// the requested room.
	if claims.Room != roomtoken.WildcardRoom {
		t.Fatalf("claim room = %q, want wildcard", claims.Room)
	}
	if out.Room != "studio-42" {
		t.Fatalf("response room = %q, want requested room", out.Room)
	}
}

func TestIssueTokenSigningNotConfigured(t *testing.T) {
	deps, _ := newTestDeps(t, roomtoken.ScopeLiteral, "")
	router := Router(deps)

	rec := postToken(t, router, `{"room": "studio-42"}`, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500; body = %s", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body["error"] != "signing not configured" {
		t.Fatalf("error = %v", body["error"])
	}
	if _, ok := body["token"]; ok {
		t.Fatalf("misconfigured server must not issue a token")
	}
}

func TestIssueTokenScenario(t *testing.T) {
	deps, now := newTestDeps(t, roomtoken.ScopeLiteral, testSigningSecret)
	router := Router(deps)

	rec := postToken(t, router,
		`{"room": "prayer-room", "moderator": true, "name": "Jane", "email": "jane@example.com"}`, nil)
	out, claims := decodeIssued(t, deps, rec)

	if claims.Room != "prayer-room" {
		t.Fatalf("claim room = %q", claims.Room)
	}
	if claims.Context.User.Name != "Jane" {
		t.Fatalf("user name = %q", claims.Context.User.Name)
	}
	if !claims.Context.User.Moderator {
		t.Fatalf("moderator flag lost")
	}
	if claims.Context.User.Email != "jane@example.com" {
		t.Fatalf("user email = %q", claims.Context.User.Email)
	}

	iat := claims.IssuedAt.Unix()
	if iat != now.Unix() {
		t.Fatalf("iat = %d, want %d", iat, now.Unix())
	}
	if claims.ExpiresAt.Unix() != iat+3600 {
		t.Fatalf("exp = %d, want iat+3600", claims.ExpiresAt.Unix())
	}
	if claims.NotBefore.Unix() != iat-10 {
		t.Fatalf("nbf = %d, want iat-10", claims.NotBefore.Unix())
	}
	if out.Room != "prayer-room" || out.Expires != iat+3600 {
		t.Fatalf("response = %+v", out)
	}
}

func TestIssueTokenGuestIdentity(t *testing.T) {
	deps, _ := newTestDeps(t, roomtoken.ScopeLiteral, testSigningSecret)
	router := Router(deps)

	rec := postToken(t, router, `{"room": "studio-42"}`, nil)
	_, claims := decodeIssued(t, deps, rec)

	if !strings.HasPrefix(claims.Context.User.ID, "guest_") {
		t.Fatalf("anonymous caller should get a guest id, got %q", claims.Context.User.ID)
	}
	if claims.Context.User.Name == "" {
		t.Fatalf("anonymous caller should get a fallback name")
	}
	if claims.Context.User.Email != "" {
		t.Fatalf("email should be absent, got %q", claims.Context.User.Email)
	}
}

func TestIssueTokenAuthenticatedIdentity(t *testing.T) {
	deps, _ := newTestDeps(t, roomtoken.ScopeLiteral, testSigningSecret)
	router := Router(deps)

	identityToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, identity.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Name:  "Creator Jane",
		Email: "creator@example.com",
	}).SignedString([]byte(testIdentitySecret))
	if err != nil {
		t.Fatalf("mint identity token: %v", err)
	}

	rec := postToken(t, router, `{"room": "studio-42", "name": "ignored"}`, map[string]string{
		"Authorization": "Bearer " + identityToken,
	})
	_, claims := decodeIssued(t, deps, rec)

	if claims.Context.User.ID != "user-1" {
		t.Fatalf("user id = %q, want identity subject", claims.Context.User.ID)
	}
	if claims.Context.User.Name != "Creator Jane" {
		t.Fatalf("user name = %q, want identity name", claims.Context.User.Name)
	}
	if claims.Context.User.Email != "creator@example.com" {
		t.Fatalf("user email = %q", claims.Context.User.Email)
	}
	if claims.Context.User.Moderator {
		t.Fatalf("identity must not imply the moderator flag")
	}
}

func TestIssueTokenRegisteredClaims(t *testing.T) {
	deps, _ := newTestDeps(t, roomtoken.ScopeLiteral, testSigningSecret)
	router := Router(deps)

	rec := postToken(t, router, `{"room": "studio-42"}`, nil)
	_, claims := decodeIssued(t, deps, rec)

	if claims.Issuer != "studiogate" {
		t.Fatalf("iss = %q", claims.Issuer)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != "conference" {
		t.Fatalf("aud = %v", claims.Audience)
	}
	if claims.Subject != "tenant-1" {
		t.Fatalf("sub = %q", claims.Subject)
	}
}

func TestTokenEndpointCORS(t *testing.T) {
	deps, _ := newTestDeps(t, roomtoken.ScopeLiteral, testSigningSecret)
	router := Router(deps)

	// Preflight.
	preflight := httptest.NewRequest(http.MethodOptions, "/token", nil)
	preflight.Header.Set("Origin", "https://studio.example.com")
	preflight.Header.Set("Access-Control-Request-Method", "POST")
	// Browsers send the requested header list lowercased (Fetch spec), and
	// rs/cors matches it byte-wise.
	preflight.Header.Set("Access-Control-Request-Headers", "content-type")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, preflight)

	if rec.Code != http.StatusNoContent && rec.Code != http.StatusOK {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("preflight Access-Control-Allow-Origin = %q", got)
	}

	// The substantive response carries CORS headers too.
	substantive := postToken(t, router, `{"room": "studio-42"}`, map[string]string{
		"Origin": "https://studio.example.com",
	})
	if substantive.Code != http.StatusOK {
		t.Fatalf("status = %d", substantive.Code)
	}
	if got := substantive.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("substantive Access-Control-Allow-Origin = %q", got)
	}
}

func TestTokenEndpointRejectsGet(t *testing.T) {
	deps, _ := newTestDeps(t, roomtoken.ScopeLiteral, testSigningSecret)
	router := Router(deps)

	req := httptest.NewRequest(http.MethodGet, "/token", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
