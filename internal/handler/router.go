/*
Package handler provides the HTTP handlers and routing for the StudioGate
server.

This file wires the router: global middleware, the public token issuance
endpoint with open CORS, the origin-restricted creator API, and the chat
WebSocket endpoint.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"studiogate/internal/pkg/auth/identity"
	"studiogate/internal/pkg/limiter"
	"studiogate/internal/pkg/logx"
	"studiogate/internal/pkg/resp"
)

const (
	// IssueRate and IssueBurst bound token minting per IP. The burst is
	// generous: refreshing clients legitimately re-mint.
	IssueRate  = 5.0
	IssueBurst = 20

	// CreateRate and CreateBurst bound room provisioning per IP.
	CreateRate  = 0.05
	CreateBurst = 2

	// JoinRate and JoinBurst bound chat joins per IP.
	JoinRate  = 0.2
	JoinBurst = 5
)

// Router builds the routing table with all middleware applied.
func Router(deps *AppDeps) http.Handler {
	issueLimiter := limiter.NewIPRateLimiter(rate.Limit(IssueRate), IssueBurst)
	createLimiter := limiter.NewIPRateLimiter(rate.Limit(CreateRate), CreateBurst)
	joinLimiter := limiter.NewIPRateLimiter(rate.Limit(JoinRate), JoinBurst)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: origin not allowed", "origin", origin)
			return false
		},
	}

	// The issuance endpoint is a public token vending operation: CORS is
	// deliberately open, preflights included, and no cookies are read.
	openCors := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})

	tokenChain := openCors.Handler(
		identity.ExtractorMiddleware(deps.Config.IdentityJWTSecret)(
			issueLimiter.Middleware(HandleIssueToken(deps)),
		),
	)
	r.Handle("/token", tokenChain)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.WriteSuccess(w, r, map[string]string{
			"status":  "ok",
			"service": "StudioGate",
		})
	})

	// The creator API stays origin-restricted outside development.
	apiCorsOrigins := []string{}
	if deps.Config.IsDevelopment() {
		apiCorsOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		apiCorsOrigins = deps.Config.AllowedOrigins
	}

	apiCors := cors.New(cors.Options{
		AllowedOrigins:   apiCorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(apiCors.Handler)
		api.Use(identity.ExtractorMiddleware(deps.Config.IdentityJWTSecret))

		api.Route("/rooms", func(rooms chi.Router) {
			rooms.Get("/", HandleListRooms(deps))
			rooms.With(createLimiter.Middleware).Post("/", HandleCreateRoom(deps))
			rooms.Get("/{code}", HandleGetRoom(deps))
		})

		api.Route("/media", func(media chi.Router) {
			media.Post("/presign-upload", HandlePresignUpload(deps))
			media.Get("/presign-download", HandlePresignDownload(deps))
			media.Post("/upload-overlay", HandleUploadOverlay(deps))
			media.Delete("/", HandleDeleteMedia(deps))
		})
	})

	r.Get("/ws/{room}", HandleWebSocket(wsUpgrader, joinLimiter, deps))

	return r
}
