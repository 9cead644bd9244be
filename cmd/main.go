/*
Package main is the entry point of the StudioGate server.

It loads configuration, initializes logging, constructs the token signer,
database pool, media storage and chat manager, and runs the HTTP server
with graceful shutdown on SIGINT/SIGTERM.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studiogate/internal/app/chat"
	"studiogate/internal/app/db"
	"studiogate/internal/app/storage"
	"studiogate/internal/configs"
	"studiogate/internal/handler"
	"studiogate/internal/pkg/auth/roomtoken"
	"studiogate/internal/pkg/logx"
)

func main() {
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("token_signing_alg", cfg.TokenSigningAlg).
		Str("token_room_scope", string(cfg.TokenRoomScope)).
		Dur("token_ttl", cfg.TokenTTL).
		Msg("Configuration loaded")

	signer, err := roomtoken.NewSigner(cfg.SignerConfig())
	if err != nil {
		logx.Fatal(err, "Failed to construct token signer")
	}
	if !signer.Configured() {
		// The server still boots; issuance answers 500 until the operator
		// supplies key material. Loud here so it never goes unnoticed.
		logx.Error(roomtoken.ErrNotConfigured, "No signing key material configured; token issuance will fail")
	}

	pool, err := db.NewPool(cfg.DatabaseDSN)
	if err != nil {
		logx.Fatal(err, "Failed to initialize database")
	}
	defer pool.Close()

	media, err := storage.NewMediaStorage(storage.ServiceConfig{
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		logx.Fatal(err, "Failed to initialize media storage")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := chat.NewManager()

	deps := &handler.AppDeps{
		Config:  cfg,
		Manager: manager,
		Signer:  signer,
		Rooms:   db.NewRoomStore(pool),
		Media:   media,
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler.Router(deps),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("StudioGate server starting on http://localhost%s", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	<-ctx.Done()
	logx.Info("Received shutdown signal, starting graceful shutdown")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Fatal(err, "Server forced to shut down")
	}

	manager.Shutdown()

	logx.Info("Server stopped")
}
