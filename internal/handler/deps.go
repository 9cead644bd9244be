package handler

import (
	"time"

	"studiogate/internal/app/chat"
	"studiogate/internal/app/db"
	"studiogate/internal/app/storage"
	"studiogate/internal/configs"
	"studiogate/internal/pkg/auth/roomtoken"
)

// AppDeps bundles the constructed dependencies injected into every handler.
// Nothing here is a package-level singleton; tests substitute fakes freely.
type AppDeps struct {
	Config  *configs.AppConfig
	Manager *chat.Manager
	Signer  *roomtoken.Signer
	Rooms   *db.RoomStore
	Media   storage.MediaStorage

	// Now supplies the clock for token minting; nil means time.Now. Tests
	// inject fixed clocks here.
	Now func() time.Time
}

// now returns the current time from the injected clock.
func (d *AppDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
