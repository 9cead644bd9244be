/*
Package handler provides the HTTP handlers and routing for the StudioGate
server.

This file implements creator media: presigned upload/download of stream
thumbnails, and direct server-side upload of small overlay assets.
*/
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"studiogate/internal/app/storage"
	"studiogate/internal/pkg/auth/identity"
	"studiogate/internal/pkg/errs"
	"studiogate/internal/pkg/logx"
	"studiogate/internal/pkg/randx"
	"studiogate/internal/pkg/req"
	"studiogate/internal/pkg/resp"
)

const (
	// presignUploadExpiry bounds how long a presigned upload URL is usable.
	presignUploadExpiry = 10 * time.Minute

	// presignDownloadExpiry bounds presigned download URLs.
	presignDownloadExpiry = 15 * time.Minute

	// maxPresignFileSize caps direct browser uploads (10 MB).
	maxPresignFileSize int64 = 10 << 20
)

// allowedImageTypes are the MIME types accepted for creator media.
var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

// mediaKinds are the media categories stored under a room's key prefix.
var mediaKinds = map[string]bool{
	"thumbnail": true,
	"overlay":   true,
	"poster":    true,
}

// PresignUploadInput is the request body for a presigned upload.
type PresignUploadInput struct {
	Room     string `json:"room"`
	Kind     string `json:"kind"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// HandlePresignUpload vends a presigned URL for a direct browser upload of
// creator media. Requires an authenticated creator.
func HandlePresignUpload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := identity.FromContext(r)
		if claims == nil {
			resp.WriteError(w, r, errs.ErrUnauthorized)
			return
		}

		var input PresignUploadInput
		if customErr := req.BindJSON(r, &input); customErr != nil {
			resp.WriteError(w, r, customErr)
			return
		}

		if !randx.IsValidRoomCode(input.Room) {
			resp.WriteError(w, r, errs.ErrInvalidParams.WithHint("room must be a valid room code"))
			return
		}
		if !mediaKinds[input.Kind] {
			resp.WriteError(w, r, errs.ErrInvalidParams.WithHint("kind must be thumbnail, overlay or poster"))
			return
		}
		if !allowedImageTypes[input.MimeType] {
			resp.WriteError(w, r, errs.ErrInvalidParams.WithHint("mimeType must be an allowed image type"))
			return
		}
		if input.FileSize <= 0 || input.FileSize > maxPresignFileSize {
			resp.WriteError(w, r, errs.ErrInvalidParams.WithHint(
				"fileSize must be between 1 and %d bytes", maxPresignFileSize))
			return
		}

		key := mediaKey(input.Room, input.Kind, input.FileName)

		url, err := deps.Media.PresignUpload(r.Context(), key, input.MimeType, input.FileSize, presignUploadExpiry)
		if err != nil {
			logx.Error(err, "Presign upload failed", "key", key)
			resp.WriteError(w, r, errs.ErrInternal)
			return
		}

		resp.WriteSuccess(w, r, map[string]any{
			"uploadUrl": url,
			"key":       key,
			"expiresIn": int(presignUploadExpiry.Seconds()),
		})
	}
}

// HandlePresignDownload vends a presigned download URL for a media key.
func HandlePresignDownload(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("key")
		if !validMediaKey(key) {
			resp.WriteError(w, r, errs.ErrInvalidParams.WithHint("key must reference room media"))
			return
		}

		// Check existence up front so clients get a 404 instead of a
		// presigned URL that will fail later.
		if _, err := deps.Media.ObjectMetadata(r.Context(), key); err != nil {
			if errors.Is(err, storage.ErrObjectNotFound) {
				resp.WriteError(w, r, errs.ErrMediaNotFound)
				return
			}
			logx.Error(err, "Media metadata lookup failed", "key", key)
			resp.WriteError(w, r, errs.ErrInternal)
			return
		}

		url, err := deps.Media.PresignDownload(r.Context(), key, presignDownloadExpiry)
		if err != nil {
			logx.Error(err, "Presign download failed", "key", key)
			resp.WriteError(w, r, errs.ErrInternal)
			return
		}

		resp.WriteSuccess(w, r, map[string]any{
			"downloadUrl": url,
			"expiresIn":   int(presignDownloadExpiry.Seconds()),
		})
	}
}

// HandleUploadOverlay accepts a small overlay asset as multipart form data
// and stores it server-side. Large media must use the presigned path.
func HandleUploadOverlay(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := identity.FromContext(r)
		if claims == nil {
			resp.WriteError(w, r, errs.ErrUnauthorized)
			return
		}

		if customErr := req.SetupMultipart(w, r); customErr != nil {
			resp.WriteError(w, r, customErr)
			return
		}

		room := r.FormValue("room")
		if !randx.IsValidRoomCode(room) {
			resp.WriteError(w, r, errs.ErrInvalidParams.WithHint("room must be a valid room code"))
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			resp.WriteError(w, r, errs.ErrFormParseFailed.WithHint("a \"file\" part is required"))
			return
		}
		defer file.Close()

		mimeType := header.Header.Get("Content-Type")
		if !allowedImageTypes[mimeType] {
			resp.WriteError(w, r, errs.ErrInvalidParams.WithHint("file must be an allowed image type"))
			return
		}

		key := mediaKey(room, "overlay", header.Filename)

		if err := deps.Media.Upload(r.Context(), key, mimeType, file); err != nil {
			logx.Error(err, "Overlay upload failed", "key", key)
			resp.WriteError(w, r, errs.ErrInternal)
			return
		}

		resp.WriteSuccess(w, r, map[string]any{"key": key})
	}
}

// HandleDeleteMedia removes a media object. Requires an authenticated
// creator.
func HandleDeleteMedia(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := identity.FromContext(r)
		if claims == nil {
			resp.WriteError(w, r, errs.ErrUnauthorized)
			return
		}

		key := r.URL.Query().Get("key")
		if !validMediaKey(key) {
			resp.WriteError(w, r, errs.ErrInvalidParams.WithHint("key must reference room media"))
			return
		}

		if err := deps.Media.Delete(r.Context(), key); err != nil {
			logx.Error(err, "Media delete failed", "key", key, "owner", claims.Subject)
			resp.WriteError(w, r, errs.ErrInternal)
			return
		}

		resp.WriteSuccess(w, r, map[string]any{"deleted": key})
	}
}

// validMediaKey accepts only keys under the rooms/ prefix with no path
// traversal.
func validMediaKey(key string) bool {
	return strings.HasPrefix(key, "rooms/") && !strings.Contains(key, "..")
}

// mediaKey builds the object key for a media file, namespaced by room and
// kind, with a UUID to keep uploads from clobbering each other.
func mediaKey(room, kind, fileName string) string {
	base := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "file"
	}
	return fmt.Sprintf("rooms/%s/%s/%s-%s", room, kind, uuid.New().String(), base)
}
