/*
Package req provides helpers for HTTP request parsing and data binding.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"studiogate/internal/pkg/errs"
)

const (
	// MaxFormMemory is the memory budget (8 MB) for non-file multipart fields.
	MaxFormMemory int64 = 8 << 20

	// MaxUploadSize bounds the whole multipart request body (4 MB). Large
	// media goes through presigned direct upload instead.
	MaxUploadSize int64 = 4 << 20
)

// BindJSON decodes the JSON request body into dst. Unknown fields and
// trailing content are rejected so malformed requests fail loudly instead of
// being half-applied.
func BindJSON(r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "application/json") {
		return errs.ErrUnsupportedMediaType
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.ErrMalformedBody
	}

	if decoder.More() {
		return errs.ErrMalformedBody
	}

	return nil
}

// SetupMultipart bounds and parses a multipart form body.
func SetupMultipart(w http.ResponseWriter, r *http.Request) *errs.CustomError {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)

	if err := r.ParseMultipartForm(MaxFormMemory); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			return errs.ErrRequestTooLarge
		}
		return errs.ErrFormParseFailed
	}

	return nil
}
