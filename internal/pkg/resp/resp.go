/*
Package resp provides helpers for writing standardized HTTP JSON responses.

Successful responses carry the payload object directly; failures carry an
{"error": ..., "hint": ...} body whose status and content come from the errs
taxonomy.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"studiogate/internal/pkg/errs"
	"studiogate/internal/pkg/logx"
)

// ErrorBody is the wire shape of every failure response.
type ErrorBody struct {
	// Error is the stable machine-readable error string.
	Error string `json:"error"`

	// Hint is optional human guidance.
	Hint string `json:"hint,omitempty"`
}

// WriteJSON sets the response headers and sends the JSON payload with the
// given status.
func WriteJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	body, err := json.Marshal(payload)
	if err != nil {
		logx.Error(err, "Error encoding JSON response", "http_status", httpStatus)
		http.Error(w, "error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	w.Write(body)
}

// WriteSuccess sends the payload with HTTP 200 OK.
func WriteSuccess(w http.ResponseWriter, r *http.Request, payload any) {
	WriteJSON(w, r, http.StatusOK, payload)
}

// WriteError sends a failure response for the given CustomError.
func WriteError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.ErrInternal
	}

	WriteJSON(w, r, customErr.Status, ErrorBody{
		Error: customErr.Code,
		Hint:  customErr.Hint,
	})
}
