/*
Package errs defines the application error taxonomy.

This file catalogs the predefined errors. The Code strings are part of the
wire contract with clients and must not change once published.
*/
package errs

import "net/http"

// Request handling errors.
var (
	// ErrUnsupportedMediaType indicates the request Content-Type is not JSON.
	ErrUnsupportedMediaType = &CustomError{
		Status: http.StatusUnsupportedMediaType,
		Code:   "unsupported media type",
		Hint:   "send the request body as application/json",
	}

	// ErrMalformedBody indicates the request body is not valid JSON.
	ErrMalformedBody = &CustomError{
		Status: http.StatusBadRequest,
		Code:   "malformed request body",
		Hint:   "the body must be a single well-formed JSON object",
	}

	// ErrInvalidParams indicates request parameter validation failed.
	ErrInvalidParams = &CustomError{
		Status: http.StatusBadRequest,
		Code:   "invalid parameters",
	}

	// ErrRateLimited indicates the caller exceeded a request rate limit.
	ErrRateLimited = &CustomError{
		Status: http.StatusTooManyRequests,
		Code:   "rate limit exceeded",
		Hint:   "slow down and retry later",
	}

	// ErrUnauthorized indicates a missing or invalid identity credential on
	// an operation that requires one.
	ErrUnauthorized = &CustomError{
		Status: http.StatusUnauthorized,
		Code:   "authentication required",
	}

	// ErrRequestTooLarge indicates the request body exceeded the size limit.
	ErrRequestTooLarge = &CustomError{
		Status: http.StatusRequestEntityTooLarge,
		Code:   "request entity too large",
	}

	// ErrFormParseFailed indicates multipart form data could not be parsed.
	ErrFormParseFailed = &CustomError{
		Status: http.StatusBadRequest,
		Code:   "malformed form data",
	}
)

// Token issuance errors.
var (
	// ErrRoomRequired indicates the issuance request carried no room name.
	ErrRoomRequired = &CustomError{
		Status: http.StatusBadRequest,
		Code:   "room is required",
		Hint:   "include a non-empty \"room\" string in the request body",
	}

	// ErrRoomEmpty indicates the requested room was empty after trimming.
	ErrRoomEmpty = &CustomError{
		Status: http.StatusBadRequest,
		Code:   "room cannot be empty",
		Hint:   "the room name must contain at least one non-whitespace character",
	}

	// ErrSigningNotConfigured indicates the deployment has no signing key
	// material. This is operator misconfiguration, never client input.
	ErrSigningNotConfigured = &CustomError{
		Status: http.StatusInternalServerError,
		Code:   "signing not configured",
		Hint:   "the server is missing its token signing secret; contact the operator",
	}

	// ErrTokenIssuance indicates the signing library failed. The raw cause
	// is logged server-side and never forwarded.
	ErrTokenIssuance = &CustomError{
		Status: http.StatusInternalServerError,
		Code:   "token issuance failed",
	}

	// ErrTokenInvalid indicates a presented room token failed validation.
	ErrTokenInvalid = &CustomError{
		Status: http.StatusUnauthorized,
		Code:   "invalid room token",
	}

	// ErrTokenWrongRoom indicates a valid room token that does not cover the
	// requested room.
	ErrTokenWrongRoom = &CustomError{
		Status: http.StatusForbidden,
		Code:   "token does not grant access to this room",
	}
)

// Room directory and chat errors.
var (
	// ErrRoomNotFound indicates the requested room code does not exist.
	ErrRoomNotFound = &CustomError{
		Status: http.StatusNotFound,
		Code:   "room not found",
	}

	// ErrRoomCodeExists indicates a room code collision on creation.
	ErrRoomCodeExists = &CustomError{
		Status: http.StatusConflict,
		Code:   "room code already exists",
	}

	// ErrMediaNotFound indicates the referenced media object does not exist.
	ErrMediaNotFound = &CustomError{
		Status: http.StatusNotFound,
		Code:   "media not found",
	}

	// ErrRoomFull indicates the chat room reached its participant capacity.
	ErrRoomFull = &CustomError{
		Status: http.StatusConflict,
		Code:   "room is full",
	}

	// ErrMessageTooLong indicates a chat message exceeded the length limit.
	ErrMessageTooLong = &CustomError{
		Status: http.StatusBadRequest,
		Code:   "message too long",
	}
)

// ErrInternal is the generic unclassified server error.
var ErrInternal = &CustomError{
	Status: http.StatusInternalServerError,
	Code:   "internal server error",
}
