/*
Package errs defines the application error taxonomy.

Every failure surfaced to a client is a CustomError carrying an HTTP status,
a stable machine-readable error string, and an optional human hint. Client
input errors (4xx) name exactly what was wrong with the request; server-side
errors (5xx) stay generic on the wire, with full detail logged server-side
only.
*/
package errs

import "fmt"

// CustomError is the error type used throughout the application.
type CustomError struct {
	// Status is the HTTP status code this error maps to.
	Status int

	// Code is the stable machine-readable error string sent to clients as
	// the "error" field.
	Code string

	// Hint is optional human guidance sent to clients as the "hint" field.
	Hint string
}

// Error implements the standard error interface.
func (e *CustomError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s (%s)", e.Status, e.Code, e.Hint)
}

// WithHint returns a copy of the error with its hint replaced. Printf-style
// arguments are applied to the format string.
func (e *CustomError) WithHint(format string, args ...any) *CustomError {
	clone := *e
	clone.Hint = fmt.Sprintf(format, args...)
	return &clone
}
