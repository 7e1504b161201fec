package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork indicates the request never completed.
	ErrNetwork = errors.New("request did not complete")
	// ErrParse indicates a success response carried a body that is not valid JSON.
	ErrParse = errors.New("response body is not valid JSON")
	// ErrValidation indicates a locally rejected input before any network call.
	ErrValidation = errors.New("invalid input")
)

// Error is a structured failure reported by the backend.
// The HTTP status is authoritative; the body only supplies the message.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
}

// IsUnauthenticated reports whether the error means the session is not
// signed in. This is a valid application state, not a failure.
func IsUnauthenticated(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
	}
	return false
}
