package shared

import (
	"fmt"
	"net/http"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed        = fmt.Errorf("authentication failed")
	ErrNotAuthenticated  = fmt.Errorf("not authenticated")
	ErrSessionExpired    = fmt.Errorf("session expired")
	ErrInvalidCredential = fmt.Errorf("invalid identity credential")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrNetwork            = fmt.Errorf("network error")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNotFound           = fmt.Errorf("not found")
	ErrTimeout            = fmt.Errorf("operation timed out")

	// Selection and input errors
	ErrNoSelection     = fmt.Errorf("no job selected")
	ErrCancelled       = fmt.Errorf("cancelled")
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// BackendError is returned for any non-2xx response other than 401.
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend error: status %d", e.StatusCode)
}

// Unwrap lets callers match any backend error with [ErrAPIRequest], and a 404 with [ErrNotFound].
func (e *BackendError) Unwrap() []error {
	if e.StatusCode == http.StatusNotFound {
		return []error{ErrAPIRequest, ErrNotFound}
	}
	return []error{ErrAPIRequest}
}
