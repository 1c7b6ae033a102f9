package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrDecodeFailed is wrapped into the *APIError returned when a
	// response body is not valid JSON.
	ErrDecodeFailed = errors.New("response decode failed")

	// ErrInvalidConfig is returned by New when the configuration is unusable.
	ErrInvalidConfig = errors.New("invalid client configuration")
)

// APIError describes one failed page fetch with enough context to log and
// classify it. StatusCode is zero for failures that never produced a
// response.
type APIError struct {
	Page       int
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("PDD %s error (page %d, status %d): %s: %v",
			e.Class, e.Page, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("PDD %s error (page %d, status %d): %s",
		e.Class, e.Page, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}
