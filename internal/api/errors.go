package api

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedSchema is returned when the schema is neither http nor https
	ErrUnsupportedSchema = errors.New("schema must be http or https")

	// ErrInvalidAction is returned for an action value the endpoint does not accept
	ErrInvalidAction = errors.New("invalid action")

	// ErrRequestFailed is returned when kvmd answers with ok=false
	ErrRequestFailed = errors.New("kvmd request failed")
)

// StatusError is returned when kvmd answers with a non-2xx status
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}
