package rest

import (
	"fmt"
	"net/http"
)

// APIError is a non-2xx response. Body holds the decoded JSON failure body,
// or {"message": <text>} when the body was not JSON.
type APIError struct {
	Method string
	URL    string
	Status int
	Body   map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rest: %s %s: %d %s", e.Method, e.URL, e.Status, http.StatusText(e.Status))
}

// StatusCode reports the HTTP status.
func (e *APIError) StatusCode() int { return e.Status }

// ErrorBody exposes the structured body for normalisation.
func (e *APIError) ErrorBody() map[string]any { return e.Body }

// TransportError is a failure to complete the exchange at all.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rest: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
