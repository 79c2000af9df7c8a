package client

import (
	"fmt"
	"strings"
)

// NetworkError wraps a transport-level failure: the request never produced
// an HTTP response (connection refused, DNS failure, timeout).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError reports a 401 response. By the time the caller sees it, the
// gateway has already cleared all stored credentials.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// ValidationError reports a non-401 4xx response carrying a server-side
// validation or domain message.
type ValidationError struct {
	Status  int
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("request rejected (%d): %s", e.Status, e.Message)
}

// MatchField returns the first of the given field names that appears in the
// message, so forms can attach the error to the offending input. Empty when
// no field matches; the caller then shows a general notification.
func (e *ValidationError) MatchField(fields ...string) string {
	msg := strings.ToLower(e.Message)
	for _, field := range fields {
		if strings.Contains(msg, strings.ToLower(field)) {
			return field
		}
	}
	return ""
}

// ServerError reports a 5xx response.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}
