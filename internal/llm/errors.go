package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyBody is returned when a successful response carries no body.
	ErrEmptyBody = errors.New("response body is null")
	// ErrNoMessages is returned for a request without any messages.
	ErrNoMessages = errors.New("request has no messages")
)

// unknownAPIError is used when an error response has no readable message.
const unknownAPIError = "unknown API error"

// APIError is a non-2xx response from the completions endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// TransportError is a connection-level failure: dial, reset, read, or abort.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type errorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type,omitempty"`
		Code    any    `json:"code,omitempty"`
	} `json:"error"`
}

// parseAPIError builds an APIError from an error response body.
func parseAPIError(status int, body []byte) *APIError {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil || strings.TrimSpace(env.Error.Message) == "" {
		return &APIError{StatusCode: status, Message: unknownAPIError}
	}
	return &APIError{StatusCode: status, Message: env.Error.Message}
}

// IsAPIError reports whether err is an APIError with the given status code.
func IsAPIError(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
