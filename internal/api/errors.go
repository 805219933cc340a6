package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	MsgSessionExpired = "Session expired. Please login again."
	MsgInternalError  = "Something went wrong. Please try again or contact support"
)

// Kind classifies a failed call.
type Kind int

const (
	KindRequestFailed Kind = iota
	KindSessionExpired
	KindNetworkFailure
)

func (k Kind) String() string {
	switch k {
	case KindSessionExpired:
		return "session expired"
	case KindNetworkFailure:
		return "network failure"
	default:
		return "request failed"
	}
}

// Sentinels for [errors.Is] against an [*Error].
var (
	ErrSessionExpired = errors.New("session expired")
	ErrRequestFailed  = errors.New("request failed")
	ErrNetworkFailure = errors.New("network failure")
)

// Error is returned by [Client.Do] for every unsuccessful call.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrSessionExpired:
		return e.Kind == KindSessionExpired
	case ErrRequestFailed:
		return e.Kind == KindRequestFailed
	case ErrNetworkFailure:
		return e.Kind == KindNetworkFailure
	}
	return false
}

// AsError extracts an [*Error] from err.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// errorPayload is the API's error body.
type errorPayload struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

func requestFailed(status int, body []byte) *Error {
	e := &Error{Kind: KindRequestFailed, StatusCode: status, Message: MsgInternalError}

	var p errorPayload
	if err := json.Unmarshal(body, &p); err == nil && p.Message != "" {
		e.Message = p.Message
	}
	return e
}

// ServerMessage returns the message the API sent with a rejected request.
// It reports false for session expiry, network failures and errors not produced by the client.
func ServerMessage(err error) (msg string, status int, ok bool) {
	apiErr, ok := AsError(err)
	if !ok || apiErr.Kind != KindRequestFailed {
		return "", 0, false
	}
	return apiErr.Message, apiErr.StatusCode, true
}
