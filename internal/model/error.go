package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrorValidation = errors.New("validation failed")
var ErrorBotNotFound = errors.New("bot not found")
var ErrorAuth = errors.New("bot authentication failed")
var ErrorRemoteUnavailable = errors.New("remote unavailable")
var ErrorRemoteRejected = errors.New("remote rejected request")
var ErrorStoreUnavailable = errors.New("credential store unavailable")
var ErrorShuttingDown = errors.New("shutting down")

type ValidationError struct {
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrorValidation }

// AuthError marks a liveness probe the platform answered with a non-success status.
type AuthError struct {
	BotID BotID
	Cause error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("bot %s: authentication failed: %v", e.BotID, e.Cause)
}

func (e *AuthError) Is(target error) bool { return target == ErrorAuth }
func (e *AuthError) Unwrap() error        { return e.Cause }

// RemoteUnavailableError is a transport level failure: timeout, DNS, refused
// connection, non-200 HTTP answer or an undecodable body.
type RemoteUnavailableError struct {
	Op  string
	Err error
}

func (e *RemoteUnavailableError) Error() string {
	return fmt.Sprintf("%s: remote unavailable: %v", e.Op, e.Err)
}

func (e *RemoteUnavailableError) Is(target error) bool { return target == ErrorRemoteUnavailable }
func (e *RemoteUnavailableError) Unwrap() error        { return e.Err }

// RemoteRejectedError is a transport-successful answer whose embedded status is
// not the success sentinel. Detail holds the raw response body.
type RemoteRejectedError struct {
	Op            string          `json:"op"`
	Status        int             `json:"status"`
	StatusMessage string          `json:"statusMessage"`
	Detail        json.RawMessage `json:"detail,omitempty"`
}

func (e *RemoteRejectedError) Error() string {
	return fmt.Sprintf("%s: remote rejected request: status %d (%s)", e.Op, e.Status, e.StatusMessage)
}

func (e *RemoteRejectedError) Is(target error) bool { return target == ErrorRemoteRejected }

type StoreUnavailableError struct {
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("credential store unavailable: %v", e.Err)
}

func (e *StoreUnavailableError) Is(target error) bool { return target == ErrorStoreUnavailable }
func (e *StoreUnavailableError) Unwrap() error        { return e.Err }

// ErrorCode is the stable identifier used for err on the wire.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrorValidation):
		return "validation"
	case errors.Is(err, ErrorBotNotFound):
		return "not_found"
	case errors.Is(err, ErrorAuth):
		return "auth"
	case errors.Is(err, ErrorRemoteRejected):
		return "remote_rejected"
	case errors.Is(err, ErrorRemoteUnavailable):
		return "remote_unavailable"
	case errors.Is(err, ErrorStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ErrorShuttingDown):
		return "shutting_down"
	default:
		return "internal"
	}
}

// NewErrorPayload describes err for clients; rejected requests carry the
// platform's answer as detail.
func NewErrorPayload(err error) ErrorPayload {
	payload := ErrorPayload{Code: ErrorCode(err), Message: err.Error()}
	var rejected *RemoteRejectedError
	if errors.As(err, &rejected) {
		payload.Detail = rejected
	}
	return payload
}
