package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected       = errors.New("not connected to server")
	ErrReconnectExhausted = errors.New("max reconnect attempts reached")

	ErrRoomNotFound    = errors.New("room not found")
	ErrSwitchNotFound  = errors.New("switch not found")
	ErrRoomExists      = errors.New("room already exists")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrDemoRoom        = errors.New("operation not available for demo rooms")
)

// AuthError is an authentication failure the user can correct and retry.
type AuthError struct {
	Op      string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return e.Op + " failed"
}

func (e *AuthError) Unwrap() error { return e.Err }

// RemoteCallError wraps a failed REST call. Message carries the server-provided
// text when the server sent one.
type RemoteCallError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteCallError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: server returned %d", e.Op, e.StatusCode)
	default:
		return e.Op + ": request failed"
	}
}

func (e *RemoteCallError) Unwrap() error { return e.Err }
