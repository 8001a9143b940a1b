package application

import (
	"context"
	"strings"
)

// Notifier surfaces a user-visible, non-fatal message.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopNotifier struct{}

func (n *NoopNotifier) Notify(_ context.Context, _ string) error {
	return nil
}

// Connection and network notifications.
const (
	MsgServerDisconnected = "Server disconnected"
	MsgReconnecting       = "Reconnecting to server attempt: "
	MsgReconnectExhausted = "Max reconnect attempts reached"
	MsgOffline            = "You are offline. Some features may be unavailable"
	MsgBackOnline         = "You are back online!"
	MsgToggleRejected     = "Error toggling switch: "
)

type Severity int

const (
	SeverityNormal Severity = iota
	// SeverityQuiet marks transient states that usually resolve on their own.
	SeverityQuiet
	// SeverityUrgent marks states that need the user to act.
	SeverityUrgent
)

func (s Severity) String() string {
	switch s {
	case SeverityQuiet:
		return "quiet"
	case SeverityUrgent:
		return "urgent"
	default:
		return "normal"
	}
}

// SeverityOf classifies a notification message.
func SeverityOf(message string) Severity {
	switch {
	case message == MsgReconnectExhausted, strings.HasPrefix(message, MsgToggleRejected):
		return SeverityUrgent
	case message == MsgServerDisconnected, strings.HasPrefix(message, MsgReconnecting):
		return SeverityQuiet
	default:
		return SeverityNormal
	}
}
