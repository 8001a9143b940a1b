package realtime

import (
	"context"
	"time"
)

// Conn is a message-oriented bidirectional connection. ReadMessage must
// return an error once Close has been called.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens a Conn to url. It must honour ctx for the handshake.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Timer is the part of *time.Timer the manager needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run after d, like time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

func systemAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
