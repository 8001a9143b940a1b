// Package websocket adapts gorilla/websocket to the realtime Conn and
// Dialer interfaces.
package websocket

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"switchstack/internal/realtime"
)

const (
	defaultWriteTimeout = 10 * time.Second
	closeGracePeriod    = time.Second
)

type Dialer struct {
	dialer       websocket.Dialer
	writeTimeout time.Duration
	logger       *slog.Logger
}

// NewDialer returns a Dialer that presents the cookies in jar during the
// handshake.
func NewDialer(jar http.CookieJar, handshakeTimeout time.Duration, logger *slog.Logger) *Dialer {
	return &Dialer{
		dialer: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
			Jar:              jar,
		},
		writeTimeout: defaultWriteTimeout,
		logger:       logger,
	}
}

func (d *Dialer) Dial(ctx context.Context, url string) (realtime.Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dialing websocket: %w", err)
	}

	d.logger.Debug("websocket connected", "url", url)
	return &Conn{ws: conn, writeTimeout: d.writeTimeout}, nil
}

// Conn is safe for one reader and many writers.
type Conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration

	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// ReadMessage returns the next text or binary payload. Control frames are
// handled by gorilla.
func (c *Conn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Conn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame and releases the socket. A blocked ReadMessage
// returns an error once Close is called.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
		c.mu.Unlock()

		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
