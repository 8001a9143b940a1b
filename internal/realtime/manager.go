// Package realtime owns the long-lived connection to the switch state
// endpoint: connect, disconnect, reconnect with backoff, and status fan-out.
package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"switchstack/internal/domain"
	"switchstack/internal/infra"
	"switchstack/internal/observer"
)

type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusReconnecting Status = "reconnecting"
	StatusExhausted    Status = "exhausted"
)

// Event is delivered to status handlers. Attempt and Delay are set for
// StatusReconnecting; Err carries the cause of a close or failed dial.
type Event struct {
	Status  Status
	Attempt int
	Delay   time.Duration
	Err     error
}

type Config struct {
	URL              string
	HandshakeTimeout time.Duration
	Backoff          infra.BackoffConfig
}

type Option func(*Manager)

// WithAfterFunc replaces the timer used to schedule reconnects.
func WithAfterFunc(fn AfterFunc) Option {
	return func(m *Manager) {
		m.afterFunc = fn
	}
}

// Manager keeps at most one live connection. All exported methods are safe
// for concurrent use. Handlers run on the manager's goroutines and must not
// call Stop.
type Manager struct {
	cfg       Config
	dialer    Dialer
	logger    *slog.Logger
	afterFunc AfterFunc

	mu            sync.Mutex
	state         State
	conn          Conn
	gen           uint64
	attempt       int
	timer         Timer
	everConnected bool
	ctx           context.Context
	cancel        context.CancelFunc

	wg       sync.WaitGroup
	status   observer.Registry[Event]
	messages observer.Registry[[]byte]
}

func NewManager(cfg Config, dialer Dialer, logger *slog.Logger, opts ...Option) *Manager {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:       cfg,
		dialer:    dialer,
		logger:    logger,
		afterFunc: systemAfterFunc,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start binds the manager to ctx and connects. Cancelling ctx aborts any
// handshake in flight and suppresses further reconnects. A connection that
// is already open or being opened is kept; only later reconnects use ctx.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	prev := m.cancel
	next, cancel := context.WithCancel(ctx)
	m.ctx = next
	if state := m.state; state == StateOpen || state == StateConnecting {
		m.cancel = func() {
			cancel()
			prev()
		}
		m.mu.Unlock()
		m.logger.Debug("keeping current connection", "state", state)
		return
	}
	m.cancel = cancel
	m.gen++
	m.mu.Unlock()

	prev()
	m.Connect()
}

// Stop disconnects and waits for the connection goroutines to exit.
func (m *Manager) Stop() {
	m.Disconnect()

	m.mu.Lock()
	m.cancel()
	m.mu.Unlock()

	m.wg.Wait()
}

// Connect opens a connection unless one is open or being opened. It resets
// the reconnect attempt counter and cancels any pending reconnect timer.
func (m *Manager) Connect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateOpen || m.state == StateConnecting {
		return
	}

	m.stopTimerLocked()
	m.attempt = 0
	m.dialLocked()
}

// Disconnect closes the connection without scheduling a reconnect.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.gen++
	m.stopTimerLocked()
	conn := m.conn
	m.conn = nil
	wasOpen := m.state == StateOpen
	m.state = StateIdle
	m.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			m.logger.Debug("closing connection", "error", err)
		}
	}

	if wasOpen {
		m.logger.Info("connection closed by client")
		m.status.Notify(Event{Status: StatusDisconnected})
	}
}

// Send transmits data as-is. It returns domain.ErrNotConnected unless the
// connection is open.
func (m *Manager) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateOpen || m.conn == nil {
		return domain.ErrNotConnected
	}

	if err := m.conn.WriteMessage(data); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	return nil
}

func (m *Manager) OnStatus(h func(Event)) observer.ID {
	return m.status.Add(h)
}

func (m *Manager) RemoveStatusHandler(id observer.ID) bool {
	return m.status.Remove(id)
}

// OnMessage registers h for inbound messages. Messages are delivered one at a
// time in arrival order.
func (m *Manager) OnMessage(h func([]byte)) observer.ID {
	return m.messages.Add(h)
}

func (m *Manager) RemoveMessageHandler(id observer.ID) bool {
	return m.messages.Remove(id)
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) IsConnected() bool {
	return m.State() == StateOpen
}

// EverConnected reports whether a connection has been opened at least once.
func (m *Manager) EverConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.everConnected
}

func (m *Manager) dialLocked() {
	m.gen++
	gen := m.gen
	m.state = StateConnecting
	ctx := m.ctx

	m.wg.Add(1)
	go m.run(ctx, gen)
}

func (m *Manager) run(ctx context.Context, gen uint64) {
	defer m.wg.Done()

	dialCtx, cancel := context.WithTimeout(ctx, m.cfg.HandshakeTimeout)
	conn, err := m.dialer.Dial(dialCtx, m.cfg.URL)
	cancel()

	m.mu.Lock()
	if gen != m.gen || m.state != StateConnecting {
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		m.state = StateClosed
		events := m.scheduleReconnectLocked(err)
		m.mu.Unlock()

		m.logger.Warn("connecting to server failed", "url", m.cfg.URL, "error", err)
		m.emit(events)
		return
	}

	m.conn = conn
	m.state = StateOpen
	m.attempt = 0
	m.everConnected = true
	m.stopTimerLocked()
	m.mu.Unlock()

	m.logger.Info("connection established", "url", m.cfg.URL)
	m.status.Notify(Event{Status: StatusConnected})

	m.readLoop(gen, conn)
}

func (m *Manager) readLoop(gen uint64, conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			m.handleClosed(gen, conn, err)
			return
		}
		m.messages.Notify(data)
	}
}

func (m *Manager) handleClosed(gen uint64, conn Conn, cause error) {
	m.mu.Lock()
	if gen != m.gen || m.conn != conn {
		m.mu.Unlock()
		return
	}

	m.conn = nil
	m.state = StateClosed
	events := []Event{{Status: StatusDisconnected, Err: cause}}
	events = append(events, m.scheduleReconnectLocked(cause)...)
	m.mu.Unlock()

	conn.Close()
	m.logger.Warn("connection lost", "error", cause)
	m.emit(events)
}

// scheduleReconnectLocked arms the next reconnect or gives up.
func (m *Manager) scheduleReconnectLocked(cause error) []Event {
	if m.ctx.Err() != nil {
		m.state = StateIdle
		return nil
	}

	m.attempt++
	if m.cfg.Backoff.Exhausted(m.attempt) {
		m.state = StateIdle
		return []Event{{
			Status:  StatusExhausted,
			Attempt: m.attempt - 1,
			Err:     fmt.Errorf("%w: %w", domain.ErrReconnectExhausted, cause),
		}}
	}

	delay := m.cfg.Backoff.Delay(m.attempt)
	gen := m.gen
	m.timer = m.afterFunc(delay, func() { m.fireReconnect(gen) })

	return []Event{{
		Status:  StatusReconnecting,
		Attempt: m.attempt,
		Delay:   delay,
		Err:     cause,
	}}
}

func (m *Manager) fireReconnect(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.state != StateClosed {
		return
	}

	m.timer = nil
	m.logger.Info("reconnecting", "attempt", m.attempt)
	m.dialLocked()
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) emit(events []Event) {
	for _, ev := range events {
		if ev.Status == StatusExhausted {
			m.logger.Error("giving up on reconnect", "attempts", ev.Attempt)
		}
		m.status.Notify(ev)
	}
}
