// Package reachability turns device connectivity signals into connect and
// disconnect decisions for the real-time connection.
package reachability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"switchstack/internal/observer"
)

// Status is a connectivity reading. ConnectionType is opaque.
type Status struct {
	Connected      bool
	ConnectionType string
}

// Source reports device connectivity.
type Source interface {
	GetStatus(ctx context.Context) (Status, error)
	OnStatusChange(handler func(Status))
	RemoveAllListeners()
}

// Connector is the part of the connection manager the monitor drives.
type Connector interface {
	Connect()
	Disconnect()
	EverConnected() bool
}

// Change is published to observers when the online flag flips.
type Change struct {
	Online         bool
	ConnectionType string
}

type Monitor struct {
	source    Source
	connector Connector
	logger    *slog.Logger

	mu       sync.Mutex
	online   bool
	connType string
	started  bool

	observers observer.Registry[Change]
}

func NewMonitor(source Source, connector Connector, logger *slog.Logger) *Monitor {
	return &Monitor{
		source:    source,
		connector: connector,
		logger:    logger,
		online:    true,
	}
}

// Start reads the initial status without acting on it and then follows changes.
func (m *Monitor) Start(ctx context.Context) error {
	st, err := m.source.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("reading network status: %w", err)
	}

	m.mu.Lock()
	m.online = st.Connected
	m.connType = st.ConnectionType
	alreadyStarted := m.started
	m.started = true
	m.mu.Unlock()

	m.logger.Info("network status", "online", st.Connected, "type", st.ConnectionType)

	if !alreadyStarted {
		m.source.OnStatusChange(m.handle)
	}
	return nil
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	m.started = false
	m.mu.Unlock()

	m.source.RemoveAllListeners()
}

func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *Monitor) ConnectionType() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connType
}

func (m *Monitor) Subscribe(h func(Change)) observer.ID {
	return m.observers.Add(h)
}

func (m *Monitor) Unsubscribe(id observer.ID) bool {
	return m.observers.Remove(id)
}

// handle acts only when the online flag changes value.
func (m *Monitor) handle(st Status) {
	m.mu.Lock()
	changed := st.Connected != m.online
	m.online = st.Connected
	m.connType = st.ConnectionType
	m.mu.Unlock()

	if !changed {
		return
	}

	if st.Connected {
		m.logger.Info("network restored", "type", st.ConnectionType)
		if m.connector.EverConnected() {
			m.connector.Connect()
		}
	} else {
		m.logger.Warn("network lost")
		m.connector.Disconnect()
	}

	m.observers.Notify(Change{Online: st.Connected, ConnectionType: st.ConnectionType})
}
