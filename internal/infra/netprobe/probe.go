// Package netprobe reports device connectivity by periodically dialing the
// server. The connection type comes from the first up, non-loopback
// interface.
package netprobe

import (
	"context"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"switchstack/internal/reachability"
)

const (
	TypeWiFi     = "wifi"
	TypeEthernet = "ethernet"
	TypeCellular = "cellular"
	TypeUnknown  = "unknown"
	TypeNone     = "none"
)

type Config struct {
	Addr     string
	Interval time.Duration
	Timeout  time.Duration
}

// Probe implements reachability.Source.
type Probe struct {
	cfg        Config
	logger     *slog.Logger
	dial       func(ctx context.Context, network, addr string) (net.Conn, error)
	interfaces func() ([]net.Interface, error)

	mu       sync.Mutex
	handlers []func(reachability.Status)
	last     *reachability.Status
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(cfg Config, logger *slog.Logger) *Probe {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}

	d := &net.Dialer{}
	return &Probe{
		cfg:        cfg,
		logger:     logger,
		dial:       d.DialContext,
		interfaces: net.Interfaces,
	}
}

func (p *Probe) GetStatus(ctx context.Context) (reachability.Status, error) {
	st := p.check(ctx)

	p.mu.Lock()
	p.last = &st
	p.mu.Unlock()

	return st, nil
}

// OnStatusChange registers handler and starts polling on first use.
// Handlers are called only when the reading differs from the previous one.
func (p *Probe) OnStatusChange(handler func(reachability.Status)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.handlers = append(p.handlers, handler)
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
}

// RemoveAllListeners drops every handler and stops polling.
func (p *Probe) RemoveAllListeners() {
	p.mu.Lock()
	p.handlers = nil
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (p *Probe) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Probe) poll(ctx context.Context) {
	st := p.check(ctx)
	if ctx.Err() != nil {
		return
	}

	p.mu.Lock()
	changed := p.last == nil || *p.last != st
	p.last = &st
	handlers := append(([]func(reachability.Status))(nil), p.handlers...)
	p.mu.Unlock()

	if !changed {
		return
	}

	p.logger.Debug("connectivity changed", "connected", st.Connected, "type", st.ConnectionType)
	for _, h := range handlers {
		h(st)
	}
}

func (p *Probe) check(ctx context.Context) reachability.Status {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	conn, err := p.dial(ctx, "tcp", p.cfg.Addr)
	if err != nil {
		p.logger.Debug("probe failed", "addr", p.cfg.Addr, "error", err)
		return reachability.Status{Connected: false, ConnectionType: TypeNone}
	}
	conn.Close()

	return reachability.Status{Connected: true, ConnectionType: p.connectionType()}
}

func (p *Probe) connectionType() string {
	ifaces, err := p.interfaces()
	if err != nil {
		return TypeUnknown
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		return ClassifyInterface(iface.Name)
	}
	return TypeUnknown
}

// ClassifyInterface maps an interface name to a connection type.
func ClassifyInterface(name string) string {
	switch {
	case strings.HasPrefix(name, "wl"):
		return TypeWiFi
	case strings.HasPrefix(name, "en"), strings.HasPrefix(name, "eth"):
		return TypeEthernet
	case strings.HasPrefix(name, "ww"), strings.HasPrefix(name, "rmnet"):
		return TypeCellular
	default:
		return TypeUnknown
	}
}
