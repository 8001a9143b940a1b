package netprobe

import (
	"context"
	"net"
)

// SetDial replaces the dialer used for probing.
func (p *Probe) SetDial(fn func(ctx context.Context, network, addr string) (net.Conn, error)) {
	p.dial = fn
}
