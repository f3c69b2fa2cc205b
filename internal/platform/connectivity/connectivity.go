// Package connectivity tracks whether the network is believed reachable.
//
// The signal is queried without blocking: a background loop probes the
// target and callers read the last observed result, the way a browser reads
// navigator.onLine.
package connectivity

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"
)

// Dial attempts one connection to the target.
type Dial func(ctx context.Context, target string) error

// Monitor probes a target periodically and caches the outcome.
type Monitor struct {
	target   string
	interval time.Duration
	dial     Dial
	online   atomic.Bool
}

// NewMonitor creates a monitor for target (host:port). A nil dial uses a TCP
// dial with a short timeout. The monitor reports online until the first probe
// completes.
func NewMonitor(target string, interval time.Duration, dial Dial) (*Monitor, error) {
	if target == "" {
		return nil, fmt.Errorf("probe target is required")
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if dial == nil {
		dial = func(ctx context.Context, target string) error {
			d := net.Dialer{Timeout: 3 * time.Second}
			conn, err := d.DialContext(ctx, "tcp", target)
			if err != nil {
				return err
			}
			return conn.Close()
		}
	}

	m := &Monitor{target: target, interval: interval, dial: dial}
	m.online.Store(true)
	return m, nil
}

// Online reports the last observed connectivity. It never blocks.
func (m *Monitor) Online() bool {
	if m == nil {
		return false
	}
	return m.online.Load()
}

// Run probes until the context ends. The first probe runs immediately.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	err := m.dial(ctx, m.target)
	m.online.Store(err == nil)
}
