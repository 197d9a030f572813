// Package connectivity observes server reachability and link quality for
// the sync engine. Consumers subscribe to pushed state transitions instead
// of polling.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/logging"
)

// Quality is a best-effort classification of the link. Slow is informational
// only: it never blocks uploads, but the scheduler may throttle concurrency.
type Quality string

const (
	QualityUnknown Quality = "unknown"
	QualityGood    Quality = "good"
	QualitySlow    Quality = "slow"
)

// State is the current reachability signal.
type State struct {
	Online  bool
	Quality Quality
}

// Pinger probes the server. The API client satisfies this.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor probes reachability on an interval and pushes state *transitions*
// to subscribers. Steady state produces no events, so a subscriber channel
// only ever carries changes.
type Monitor struct {
	pinger        Pinger
	interval      time.Duration
	probeTimeout  time.Duration
	slowThreshold time.Duration
	logger        logging.Logger

	mu    sync.Mutex
	state State
	subs  []chan State
}

// NewMonitor builds a monitor. slowThreshold is the round-trip latency above
// which an online link is classified slow; zero disables the heuristic
// (quality stays good while online).
func NewMonitor(p Pinger, interval, probeTimeout, slowThreshold time.Duration, logger logging.Logger) *Monitor {
	return &Monitor{
		pinger:        p,
		interval:      interval,
		probeTimeout:  probeTimeout,
		slowThreshold: slowThreshold,
		logger:        logger.With("module", "connectivity"),
		state:         State{Online: false, Quality: QualityUnknown},
	}
}

// State returns the last observed state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe returns a channel of state transitions. The channel is
// conflated: if the consumer lags, it sees only the latest state, never a
// stale intermediate one.
func (m *Monitor) Subscribe() <-chan State {
	ch := make(chan State, 1)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// Run probes until ctx is cancelled. The first probe fires immediately so
// startup does not wait a full interval to discover connectivity.
func (m *Monitor) Run(ctx context.Context) {
	m.probe(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	start := time.Now()
	err := m.pinger.Ping(probeCtx)
	latency := time.Since(start)
	cancel()

	next := State{Online: err == nil, Quality: QualityUnknown}
	if err == nil {
		next.Quality = QualityGood
		if m.slowThreshold > 0 && latency > m.slowThreshold {
			next.Quality = QualitySlow
		}
	}

	m.setState(ctx, next)
}

func (m *Monitor) setState(ctx context.Context, next State) {
	m.mu.Lock()
	if next == m.state {
		m.mu.Unlock()
		return
	}
	m.state = next
	subs := make([]chan State, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	m.logger.Info(ctx, "connectivity changed", "online", next.Online, "quality", next.Quality)

	for _, ch := range subs {
		// conflate: replace a pending unread state with the newest one
		select {
		case ch <- next:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- next:
			default:
			}
		}
	}
}
