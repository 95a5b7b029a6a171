package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rmedeiros/payrouter/internal/domain/payment"
	"github.com/rmedeiros/payrouter/internal/providers"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// optimisticResponseTimeMs is assumed for a provider that has never
	// been probed. Unprobed must not mean excluded.
	optimisticResponseTimeMs = 100
	// worstCaseResponseTimeMs is used for a failing provider with no
	// previously observed response time.
	worstCaseResponseTimeMs = 2000
)

// Snapshot is the cached health view of one provider. Replaced
// atomically on every probe, never partially updated.
type Snapshot struct {
	Failing           bool
	MinResponseTimeMs int
	ObservedAt        time.Time
}

// Source is the read side of the monitor, consumed by the dispatcher.
type Source interface {
	Snapshot(provider payment.Provider) Snapshot
}

// Prober is the probe capability the monitor needs from a provider
// client.
type Prober interface {
	Name() payment.Provider
	CheckHealth(ctx context.Context) (*providers.HealthStatus, error)
}

// Monitor probes each provider on its own loop, never faster than the
// configured interval. Probe results are advisory routing hints local to
// this instance, so there is no cross-instance coordination.
type Monitor struct {
	probers      []Prober
	interval     time.Duration
	probeTimeout time.Duration
	logger       zerolog.Logger
	observer     ProbeObserver

	snapshots map[payment.Provider]*atomic.Pointer[Snapshot]
}

// ProbeObserver receives probe outcomes for metrics.
type ProbeObserver interface {
	ObserveProbe(provider payment.Provider, failing bool, minResponseTimeMs int)
}

// NewMonitor builds a monitor for the given probers. interval is the
// minimum spacing between probes per provider; exceeding the provider's
// cap is an integration error, so the ticker is the only probe trigger.
func NewMonitor(probers []Prober, interval, probeTimeout time.Duration, logger zerolog.Logger, observer ProbeObserver) *Monitor {
	m := &Monitor{
		probers:      probers,
		interval:     interval,
		probeTimeout: probeTimeout,
		logger:       logger,
		observer:     observer,
		snapshots:    make(map[payment.Provider]*atomic.Pointer[Snapshot]),
	}
	for _, p := range probers {
		m.snapshots[p.Name()] = &atomic.Pointer[Snapshot]{}
	}
	return m
}

// Run probes until ctx is cancelled. Each provider gets its own
// goroutine, so a slow probe on one never delays the other, and at most
// one probe per provider is ever in flight.
func (m *Monitor) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)
	for _, p := range m.probers {
		g.Go(func() error {
			return m.probeLoop(gCtx, p)
		})
	}
	return g.Wait()
}

func (m *Monitor) probeLoop(ctx context.Context, p Prober) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probe(ctx, p)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.probe(ctx, p)
		}
	}
}

func (m *Monitor) probe(ctx context.Context, p Prober) {
	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	name := p.Name()
	status, err := p.CheckHealth(probeCtx)
	if err != nil {
		// Treat unknown as failing, but keep the last observed response
		// time so ranking still has a latency signal.
		responseTime := worstCaseResponseTimeMs
		if prev := m.snapshots[name].Load(); prev != nil && prev.MinResponseTimeMs > 0 {
			responseTime = prev.MinResponseTimeMs
		}
		m.store(name, Snapshot{Failing: true, MinResponseTimeMs: responseTime, ObservedAt: time.Now().UTC()})
		m.logger.Warn().Err(err).Str("provider", string(name)).Msg("health probe failed")
		return
	}

	m.store(name, Snapshot{
		Failing:           status.Failing,
		MinResponseTimeMs: status.MinResponseTime,
		ObservedAt:        time.Now().UTC(),
	})
	m.logger.Debug().
		Str("provider", string(name)).
		Bool("failing", status.Failing).
		Int("min_response_time_ms", status.MinResponseTime).
		Msg("health probe ok")
}

func (m *Monitor) store(name payment.Provider, s Snapshot) {
	m.snapshots[name].Store(&s)
	if m.observer != nil {
		m.observer.ObserveProbe(name, s.Failing, s.MinResponseTimeMs)
	}
}

// Snapshot returns the latest cached snapshot without blocking. A stale
// snapshot is served as-is; a provider never probed is assumed healthy
// with a conservative response time.
func (m *Monitor) Snapshot(provider payment.Provider) Snapshot {
	ptr, ok := m.snapshots[provider]
	if !ok {
		return Snapshot{MinResponseTimeMs: optimisticResponseTimeMs}
	}
	s := ptr.Load()
	if s == nil {
		return Snapshot{MinResponseTimeMs: optimisticResponseTimeMs}
	}
	return *s
}
