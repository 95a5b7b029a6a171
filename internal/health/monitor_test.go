package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rmedeiros/payrouter/internal/domain/payment"
	"github.com/rmedeiros/payrouter/internal/providers"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber struct {
	name   payment.Provider
	status providers.HealthStatus
	err    error
	calls  atomic.Int64
}

func (f *fakeProber) Name() payment.Provider { return f.name }

func (f *fakeProber) CheckHealth(ctx context.Context) (*providers.HealthStatus, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	status := f.status
	return &status, nil
}

func TestMonitor_Snapshot_OptimisticDefault(t *testing.T) {
	prober := &fakeProber{name: payment.ProviderPrimary}
	m := NewMonitor([]Prober{prober}, time.Second, 100*time.Millisecond, zerolog.Nop(), nil)

	// Never probed: assumed healthy, conservative response time.
	s := m.Snapshot(payment.ProviderPrimary)
	assert.False(t, s.Failing)
	assert.Equal(t, optimisticResponseTimeMs, s.MinResponseTimeMs)
	assert.True(t, s.ObservedAt.IsZero())
}

func TestMonitor_ProbeUpdatesSnapshot(t *testing.T) {
	prober := &fakeProber{
		name:   payment.ProviderPrimary,
		status: providers.HealthStatus{Failing: false, MinResponseTime: 42},
	}
	m := NewMonitor([]Prober{prober}, time.Second, 100*time.Millisecond, zerolog.Nop(), nil)

	m.probe(context.Background(), prober)

	s := m.Snapshot(payment.ProviderPrimary)
	assert.False(t, s.Failing)
	assert.Equal(t, 42, s.MinResponseTimeMs)
	assert.False(t, s.ObservedAt.IsZero())
}

func TestMonitor_ProbeFailureMarksFailingKeepsResponseTime(t *testing.T) {
	prober := &fakeProber{
		name:   payment.ProviderSecondary,
		status: providers.HealthStatus{Failing: false, MinResponseTime: 80},
	}
	m := NewMonitor([]Prober{prober}, time.Second, 100*time.Millisecond, zerolog.Nop(), nil)

	m.probe(context.Background(), prober)
	require.Equal(t, 80, m.Snapshot(payment.ProviderSecondary).MinResponseTimeMs)

	prober.err = errors.New("connection refused")
	m.probe(context.Background(), prober)

	s := m.Snapshot(payment.ProviderSecondary)
	assert.True(t, s.Failing)
	assert.Equal(t, 80, s.MinResponseTimeMs, "last known response time survives a failed probe")
}

func TestMonitor_ProbeFailureWithoutHistoryUsesWorstCase(t *testing.T) {
	prober := &fakeProber{name: payment.ProviderPrimary, err: errors.New("timeout")}
	m := NewMonitor([]Prober{prober}, time.Second, 100*time.Millisecond, zerolog.Nop(), nil)

	m.probe(context.Background(), prober)

	s := m.Snapshot(payment.ProviderPrimary)
	assert.True(t, s.Failing)
	assert.Equal(t, worstCaseResponseTimeMs, s.MinResponseTimeMs)
}

func TestMonitor_Run_RespectsMinimumInterval(t *testing.T) {
	prober := &fakeProber{
		name:   payment.ProviderPrimary,
		status: providers.HealthStatus{MinResponseTime: 10},
	}
	m := NewMonitor([]Prober{prober}, 50*time.Millisecond, 20*time.Millisecond, zerolog.Nop(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 180*time.Millisecond)
	defer cancel()
	require.NoError(t, m.Run(ctx))

	// One immediate probe plus at most three ticks in 180ms at 50ms spacing.
	calls := prober.calls.Load()
	assert.GreaterOrEqual(t, calls, int64(2))
	assert.LessOrEqual(t, calls, int64(4))
}

func TestMonitor_Run_ProbesProvidersIndependently(t *testing.T) {
	slow := &fakeProber{name: payment.ProviderPrimary, err: context.DeadlineExceeded}
	fast := &fakeProber{
		name:   payment.ProviderSecondary,
		status: providers.HealthStatus{MinResponseTime: 5},
	}
	m := NewMonitor([]Prober{slow, fast}, 40*time.Millisecond, 10*time.Millisecond, zerolog.Nop(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, m.Run(ctx))

	assert.True(t, m.Snapshot(payment.ProviderPrimary).Failing)
	assert.False(t, m.Snapshot(payment.ProviderSecondary).Failing)
	assert.GreaterOrEqual(t, fast.calls.Load(), int64(2))
}
