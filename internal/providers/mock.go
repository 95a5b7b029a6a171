package providers

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/rmedeiros/payrouter/internal/domain/errors"
	"github.com/rmedeiros/payrouter/internal/domain/payment"
)

// MockClient is a deterministic in-memory settlement transport for tests.
// It remembers every correlation ID it accepts and reports resubmissions
// as duplicates, like a real provider would.
type MockClient struct {
	name payment.Provider

	mu       sync.Mutex
	settled  map[string]bool
	calls    []SettleRequest
	err      error
	failNext int
	latency  time.Duration
	health   HealthStatus
}

type MockClientOption func(*MockClient)

// WithSettleError makes every settlement attempt fail with err.
func WithSettleError(err error) MockClientOption {
	return func(c *MockClient) { c.err = err }
}

// WithFailures makes the first n settlement attempts fail, then succeed.
func WithFailures(n int) MockClientOption {
	return func(c *MockClient) { c.failNext = n }
}

// WithMockLatency delays each call, honoring context cancellation.
func WithMockLatency(d time.Duration) MockClientOption {
	return func(c *MockClient) { c.latency = d }
}

// WithHealth fixes the health probe response.
func WithHealth(status HealthStatus) MockClientOption {
	return func(c *MockClient) { c.health = status }
}

func NewMockClient(name payment.Provider, opts ...MockClientOption) *MockClient {
	c := &MockClient{
		name:    name,
		settled: make(map[string]bool),
		health:  HealthStatus{Failing: false, MinResponseTime: 50},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *MockClient) Name() payment.Provider { return c.name }

func (c *MockClient) Settle(ctx context.Context, req SettleRequest) (*SettleResult, error) {
	if c.latency > 0 {
		select {
		case <-time.After(c.latency):
		case <-ctx.Done():
			return nil, domainErrors.ErrProviderTimeout
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, req)

	if c.err != nil {
		return nil, c.err
	}
	if c.failNext > 0 {
		c.failNext--
		return nil, domainErrors.ErrProviderUnavailable
	}

	key := req.CorrelationID.String()
	if c.settled[key] {
		return &SettleResult{Duplicate: true}, nil
	}
	c.settled[key] = true
	return &SettleResult{TransactionRef: string(c.name) + "_txn_" + key[:8]}, nil
}

func (c *MockClient) CheckHealth(ctx context.Context) (*HealthStatus, error) {
	if c.latency > 0 {
		select {
		case <-time.After(c.latency):
		case <-ctx.Done():
			return nil, domainErrors.ErrProviderTimeout
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	status := c.health
	return &status, nil
}

// Calls returns a copy of every settlement request seen so far.
func (c *MockClient) Calls() []SettleRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]SettleRequest, len(c.calls))
	copy(out, c.calls)
	return out
}

// SetError changes the forced error for subsequent calls.
func (c *MockClient) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}
