package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/rmedeiros/payrouter/internal/domain/payment"
	"github.com/sony/gobreaker/v2"
)

// Registry holds the provider clients in cost order (cheapest first) and
// wraps each with a circuit breaker. An open breaker makes an attempt
// fail fast; it never removes the provider from routing.
type Registry struct {
	clients  map[payment.Provider]Client
	breakers map[payment.Provider]*gobreaker.CircuitBreaker[*SettleResult]
	order    []payment.Provider
}

// NewRegistry registers the clients in the order given, which is the
// cost order used for ranking tie-breaks.
func NewRegistry(clients ...Client) *Registry {
	r := &Registry{
		clients:  make(map[payment.Provider]Client),
		breakers: make(map[payment.Provider]*gobreaker.CircuitBreaker[*SettleResult]),
	}
	for _, c := range clients {
		r.register(c)
	}
	return r
}

func (r *Registry) register(c Client) {
	name := c.Name()
	r.clients[name] = c
	r.order = append(r.order, name)
	r.breakers[name] = gobreaker.NewCircuitBreaker[*SettleResult](gobreaker.Settings{
		Name:        string(name),
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
	})
}

// Get returns the client for a provider.
func (r *Registry) Get(name payment.Provider) (Client, error) {
	c, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return c, nil
}

// Ordered returns the providers in cost order.
func (r *Registry) Ordered() []payment.Provider {
	out := make([]payment.Provider, len(r.order))
	copy(out, r.order)
	return out
}

// Settle routes a settlement call through the provider's circuit breaker.
func (r *Registry) Settle(ctx context.Context, name payment.Provider, req SettleRequest) (*SettleResult, error) {
	c, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	breaker := r.breakers[name]
	return breaker.Execute(func() (*SettleResult, error) {
		return c.Settle(ctx, req)
	})
}
