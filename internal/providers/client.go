package providers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rmedeiros/payrouter/internal/domain/payment"
)

// SettleRequest contains the data needed to settle a payment with a provider.
type SettleRequest struct {
	CorrelationID uuid.UUID
	AmountCents   int64
	RequestedAt   time.Time
}

// SettleResult holds the result of a successful provider call. Duplicate
// is set when the provider reports the correlation ID as already settled;
// callers must treat that as success.
type SettleResult struct {
	TransactionRef string
	Duplicate      bool
}

// HealthStatus mirrors the provider health probe payload.
type HealthStatus struct {
	Failing         bool `json:"failing"`
	MinResponseTime int  `json:"minResponseTime"`
}

// Client is the settlement transport for one provider. Implementations
// are selected at construction (real HTTP client or test double), never
// branched on at call time.
type Client interface {
	// Name returns the provider identity.
	Name() payment.Provider
	// Settle submits a payment to the provider.
	Settle(ctx context.Context, req SettleRequest) (*SettleResult, error)
	// CheckHealth probes the provider health endpoint.
	CheckHealth(ctx context.Context) (*HealthStatus, error)
}
