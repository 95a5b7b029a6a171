package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/rmedeiros/payrouter/internal/domain/errors"
)

// Provider identifies an external settlement provider. The primary
// provider charges lower fees and is preferred when equally healthy.
type Provider string

const (
	ProviderPrimary   Provider = "primary"
	ProviderSecondary Provider = "secondary"
)

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	return p == ProviderPrimary || p == ProviderSecondary
}

// Payment is the immutable inbound payment request. The correlation ID
// is client-supplied and doubles as the idempotency key for the whole
// settlement pipeline.
type Payment struct {
	CorrelationID uuid.UUID `json:"correlationId"`
	AmountCents   int64     `json:"amountCents"`
	RequestedAt   time.Time `json:"requestedAt"`
}

// NewPayment validates and builds a Payment. A zero requestedAt defaults
// to the receipt time.
func NewPayment(correlationID string, amountCents int64, requestedAt time.Time) (*Payment, error) {
	id, err := uuid.Parse(correlationID)
	if err != nil {
		return nil, errors.NewValidationError("correlationId", "must be a valid UUID")
	}
	if amountCents <= 0 {
		return nil, errors.NewValidationError("amount", "must be greater than 0")
	}
	if requestedAt.IsZero() {
		requestedAt = time.Now().UTC()
	}
	return &Payment{
		CorrelationID: id,
		AmountCents:   amountCents,
		RequestedAt:   requestedAt.UTC(),
	}, nil
}

// QueueEntry is a Payment resident in the retry queue, together with its
// retry bookkeeping. Attempts starts at zero and is incremented by the
// worker on every processing attempt.
type QueueEntry struct {
	Payment    Payment   `json:"payment"`
	Attempts   int       `json:"attempts"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}

// NewQueueEntry wraps a payment for its first trip through the queue.
func NewQueueEntry(p Payment) QueueEntry {
	return QueueEntry{
		Payment:    p,
		Attempts:   0,
		EnqueuedAt: time.Now().UTC(),
	}
}

// SettlementRecord is the durable audit entity. Exactly one record may
// exist per correlation ID; the store's uniqueness constraint is the
// final arbiter.
type SettlementRecord struct {
	CorrelationID uuid.UUID
	Provider      Provider
	AmountCents   int64
	SettledAt     time.Time
}

// RecordOutcome is the result of an idempotent settlement write.
type RecordOutcome int

const (
	RecordInserted RecordOutcome = iota
	RecordAlreadyExists
)

func (o RecordOutcome) String() string {
	if o == RecordAlreadyExists {
		return "already_recorded"
	}
	return "inserted"
}

// Abandonment is the terminal failure record for a payment that
// exhausted its retry budget without settling.
type Abandonment struct {
	CorrelationID uuid.UUID
	AmountCents   int64
	Attempts      int
	LastError     string
	AbandonedAt   time.Time
}

// ProviderTotals aggregates settlements for one provider.
type ProviderTotals struct {
	TotalRequests    int64
	TotalAmountCents int64
}

// Summary is the two-provider aggregate over a time window. Both sides
// are always present, zero-filled when empty.
type Summary struct {
	Primary   ProviderTotals
	Secondary ProviderTotals
}

// SettlementState is the externally visible state of a payment.
type SettlementState string

const (
	StateSettled   SettlementState = "settled"
	StateAbandoned SettlementState = "abandoned"
	StatePending   SettlementState = "pending"
)

// Status is the answer to a client polling for a payment outcome.
type Status struct {
	CorrelationID uuid.UUID
	State         SettlementState
	Provider      *Provider
	Attempts      int
}
