package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rmedeiros/payrouter/internal/domain/payment"
	"github.com/rmedeiros/payrouter/internal/infrastructure/observability"
)

// NewTestPayment builds a valid payment with a fresh correlation ID.
func NewTestPayment(amountCents int64) payment.Payment {
	return payment.Payment{
		CorrelationID: uuid.New(),
		AmountCents:   amountCents,
		RequestedAt:   time.Now().UTC(),
	}
}

// NewTestQueueEntry wraps a payment with the given attempt count.
func NewTestQueueEntry(p payment.Payment, attempts int) payment.QueueEntry {
	return payment.QueueEntry{
		Payment:    p,
		Attempts:   attempts,
		EnqueuedAt: time.Now().UTC(),
	}
}

// NewTestMetrics registers the metric set against a private registry so
// parallel tests never collide on the default registerer.
func NewTestMetrics() *observability.Metrics {
	return observability.NewMetrics("payrouter_test", prometheus.NewRegistry())
}
