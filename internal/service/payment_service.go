package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rmedeiros/payrouter/internal/dispatch"
	domainErrors "github.com/rmedeiros/payrouter/internal/domain/errors"
	"github.com/rmedeiros/payrouter/internal/domain/payment"
	"github.com/rmedeiros/payrouter/internal/infrastructure/observability"
	"github.com/rmedeiros/payrouter/pkg/retry"
	"github.com/rs/zerolog"
)

// Dispatcher attempts to settle a payment against the providers.
type Dispatcher interface {
	Settle(ctx context.Context, p payment.Payment) (dispatch.Outcome, error)
}

// RetryEnqueuer adds a payment to the durable retry queue.
type RetryEnqueuer interface {
	Enqueue(ctx context.Context, entry payment.QueueEntry) error
}

// StatusFinder looks up the terminal state of a payment.
type StatusFinder interface {
	FindStatus(ctx context.Context, correlationID uuid.UUID) (payment.Status, error)
}

// PaymentService handles payment intake: validate, try to settle
// synchronously, fall back to the retry queue.
type PaymentService struct {
	dispatcher Dispatcher
	queue      RetryEnqueuer
	statuses   StatusFinder
	enqueueCfg retry.Config
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	dispatcher Dispatcher,
	queue RetryEnqueuer,
	statuses StatusFinder,
	enqueueCfg retry.Config,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *PaymentService {
	return &PaymentService{
		dispatcher: dispatcher,
		queue:      queue,
		statuses:   statuses,
		enqueueCfg: enqueueCfg,
		logger:     logger,
		metrics:    metrics,
	}
}

// Submit validates the request and attempts immediate settlement. A
// payment that cannot settle right now is queued for retries instead of
// being rejected; only a dead queue makes intake fail.
func (s *PaymentService) Submit(ctx context.Context, req SubmitPaymentRequest) (*SubmitPaymentResponse, error) {
	p, err := payment.NewPayment(req.CorrelationID, req.AmountCents, req.RequestedAt)
	if err != nil {
		return nil, err
	}

	outcome, err := s.dispatcher.Settle(ctx, *p)
	if err != nil {
		// The settlement may have gone through without a durable record;
		// the retry path is idempotent so queueing is always safe.
		s.logger.Warn().Err(err).
			Str("correlation_id", p.CorrelationID.String()).
			Msg("Synchronous settlement errored, deferring to retry queue")
	} else if outcome.Settled {
		return &SubmitPaymentResponse{
			CorrelationID: p.CorrelationID,
			Settled:       true,
			Provider:      &outcome.Provider,
		}, nil
	}

	if err := s.enqueue(ctx, *p); err != nil {
		return nil, err
	}
	return &SubmitPaymentResponse{
		CorrelationID: p.CorrelationID,
		Settled:       false,
		Queued:        true,
	}, nil
}

func (s *PaymentService) enqueue(ctx context.Context, p payment.Payment) error {
	entry := payment.NewQueueEntry(p)
	err := retry.Do(ctx, s.enqueueCfg, func() error {
		return s.queue.Enqueue(ctx, entry)
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("correlation_id", p.CorrelationID.String()).
			Msg("Failed to enqueue payment for retry")
		return fmt.Errorf("%w: %v", domainErrors.ErrQueueUnavailable, err)
	}
	s.metrics.PaymentsQueuedTotal.Inc()
	s.logger.Info().
		Str("correlation_id", p.CorrelationID.String()).
		Msg("Payment queued for retry")
	return nil
}

// Status reports the current state of a payment. A payment with neither
// a settlement nor an abandonment record is unknown to the audit store;
// the caller decides whether that means pending or never seen.
func (s *PaymentService) Status(ctx context.Context, correlationID string) (payment.Status, error) {
	id, err := uuid.Parse(correlationID)
	if err != nil {
		return payment.Status{}, domainErrors.NewValidationError("correlationId", "must be a valid UUID")
	}
	return s.statuses.FindStatus(ctx, id)
}

// SubmitPaymentRequest is the service-level intake request. Controllers
// convert their HTTP DTOs to this type.
type SubmitPaymentRequest struct {
	CorrelationID string
	AmountCents   int64
	RequestedAt   time.Time
}

// SubmitPaymentResponse reports how intake ended: settled immediately or
// parked on the retry queue.
type SubmitPaymentResponse struct {
	CorrelationID uuid.UUID
	Settled       bool
	Queued        bool
	Provider      *payment.Provider
}
