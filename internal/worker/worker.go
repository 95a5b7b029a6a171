package worker

import (
	"context"
	"time"

	"github.com/rmedeiros/payrouter/internal/dispatch"
	"github.com/rmedeiros/payrouter/internal/domain/payment"
	"github.com/rmedeiros/payrouter/internal/infrastructure/observability"
	infraRedis "github.com/rmedeiros/payrouter/internal/infrastructure/redis"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Queue is the retry queue surface the worker drives. Satisfied by
// *infraRedis.RetryQueue.
type Queue interface {
	Read(ctx context.Context) ([]infraRedis.Delivery, error)
	Ack(ctx context.Context, messageID string) error
	Schedule(ctx context.Context, entry payment.QueueEntry, delay time.Duration) error
	Reclaim(ctx context.Context, minIdle time.Duration) ([]infraRedis.Delivery, error)
	MoveDue(ctx context.Context) (int64, error)
	Depth(ctx context.Context) (pending int64, scheduled int64, err error)
}

// Settler retries a payment against the providers. Satisfied by
// *dispatch.Dispatcher.
type Settler interface {
	Settle(ctx context.Context, p payment.Payment) (dispatch.Outcome, error)
}

// AbandonmentStore records payments that exhausted their retry budget.
type AbandonmentStore interface {
	RecordAbandonment(ctx context.Context, a payment.Abandonment) error
}

// Lock is an exclusive per-payment lock.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Config holds the worker retry policy.
type Config struct {
	// MaxAttempts is the total attempt budget per payment, counting the
	// attempt that moves it past the budget into abandonment.
	MaxAttempts int
	// BaseDelay is multiplied by the attempt count for the next backoff.
	BaseDelay time.Duration
	// LeaseTTL bounds how long an entry may stay claimed by a dead
	// consumer before being reclaimed.
	LeaseTTL time.Duration
	// SchedulerPollPeriod is how often due scheduled entries are moved
	// back onto the stream.
	SchedulerPollPeriod time.Duration
}

// Worker consumes queue entries, retries them through the dispatcher and
// either acknowledges, reschedules or abandons each one.
type Worker struct {
	queue    Queue
	settler  Settler
	abandons AbandonmentStore
	newLock  func(correlationID string) Lock
	cfg      Config
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

func New(
	queue Queue,
	settler Settler,
	abandons AbandonmentStore,
	newLock func(correlationID string) Lock,
	cfg Config,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Worker {
	return &Worker{
		queue:    queue,
		settler:  settler,
		abandons: abandons,
		newLock:  newLock,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run starts the consume, reclaim and scheduler loops and blocks until
// ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error { return w.consumeLoop(gCtx) })
	g.Go(func() error { return w.reclaimLoop(gCtx) })
	g.Go(func() error { return w.schedulerLoop(gCtx) })
	g.Go(func() error { return w.depthLoop(gCtx) })

	return g.Wait()
}

func (w *Worker) consumeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		deliveries, err := w.queue.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Error().Err(err).Msg("Failed to read from retry queue")
			time.Sleep(1 * time.Second)
			continue
		}
		for _, d := range deliveries {
			w.Process(ctx, d)
		}
	}
}

// reclaimLoop takes over entries whose consumer died mid-lease.
func (w *Worker) reclaimLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.LeaseTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		deliveries, err := w.queue.Reclaim(ctx, w.cfg.LeaseTTL)
		if err != nil {
			w.logger.Error().Err(err).Msg("Failed to reclaim stale queue entries")
			continue
		}
		for _, d := range deliveries {
			w.logger.Info().
				Str("correlation_id", d.Entry.Payment.CorrelationID.String()).
				Msg("Reclaimed stale queue entry")
			w.Process(ctx, d)
		}
	}
}

// schedulerLoop moves due backoff entries back onto the stream.
func (w *Worker) schedulerLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.SchedulerPollPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		moved, err := w.queue.MoveDue(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("Failed to move due retries")
			continue
		}
		if moved > 0 {
			w.logger.Debug().Int64("count", moved).Msg("Moved due retries onto stream")
		}
	}
}

func (w *Worker) depthLoop(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		pending, scheduled, err := w.queue.Depth(ctx)
		if err != nil {
			continue
		}
		w.metrics.QueueDepth.WithLabelValues("pending").Set(float64(pending))
		w.metrics.QueueDepth.WithLabelValues("scheduled").Set(float64(scheduled))
	}
}

// Process handles a single delivery. Entries whose lock is held by
// another consumer are skipped without an ack so the lease reclaim can
// pick them up once the lock expires.
func (w *Worker) Process(ctx context.Context, d infraRedis.Delivery) {
	start := time.Now()
	entry := d.Entry
	entry.Attempts++

	correlationID := entry.Payment.CorrelationID.String()
	log := w.logger.With().
		Str("correlation_id", correlationID).
		Int("attempt", entry.Attempts).
		Logger()

	lock := w.newLock(correlationID)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to acquire payment lock")
		return
	}
	if !acquired {
		log.Warn().Msg("Payment lock held elsewhere, skipping")
		w.metrics.WorkerEntriesProcessed.WithLabelValues("skipped").Inc()
		return
	}
	defer lock.Release(ctx)

	outcome, err := w.settler.Settle(ctx, entry.Payment)
	if err == nil && outcome.Settled {
		w.ack(ctx, d.ID, log)
		w.metrics.WorkerEntriesProcessed.WithLabelValues("settled").Inc()
		w.metrics.WorkerProcessingDuration.Observe(time.Since(start).Seconds())
		log.Info().Str("provider", string(outcome.Provider)).Msg("Payment settled on retry")
		return
	}

	if entry.Attempts >= w.cfg.MaxAttempts {
		w.abandon(ctx, d, entry, err, log)
		w.metrics.WorkerProcessingDuration.Observe(time.Since(start).Seconds())
		return
	}

	delay := w.cfg.BaseDelay * time.Duration(entry.Attempts)
	if err := w.queue.Schedule(ctx, entry, delay); err != nil {
		// Leave unacked; the lease reclaim will redeliver it.
		log.Error().Err(err).Msg("Failed to schedule retry")
		return
	}
	w.ack(ctx, d.ID, log)
	w.metrics.WorkerEntriesProcessed.WithLabelValues("rescheduled").Inc()
	w.metrics.RetriesScheduledTotal.Inc()
	w.metrics.WorkerProcessingDuration.Observe(time.Since(start).Seconds())
	log.Info().Dur("delay", delay).Msg("Settlement failed, retry scheduled")
}

func (w *Worker) abandon(ctx context.Context, d infraRedis.Delivery, entry payment.QueueEntry, cause error, log zerolog.Logger) {
	lastError := "all providers declined or unavailable"
	if cause != nil {
		lastError = cause.Error()
	}

	ab := payment.Abandonment{
		CorrelationID: entry.Payment.CorrelationID,
		AmountCents:   entry.Payment.AmountCents,
		Attempts:      entry.Attempts,
		LastError:     lastError,
		AbandonedAt:   time.Now().UTC(),
	}
	if err := w.abandons.RecordAbandonment(ctx, ab); err != nil {
		// Leave unacked so the abandonment write is retried.
		log.Error().Err(err).Msg("Failed to record abandonment")
		return
	}
	w.ack(ctx, d.ID, log)
	w.metrics.WorkerEntriesProcessed.WithLabelValues("abandoned").Inc()
	w.metrics.PaymentsAbandonedTotal.Inc()
	log.Warn().Str("last_error", lastError).Msg("Payment abandoned after exhausting retries")
}

func (w *Worker) ack(ctx context.Context, messageID string, log zerolog.Logger) {
	if err := w.queue.Ack(ctx, messageID); err != nil {
		log.Error().Err(err).Str("message_id", messageID).Msg("Failed to ack queue entry")
	}
}
