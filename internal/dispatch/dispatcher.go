package dispatch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rmedeiros/payrouter/internal/domain/payment"
	"github.com/rmedeiros/payrouter/internal/health"
	"github.com/rmedeiros/payrouter/internal/infrastructure/observability"
	"github.com/rmedeiros/payrouter/internal/providers"
	"github.com/rs/zerolog"
)

// Outcome is the result of a dispatch pass over the providers.
type Outcome struct {
	Settled        bool
	Provider       payment.Provider
	TransactionRef string
}

// SettlementStore is the audit write the dispatcher triggers on success.
type SettlementStore interface {
	RecordSettlement(ctx context.Context, rec payment.SettlementRecord) (payment.RecordOutcome, error)
}

// Transport is the provider call surface, satisfied by *providers.Registry.
type Transport interface {
	Ordered() []payment.Provider
	Settle(ctx context.Context, name payment.Provider, req providers.SettleRequest) (*providers.SettleResult, error)
}

// Config tunes provider ranking and per-attempt deadlines.
type Config struct {
	// AttemptTimeout bounds each provider attempt so a hung provider
	// never stalls the caller.
	AttemptTimeout time.Duration
	// FailingPenaltyMs deprioritizes, without excluding, a provider
	// whose health snapshot reports failing.
	FailingPenaltyMs int
	// SecondaryBiasMs expresses the secondary provider's higher fees in
	// score units, so the cheaper primary wins between equals.
	SecondaryBiasMs int
}

// Dispatcher ranks the providers by health and cost, attempts settlement
// against each in order under a bounded timeout, and records the audit
// entry on success. It never retries on its own; total failure is handed
// to the retry queue by the caller.
type Dispatcher struct {
	transport Transport
	health    health.Source
	store     SettlementStore
	cfg       Config
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

func NewDispatcher(
	transport Transport,
	healthSource health.Source,
	store SettlementStore,
	cfg Config,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		health:    healthSource,
		store:     store,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
	}
}

// Settle attempts the payment against each ranked provider once. A
// provider reporting the correlation ID as already settled counts as
// success for that provider and must not produce a second audit row;
// RecordSettlement is idempotent, so the write collapses.
func (d *Dispatcher) Settle(ctx context.Context, p payment.Payment) (Outcome, error) {
	req := providers.SettleRequest{
		CorrelationID: p.CorrelationID,
		AmountCents:   p.AmountCents,
		RequestedAt:   p.RequestedAt,
	}

	for _, name := range d.Rank() {
		start := time.Now()
		attemptCtx, cancel := context.WithTimeout(ctx, d.cfg.AttemptTimeout)
		res, err := d.transport.Settle(attemptCtx, name, req)
		cancel()

		d.metrics.SettlementDuration.WithLabelValues(string(name)).Observe(time.Since(start).Seconds())

		if err != nil {
			d.metrics.SettlementAttemptsTotal.WithLabelValues(string(name), "failure").Inc()
			d.logger.Warn().Err(err).
				Str("correlation_id", p.CorrelationID.String()).
				Str("provider", string(name)).
				Msg("settlement attempt failed")
			continue
		}

		result := "success"
		if res.Duplicate {
			result = "duplicate"
		}
		d.metrics.SettlementAttemptsTotal.WithLabelValues(string(name), result).Inc()

		outcome, err := d.store.RecordSettlement(ctx, payment.SettlementRecord{
			CorrelationID: p.CorrelationID,
			Provider:      name,
			AmountCents:   p.AmountCents,
			SettledAt:     time.Now().UTC(),
		})
		if err != nil {
			// The provider accepted but the audit write did not land.
			// Reporting failure sends the payment through the retry
			// path, where the duplicate response resolves idempotently.
			return Outcome{}, fmt.Errorf("record settlement: %w", err)
		}
		d.metrics.SettlementsRecorded.WithLabelValues(string(name), outcome.String()).Inc()

		d.logger.Info().
			Str("correlation_id", p.CorrelationID.String()).
			Str("provider", string(name)).
			Str("record_outcome", outcome.String()).
			Msg("payment settled")
		return Outcome{Settled: true, Provider: name, TransactionRef: res.TransactionRef}, nil
	}

	return Outcome{}, nil
}

// Rank orders the providers by score: reported response time, plus a
// penalty while failing, plus the cost bias. Lower scores go first; the
// stable sort keeps the cheaper provider ahead on ties. A failing
// provider is pushed back, never dropped.
func (d *Dispatcher) Rank() []payment.Provider {
	ordered := d.transport.Ordered()
	scores := make(map[payment.Provider]int, len(ordered))
	for i, name := range ordered {
		snap := d.health.Snapshot(name)
		score := snap.MinResponseTimeMs + i*d.cfg.SecondaryBiasMs
		if snap.Failing {
			score += d.cfg.FailingPenaltyMs
		}
		scores[name] = score
	}

	ranked := make([]payment.Provider, len(ordered))
	copy(ranked, ordered)
	sort.SliceStable(ranked, func(a, b int) bool {
		return scores[ranked[a]] < scores[ranked[b]]
	})
	return ranked
}
