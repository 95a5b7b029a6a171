package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	domainErrors "github.com/rmedeiros/payrouter/internal/domain/errors"
	"github.com/rmedeiros/payrouter/internal/domain/payment"
)

// SettlementRepository implements the durable audit store using PostgreSQL.
// The primary key on correlation_id makes RecordSettlement idempotent.
type SettlementRepository struct {
	pool *pgxpool.Pool
}

// NewSettlementRepository creates a new SettlementRepository.
func NewSettlementRepository(pool *pgxpool.Pool) *SettlementRepository {
	return &SettlementRepository{pool: pool}
}

// RecordSettlement inserts the settlement record unless one already
// exists for the same correlation ID. The conflict path is not an error:
// a retried payment that already settled simply reports RecordAlreadyExists.
func (r *SettlementRepository) RecordSettlement(ctx context.Context, rec payment.SettlementRecord) (payment.RecordOutcome, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO settlements (correlation_id, provider, amount, settled_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (correlation_id) DO NOTHING`,
		rec.CorrelationID, string(rec.Provider), centsToNumeric(rec.AmountCents), rec.SettledAt,
	)
	if err != nil {
		return payment.RecordInserted, fmt.Errorf("insert settlement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payment.RecordAlreadyExists, nil
	}
	return payment.RecordInserted, nil
}

// RecordAbandonment stores the terminal failure record for a payment
// that exhausted its retries. Idempotent on correlation ID for the same
// reason settlements are.
func (r *SettlementRepository) RecordAbandonment(ctx context.Context, ab payment.Abandonment) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO abandoned_payments (correlation_id, amount, attempts, last_error, abandoned_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (correlation_id) DO NOTHING`,
		ab.CorrelationID, centsToNumeric(ab.AmountCents), ab.Attempts, ab.LastError, ab.AbandonedAt,
	)
	if err != nil {
		return fmt.Errorf("insert abandonment: %w", err)
	}
	return nil
}

// Summarize aggregates settled payments per provider over an inclusive
// time window. A nil bound leaves that side of the window open. Both
// providers are always present in the result, zero-filled when empty.
func (r *SettlementRepository) Summarize(ctx context.Context, from, to *time.Time) (payment.Summary, error) {
	query := `SELECT provider, COUNT(*), COALESCE(SUM(amount), 0)::text
	          FROM settlements WHERE 1=1`
	args := []any{}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND settled_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND settled_at <= $%d", len(args))
	}
	query += " GROUP BY provider"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return payment.Summary{}, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	var summary payment.Summary
	for rows.Next() {
		var (
			provider string
			count    int64
			total    string
		)
		if err := rows.Scan(&provider, &count, &total); err != nil {
			return payment.Summary{}, fmt.Errorf("scan summary row: %w", err)
		}
		cents, err := numericToCents(total)
		if err != nil {
			return payment.Summary{}, fmt.Errorf("parse summary amount: %w", err)
		}
		totals := payment.ProviderTotals{TotalRequests: count, TotalAmountCents: cents}
		switch payment.Provider(provider) {
		case payment.ProviderPrimary:
			summary.Primary = totals
		case payment.ProviderSecondary:
			summary.Secondary = totals
		}
	}
	if err := rows.Err(); err != nil {
		return payment.Summary{}, fmt.Errorf("iterate summary rows: %w", err)
	}
	return summary, nil
}

// FindStatus reports the terminal state of a payment, or
// ErrPaymentNotFound when neither a settlement nor an abandonment exists.
func (r *SettlementRepository) FindStatus(ctx context.Context, correlationID uuid.UUID) (payment.Status, error) {
	var provider string
	err := r.pool.QueryRow(ctx,
		`SELECT provider FROM settlements WHERE correlation_id = $1`, correlationID,
	).Scan(&provider)
	if err == nil {
		p := payment.Provider(provider)
		return payment.Status{
			CorrelationID: correlationID,
			State:         payment.StateSettled,
			Provider:      &p,
		}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return payment.Status{}, fmt.Errorf("query settlement: %w", err)
	}

	var attempts int
	err = r.pool.QueryRow(ctx,
		`SELECT attempts FROM abandoned_payments WHERE correlation_id = $1`, correlationID,
	).Scan(&attempts)
	if err == nil {
		return payment.Status{
			CorrelationID: correlationID,
			State:         payment.StateAbandoned,
			Attempts:      attempts,
		}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return payment.Status{}, fmt.Errorf("query abandonment: %w", err)
	}
	return payment.Status{}, domainErrors.ErrPaymentNotFound
}
