package service

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/rmedeiros/payrouter/internal/domain/errors"
	"github.com/rmedeiros/payrouter/internal/domain/payment"
)

// SummaryReader aggregates settlements per provider over a time window.
type SummaryReader interface {
	Summarize(ctx context.Context, from, to *time.Time) (payment.Summary, error)
}

// SummaryService answers reconciliation queries against the audit store.
type SummaryService struct {
	reader SummaryReader
}

// NewSummaryService creates a new SummaryService.
func NewSummaryService(reader SummaryReader) *SummaryService {
	return &SummaryService{reader: reader}
}

// Summarize parses the optional RFC 3339 bounds and aggregates settled
// payments per provider. Both bounds are inclusive; an empty string
// leaves that side of the window open.
func (s *SummaryService) Summarize(ctx context.Context, fromRaw, toRaw string) (payment.Summary, error) {
	from, err := parseBound("from", fromRaw)
	if err != nil {
		return payment.Summary{}, err
	}
	to, err := parseBound("to", toRaw)
	if err != nil {
		return payment.Summary{}, err
	}
	if from != nil && to != nil && from.After(*to) {
		return payment.Summary{}, fmt.Errorf("%w: from is after to", domainErrors.ErrInvalidDateRange)
	}
	return s.reader.Summarize(ctx, from, to)
}

func parseBound(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, domainErrors.NewValidationError(field, "must be an RFC 3339 timestamp")
	}
	utc := t.UTC()
	return &utc, nil
}
