package service

import (
	"context"
	"testing"
	"time"

	domainErrors "github.com/rmedeiros/payrouter/internal/domain/errors"
	"github.com/rmedeiros/payrouter/internal/domain/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSummaryReader struct {
	summary payment.Summary
	err     error

	from *time.Time
	to   *time.Time
}

func (r *fakeSummaryReader) Summarize(ctx context.Context, from, to *time.Time) (payment.Summary, error) {
	r.from, r.to = from, to
	return r.summary, r.err
}

func TestSummarize_OpenWindow(t *testing.T) {
	reader := &fakeSummaryReader{summary: payment.Summary{
		Primary:   payment.ProviderTotals{TotalRequests: 5, TotalAmountCents: 9950},
		Secondary: payment.ProviderTotals{TotalRequests: 1, TotalAmountCents: 1000},
	}}
	svc := NewSummaryService(reader)

	summary, err := svc.Summarize(context.Background(), "", "")
	require.NoError(t, err)
	assert.Nil(t, reader.from)
	assert.Nil(t, reader.to)
	assert.Equal(t, int64(5), summary.Primary.TotalRequests)
	assert.Equal(t, int64(1000), summary.Secondary.TotalAmountCents)
}

func TestSummarize_ParsesBoundsAsUTC(t *testing.T) {
	reader := &fakeSummaryReader{}
	svc := NewSummaryService(reader)

	_, err := svc.Summarize(context.Background(),
		"2026-08-01T00:00:00-03:00", "2026-08-31T23:59:59Z")
	require.NoError(t, err)
	require.NotNil(t, reader.from)
	require.NotNil(t, reader.to)
	assert.Equal(t, time.UTC, reader.from.Location())
	assert.Equal(t, "2026-08-01T03:00:00Z", reader.from.Format(time.RFC3339))
}

func TestSummarize_FromOnly(t *testing.T) {
	reader := &fakeSummaryReader{}
	svc := NewSummaryService(reader)

	_, err := svc.Summarize(context.Background(), "2026-08-01T00:00:00Z", "")
	require.NoError(t, err)
	assert.NotNil(t, reader.from)
	assert.Nil(t, reader.to)
}

func TestSummarize_InvalidTimestamp(t *testing.T) {
	svc := NewSummaryService(&fakeSummaryReader{})

	for _, raw := range []string{"yesterday", "2026-13-01", "1693526400"} {
		_, err := svc.Summarize(context.Background(), raw, "")
		var vErr *domainErrors.ValidationError
		require.ErrorAs(t, err, &vErr, "input %q", raw)
	}
}

func TestSummarize_InvertedRange(t *testing.T) {
	svc := NewSummaryService(&fakeSummaryReader{})

	_, err := svc.Summarize(context.Background(),
		"2026-08-31T00:00:00Z", "2026-08-01T00:00:00Z")
	assert.ErrorIs(t, err, domainErrors.ErrInvalidDateRange)
}

func TestSummarize_EqualBoundsAreInclusive(t *testing.T) {
	reader := &fakeSummaryReader{}
	svc := NewSummaryService(reader)

	_, err := svc.Summarize(context.Background(),
		"2026-08-15T12:00:00Z", "2026-08-15T12:00:00Z")
	require.NoError(t, err)
	assert.True(t, reader.from.Equal(*reader.to))
}
