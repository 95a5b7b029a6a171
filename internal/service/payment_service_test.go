package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rmedeiros/payrouter/internal/dispatch"
	domainErrors "github.com/rmedeiros/payrouter/internal/domain/errors"
	"github.com/rmedeiros/payrouter/internal/domain/payment"
	"github.com/rmedeiros/payrouter/internal/testutil"
	"github.com/rmedeiros/payrouter/pkg/retry"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test Helpers ---

type fakeDispatcher struct {
	outcome dispatch.Outcome
	err     error
	calls   int
}

func (d *fakeDispatcher) Settle(ctx context.Context, p payment.Payment) (dispatch.Outcome, error) {
	d.calls++
	return d.outcome, d.err
}

type fakeEnqueuer struct {
	mu      sync.Mutex
	entries []payment.QueueEntry
	errs    []error // consumed per call, nil once exhausted
}

func (q *fakeEnqueuer) Enqueue(ctx context.Context, entry payment.QueueEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.errs) > 0 {
		err := q.errs[0]
		q.errs = q.errs[1:]
		if err != nil {
			return err
		}
	}
	q.entries = append(q.entries, entry)
	return nil
}

type fakeStatusFinder struct {
	status payment.Status
	err    error
}

func (f *fakeStatusFinder) FindStatus(ctx context.Context, id uuid.UUID) (payment.Status, error) {
	return f.status, f.err
}

func setupPaymentService(dispatcher *fakeDispatcher, queue *fakeEnqueuer, statuses *fakeStatusFinder) *PaymentService {
	if statuses == nil {
		statuses = &fakeStatusFinder{}
	}
	return NewPaymentService(
		dispatcher,
		queue,
		statuses,
		retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
		zerolog.Nop(),
		testutil.NewTestMetrics(),
	)
}

func submitRequest() SubmitPaymentRequest {
	return SubmitPaymentRequest{
		CorrelationID: uuid.NewString(),
		AmountCents:   1990,
		RequestedAt:   time.Now().UTC(),
	}
}

// --- Submit Tests ---

func TestSubmit_SettledImmediately(t *testing.T) {
	dispatcher := &fakeDispatcher{outcome: dispatch.Outcome{Settled: true, Provider: payment.ProviderPrimary}}
	queue := &fakeEnqueuer{}
	svc := setupPaymentService(dispatcher, queue, nil)

	resp, err := svc.Submit(context.Background(), submitRequest())
	require.NoError(t, err)
	assert.True(t, resp.Settled)
	assert.False(t, resp.Queued)
	require.NotNil(t, resp.Provider)
	assert.Equal(t, payment.ProviderPrimary, *resp.Provider)
	assert.Empty(t, queue.entries)
}

func TestSubmit_UnsettledIsQueued(t *testing.T) {
	dispatcher := &fakeDispatcher{outcome: dispatch.Outcome{Settled: false}}
	queue := &fakeEnqueuer{}
	svc := setupPaymentService(dispatcher, queue, nil)

	req := submitRequest()
	resp, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.Settled)
	assert.True(t, resp.Queued)

	require.Len(t, queue.entries, 1)
	assert.Equal(t, req.CorrelationID, queue.entries[0].Payment.CorrelationID.String())
	assert.Equal(t, 0, queue.entries[0].Attempts)
}

func TestSubmit_DispatchErrorStillQueues(t *testing.T) {
	dispatcher := &fakeDispatcher{err: errors.New("audit store down")}
	queue := &fakeEnqueuer{}
	svc := setupPaymentService(dispatcher, queue, nil)

	resp, err := svc.Submit(context.Background(), submitRequest())
	require.NoError(t, err)
	assert.True(t, resp.Queued)
	assert.Len(t, queue.entries, 1)
}

func TestSubmit_EnqueueRetriesTransientFailure(t *testing.T) {
	dispatcher := &fakeDispatcher{outcome: dispatch.Outcome{Settled: false}}
	queue := &fakeEnqueuer{errs: []error{errors.New("redis hiccup")}}
	svc := setupPaymentService(dispatcher, queue, nil)

	resp, err := svc.Submit(context.Background(), submitRequest())
	require.NoError(t, err)
	assert.True(t, resp.Queued)
	assert.Len(t, queue.entries, 1)
}

func TestSubmit_QueueUnavailable(t *testing.T) {
	dispatcher := &fakeDispatcher{outcome: dispatch.Outcome{Settled: false}}
	queue := &fakeEnqueuer{errs: []error{errors.New("redis down"), errors.New("redis down")}}
	svc := setupPaymentService(dispatcher, queue, nil)

	_, err := svc.Submit(context.Background(), submitRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrQueueUnavailable)
}

func TestSubmit_InvalidInput(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	queue := &fakeEnqueuer{}
	svc := setupPaymentService(dispatcher, queue, nil)

	tests := []struct {
		name string
		req  SubmitPaymentRequest
	}{
		{"bad uuid", SubmitPaymentRequest{CorrelationID: "not-a-uuid", AmountCents: 100}},
		{"zero amount", SubmitPaymentRequest{CorrelationID: uuid.NewString(), AmountCents: 0}},
		{"negative amount", SubmitPaymentRequest{CorrelationID: uuid.NewString(), AmountCents: -50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tt.req)
			var vErr *domainErrors.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Zero(t, dispatcher.calls)
		})
	}
}

// --- Status Tests ---

func TestStatus_Settled(t *testing.T) {
	provider := payment.ProviderSecondary
	id := uuid.New()
	statuses := &fakeStatusFinder{status: payment.Status{
		CorrelationID: id,
		State:         payment.StateSettled,
		Provider:      &provider,
	}}
	svc := setupPaymentService(&fakeDispatcher{}, &fakeEnqueuer{}, statuses)

	status, err := svc.Status(context.Background(), id.String())
	require.NoError(t, err)
	assert.Equal(t, payment.StateSettled, status.State)
	assert.Equal(t, &provider, status.Provider)
}

func TestStatus_InvalidID(t *testing.T) {
	svc := setupPaymentService(&fakeDispatcher{}, &fakeEnqueuer{}, nil)

	_, err := svc.Status(context.Background(), "nope")
	var vErr *domainErrors.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestStatus_NotFound(t *testing.T) {
	statuses := &fakeStatusFinder{err: domainErrors.ErrPaymentNotFound}
	svc := setupPaymentService(&fakeDispatcher{}, &fakeEnqueuer{}, statuses)

	_, err := svc.Status(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, domainErrors.ErrPaymentNotFound)
}
