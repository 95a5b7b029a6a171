package providers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	domainErrors "github.com/rmedeiros/payrouter/internal/domain/errors"
	"github.com/rmedeiros/payrouter/internal/domain/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClient_SettleOnceThenDuplicate(t *testing.T) {
	client := NewMockClient(payment.ProviderPrimary)
	req := SettleRequest{CorrelationID: uuid.New(), AmountCents: 100}

	first, err := client.Settle(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.NotEmpty(t, first.TransactionRef)

	second, err := client.Settle(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
}

func TestMockClient_WithFailures(t *testing.T) {
	client := NewMockClient(payment.ProviderSecondary, WithFailures(2))
	req := SettleRequest{CorrelationID: uuid.New(), AmountCents: 100}

	_, err := client.Settle(context.Background(), req)
	assert.ErrorIs(t, err, domainErrors.ErrProviderUnavailable)
	_, err = client.Settle(context.Background(), req)
	assert.ErrorIs(t, err, domainErrors.ErrProviderUnavailable)

	res, err := client.Settle(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Len(t, client.Calls(), 3)
}

func TestMockClient_WithHealth(t *testing.T) {
	client := NewMockClient(payment.ProviderPrimary, WithHealth(HealthStatus{Failing: true, MinResponseTime: 900}))

	status, err := client.CheckHealth(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Failing)
	assert.Equal(t, 900, status.MinResponseTime)
}

func TestRegistry_OrderAndBreaker(t *testing.T) {
	primary := NewMockClient(payment.ProviderPrimary)
	secondary := NewMockClient(payment.ProviderSecondary)
	reg := NewRegistry(primary, secondary)

	assert.Equal(t, []payment.Provider{payment.ProviderPrimary, payment.ProviderSecondary}, reg.Ordered())

	res, err := reg.Settle(context.Background(), payment.ProviderPrimary, SettleRequest{CorrelationID: uuid.New(), AmountCents: 50})
	require.NoError(t, err)
	assert.NotEmpty(t, res.TransactionRef)

	_, err = reg.Settle(context.Background(), payment.Provider("unknown"), SettleRequest{})
	assert.Error(t, err)
}
