package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	domainErrors "github.com/rmedeiros/payrouter/internal/domain/errors"
	"github.com/rmedeiros/payrouter/internal/domain/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settleReq() SettleRequest {
	return SettleRequest{
		CorrelationID: uuid.New(),
		AmountCents:   10050,
		RequestedAt:   time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
}

func TestHTTPClient_Settle_Success(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/payments", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"transactionRef": "txn_123", "message": "payment processed"})
	}))
	defer srv.Close()

	client := NewHTTPClient(payment.ProviderPrimary, srv.URL, 2*time.Second)
	req := settleReq()

	res, err := client.Settle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "txn_123", res.TransactionRef)
	assert.False(t, res.Duplicate)

	assert.Equal(t, req.CorrelationID.String(), received["correlationId"])
	assert.Equal(t, 100.50, received["amount"])
}

func TestHTTPClient_Settle_DuplicateIsSuccess(t *testing.T) {
	for _, status := range []int{http.StatusConflict, http.StatusUnprocessableEntity} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		client := NewHTTPClient(payment.ProviderPrimary, srv.URL, 2*time.Second)
		res, err := client.Settle(context.Background(), settleReq())
		require.NoError(t, err)
		assert.True(t, res.Duplicate)
		srv.Close()
	}
}

func TestHTTPClient_Settle_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewHTTPClient(payment.ProviderSecondary, srv.URL, 2*time.Second)
	_, err := client.Settle(context.Background(), settleReq())
	assert.ErrorIs(t, err, domainErrors.ErrProviderUnavailable)
}

func TestHTTPClient_Settle_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewHTTPClient(payment.ProviderPrimary, srv.URL, 2*time.Second)
	_, err := client.Settle(context.Background(), settleReq())
	assert.ErrorIs(t, err, domainErrors.ErrProviderRejected)
}

func TestHTTPClient_Settle_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewHTTPClient(payment.ProviderPrimary, srv.URL, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Settle(ctx, settleReq())
	assert.ErrorIs(t, err, domainErrors.ErrProviderTimeout)
}

func TestHTTPClient_CheckHealth_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/payments/service-health", r.URL.Path)
		json.NewEncoder(w).Encode(HealthStatus{Failing: true, MinResponseTime: 750})
	}))
	defer srv.Close()

	client := NewHTTPClient(payment.ProviderPrimary, srv.URL, 2*time.Second)
	status, err := client.CheckHealth(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Failing)
	assert.Equal(t, 750, status.MinResponseTime)
}

func TestHTTPClient_CheckHealth_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := NewHTTPClient(payment.ProviderPrimary, srv.URL, 2*time.Second)
	_, err := client.CheckHealth(context.Background())
	assert.Error(t, err)
}

func TestHTTPClient_CheckHealth_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewHTTPClient(payment.ProviderPrimary, srv.URL, 2*time.Second)
	_, err := client.CheckHealth(context.Background())
	assert.ErrorIs(t, err, domainErrors.ErrProviderUnavailable)
}

func TestCentsToDecimal(t *testing.T) {
	tests := []struct {
		cents    int64
		expected string
	}{
		{10050, "100.50"},
		{100, "1.00"},
		{5, "0.05"},
		{-250, "-2.50"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, string(centsToDecimal(tt.cents)))
	}
}
