package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	domainErrors "github.com/rmedeiros/payrouter/internal/domain/errors"
	"github.com/rmedeiros/payrouter/internal/domain/payment"
)

// HTTPClient speaks the provider wire contract: POST /payments to settle
// and GET /payments/service-health to probe.
type HTTPClient struct {
	name       payment.Provider
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a provider client for the given base URL. The
// timeout bounds every settlement call; health probes carry their own
// context deadline.
func NewHTTPClient(name payment.Provider, baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		name:    name,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HTTPClient) Name() payment.Provider { return c.name }

type settleBody struct {
	CorrelationID uuid.UUID   `json:"correlationId"`
	Amount        json.Number `json:"amount"`
	RequestedAt   time.Time   `json:"requestedAt"`
}

type settleResponse struct {
	TransactionRef string `json:"transactionRef"`
	Message        string `json:"message"`
}

// Settle submits the payment. A 409/422 from the provider means the
// correlation ID was already settled there; that is reported as a
// duplicate success, not an error.
func (c *HTTPClient) Settle(ctx context.Context, req SettleRequest) (*SettleResult, error) {
	body := settleBody{
		CorrelationID: req.CorrelationID,
		Amount:        centsToDecimal(req.AmountCents),
		RequestedAt:   req.RequestedAt.UTC(),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal settle request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build settle request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: %w", c.name, domainErrors.ErrProviderTimeout)
		}
		return nil, fmt.Errorf("%s: %w: %v", c.name, domainErrors.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var sr settleResponse
		// Body shape is provider-specific; transactionRef is optional.
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&sr)
		return &SettleResult{TransactionRef: sr.TransactionRef}, nil
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity:
		// Correlation ID already settled on this provider.
		return &SettleResult{Duplicate: true}, nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%s: status %d: %w", c.name, resp.StatusCode, domainErrors.ErrProviderUnavailable)
	default:
		return nil, fmt.Errorf("%s: status %d: %w", c.name, resp.StatusCode, domainErrors.ErrProviderRejected)
	}
}

// CheckHealth probes the provider health endpoint. Callers own the rate
// limit; this method never self-throttles.
func (c *HTTPClient) CheckHealth(ctx context.Context) (*HealthStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payments/service-health", nil)
	if err != nil {
		return nil, fmt.Errorf("build health request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s health: %w", c.name, domainErrors.ErrProviderTimeout)
		}
		return nil, fmt.Errorf("%s health: %w: %v", c.name, domainErrors.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s health: status %d: %w", c.name, resp.StatusCode, domainErrors.ErrProviderUnavailable)
	}

	var status HealthStatus
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&status); err != nil {
		return nil, fmt.Errorf("%s health: decode body: %w", c.name, err)
	}
	return &status, nil
}

// centsToDecimal renders an amount in cents as a two-decimal JSON number.
func centsToDecimal(cents int64) json.Number {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return json.Number(sign + strconv.FormatInt(cents/100, 10) + "." + fmt.Sprintf("%02d", cents%100))
}
