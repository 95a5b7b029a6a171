package controller

import (
	"math"
	"time"

	"github.com/rmedeiros/payrouter/internal/domain/payment"
	"github.com/rmedeiros/payrouter/internal/service"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns (float64 for money, string for
// IDs, validation tags). Controllers convert these to service layer
// DTOs before calling business logic.

// SubmitPaymentRequest holds the input for submitting a payment.
type SubmitPaymentRequest struct {
	CorrelationID string     `json:"correlationId" validate:"required,uuid"`
	Amount        float64    `json:"amount" validate:"required,gt=0"`
	RequestedAt   *time.Time `json:"requestedAt,omitempty"`
}

// --- Response DTOs ---

// PaymentResponse reports how a payment submission ended.
type PaymentResponse struct {
	CorrelationID string  `json:"correlationId"`
	Status        string  `json:"status"`
	Provider      *string `json:"provider,omitempty"`
}

// StatusResponse represents a payment's current state.
type StatusResponse struct {
	CorrelationID string  `json:"correlationId"`
	Status        string  `json:"status"`
	Provider      *string `json:"provider,omitempty"`
	Attempts      int     `json:"attempts,omitempty"`
}

// ProviderSummaryResponse aggregates one provider's settled payments.
type ProviderSummaryResponse struct {
	TotalRequests int64   `json:"totalRequests"`
	TotalAmount   float64 `json:"totalAmount"`
}

// SummaryResponse is the two-provider reconciliation aggregate.
type SummaryResponse struct {
	Primary   ProviderSummaryResponse `json:"primary"`
	Secondary ProviderSummaryResponse `json:"secondary"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// --- Conversions ---

// FromSubmitResponse converts a service submit result to its API shape.
func FromSubmitResponse(resp *service.SubmitPaymentResponse) PaymentResponse {
	out := PaymentResponse{
		CorrelationID: resp.CorrelationID.String(),
		Status:        "queued",
	}
	if resp.Settled {
		out.Status = "settled"
	}
	if resp.Provider != nil {
		p := string(*resp.Provider)
		out.Provider = &p
	}
	return out
}

// FromStatus converts a domain payment status to its API shape.
func FromStatus(status payment.Status) StatusResponse {
	out := StatusResponse{
		CorrelationID: status.CorrelationID.String(),
		Status:        string(status.State),
		Attempts:      status.Attempts,
	}
	if status.Provider != nil {
		p := string(*status.Provider)
		out.Provider = &p
	}
	return out
}

// FromSummary converts a domain summary to its API shape.
func FromSummary(summary payment.Summary) SummaryResponse {
	return SummaryResponse{
		Primary: ProviderSummaryResponse{
			TotalRequests: summary.Primary.TotalRequests,
			TotalAmount:   centsToFloat(summary.Primary.TotalAmountCents),
		},
		Secondary: ProviderSummaryResponse{
			TotalRequests: summary.Secondary.TotalRequests,
			TotalAmount:   centsToFloat(summary.Secondary.TotalAmountCents),
		},
	}
}

// floatToCents converts a float dollar amount to cents, rounding to the
// nearest cent.
func floatToCents(f float64) int64 {
	return int64(math.Round(f * 100))
}

// centsToFloat converts cents to a float dollar amount.
func centsToFloat(cents int64) float64 {
	return float64(cents) / 100.0
}
