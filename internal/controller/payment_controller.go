package controller

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rmedeiros/payrouter/internal/service"
)

// PaymentController handles payment intake and reconciliation queries.
type PaymentController struct {
	paymentService *service.PaymentService
	summaryService *service.SummaryService
}

// NewPaymentController creates a new PaymentController.
func NewPaymentController(
	paymentService *service.PaymentService,
	summaryService *service.SummaryService,
) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		summaryService: summaryService,
	}
}

// SubmitPayment handles POST /payments
func (h *PaymentController) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req SubmitPaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var requestedAt time.Time
	if req.RequestedAt != nil {
		requestedAt = *req.RequestedAt
	}

	resp, err := h.paymentService.Submit(r.Context(), service.SubmitPaymentRequest{
		CorrelationID: req.CorrelationID,
		AmountCents:   floatToCents(req.Amount),
		RequestedAt:   requestedAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if resp.Queued {
		status = http.StatusAccepted
	}
	writeJSON(w, status, FromSubmitResponse(resp))
}

// GetPayment handles GET /payments/{correlationId}
func (h *PaymentController) GetPayment(w http.ResponseWriter, r *http.Request) {
	status, err := h.paymentService.Status(r.Context(), chi.URLParam(r, "correlationId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromStatus(status))
}

// GetSummary handles GET /payments-summary
func (h *PaymentController) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.summaryService.Summarize(
		r.Context(),
		r.URL.Query().Get("from"),
		r.URL.Query().Get("to"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, FromSummary(summary))
}
