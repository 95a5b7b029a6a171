package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rmedeiros/payrouter/internal/infrastructure/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Success(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("test", reg)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mw := Metrics(metrics)

	r := chi.NewRouter()
	r.Use(mw)
	r.Get("/payments-summary", handler)

	req := httptest.NewRequest("GET", "/payments-summary", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)

	var foundRequestsTotal, foundDuration bool
	for _, mf := range metricFamilies {
		if *mf.Name == "test_http_requests_total" {
			foundRequestsTotal = true
			assert.Greater(t, len(mf.Metric), 0)
		}
		if *mf.Name == "test_http_request_duration_seconds" {
			foundDuration = true
			assert.Greater(t, len(mf.Metric), 0)
		}
	}

	assert.True(t, foundRequestsTotal, "http_requests_total metric should be recorded")
	assert.True(t, foundDuration, "http_request_duration metric should be recorded")
}

func TestMetrics_DifferentStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"201 Created", http.StatusCreated},
		{"202 Accepted", http.StatusAccepted},
		{"400 Bad Request", http.StatusBadRequest},
		{"404 Not Found", http.StatusNotFound},
		{"503 Service Unavailable", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := prometheus.NewRegistry()
			metrics := observability.NewMetrics("test", reg)

			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
			})

			mw := Metrics(metrics)
			r := chi.NewRouter()
			r.Use(mw)
			r.Post("/payments", handler)

			req := httptest.NewRequest("POST", "/payments", nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			assert.Equal(t, tt.statusCode, w.Code)
		})
	}
}

func TestMetrics_RoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("test", reg)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mw := Metrics(metrics)
	r := chi.NewRouter()
	r.Use(mw)
	r.Get("/payments/{correlationId}", handler)

	req := httptest.NewRequest("GET", "/payments/3f9c15f5-86e4-4d15-900d-2c5dd9b1a2f0", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	// The recorded label must be the route pattern, not the raw path.
	metricFamilies, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range metricFamilies {
		if *mf.Name != "test_http_requests_total" {
			continue
		}
		for _, m := range mf.Metric {
			for _, label := range m.Label {
				if *label.Name == "path" {
					assert.Equal(t, "/payments/{correlationId}", *label.Value)
				}
			}
		}
	}
}

func TestStatusWriter_WriteHeader(t *testing.T) {
	w := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

	sw.WriteHeader(http.StatusAccepted)

	assert.Equal(t, http.StatusAccepted, sw.statusCode)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestStatusWriter_DefaultStatus(t *testing.T) {
	w := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

	sw.Write([]byte("test"))

	assert.Equal(t, http.StatusOK, sw.statusCode)
}
