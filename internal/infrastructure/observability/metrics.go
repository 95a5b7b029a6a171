package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Settlement metrics
	SettlementAttemptsTotal *prometheus.CounterVec
	SettlementDuration      *prometheus.HistogramVec
	SettlementsRecorded     *prometheus.CounterVec
	PaymentsQueuedTotal     prometheus.Counter
	PaymentsAbandonedTotal  prometheus.Counter

	// Health monitor metrics
	HealthProbesTotal    *prometheus.CounterVec
	ProviderResponseTime *prometheus.GaugeVec

	// Retry queue metrics
	QueueDepth            *prometheus.GaugeVec
	RetriesScheduledTotal prometheus.Counter

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Worker metrics
	WorkerEntriesProcessed   *prometheus.CounterVec
	WorkerProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := prometheus.WrapRegistererWith(nil, reg)

	m := &Metrics{
		SettlementAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "settlement_attempts_total",
				Help:      "Total number of settlement attempts by provider and result",
			},
			[]string{"provider", "result"},
		),
		SettlementDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "settlement_duration_seconds",
				Help:      "Settlement attempt duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"provider"},
		),
		SettlementsRecorded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "settlements_recorded_total",
				Help:      "Total number of audit writes by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		PaymentsQueuedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payments_queued_total",
				Help:      "Total number of payments handed off to the retry queue",
			},
		),
		PaymentsAbandonedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payments_abandoned_total",
				Help:      "Total number of payments abandoned after exhausting retries",
			},
		),
		HealthProbesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "health_probes_total",
				Help:      "Total number of provider health probes by result",
			},
			[]string{"provider", "result"},
		),
		ProviderResponseTime: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "provider_min_response_time_ms",
				Help:      "Latest minResponseTime reported by each provider",
			},
			[]string{"provider"},
		),
		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "retry_queue_depth",
				Help:      "Entries resident in the retry queue by stage",
			},
			[]string{"stage"},
		),
		RetriesScheduledTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_scheduled_total",
				Help:      "Total number of retries scheduled with backoff",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		WorkerEntriesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "worker_entries_processed_total",
				Help:      "Total number of queue entries processed by terminal status",
			},
			[]string{"status"},
		),
		WorkerProcessingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "worker_processing_duration_seconds",
				Help:      "Queue entry processing duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
		),
	}

	// Register all collectors
	factory.MustRegister(
		m.SettlementAttemptsTotal,
		m.SettlementDuration,
		m.SettlementsRecorded,
		m.PaymentsQueuedTotal,
		m.PaymentsAbandonedTotal,
		m.HealthProbesTotal,
		m.ProviderResponseTime,
		m.QueueDepth,
		m.RetriesScheduledTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.WorkerEntriesProcessed,
		m.WorkerProcessingDuration,
	)

	return m
}
