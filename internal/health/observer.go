package health

import (
	"strconv"

	"github.com/rmedeiros/payrouter/internal/domain/payment"
	"github.com/rmedeiros/payrouter/internal/infrastructure/observability"
)

// MetricsObserver publishes probe outcomes to the application metrics.
type MetricsObserver struct {
	Metrics *observability.Metrics
}

func (o *MetricsObserver) ObserveProbe(provider payment.Provider, failing bool, minResponseTimeMs int) {
	o.Metrics.HealthProbesTotal.WithLabelValues(string(provider), strconv.FormatBool(!failing)).Inc()
	o.Metrics.ProviderResponseTime.WithLabelValues(string(provider)).Set(float64(minResponseTimeMs))
}
