package webhook

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// deliveredTotal tracks successfully delivered events.
	deliveredTotal prometheus.Counter

	// failedTotal tracks events whose retry budget was exhausted.
	failedTotal prometheus.Counter

	// metricsOnce ensures metrics are only registered once.
	metricsOnce sync.Once

	// metricsRegistered indicates if metrics have been registered.
	metricsRegistered bool
)

// InitMetrics registers the Prometheus metrics for webhook delivery.
// Call once at startup if metrics are enabled.
func InitMetrics() {
	metricsOnce.Do(func() {
		deliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "certrenew_webhook_delivered_total",
			Help: "Total number of webhook events delivered successfully",
		})
		failedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "certrenew_webhook_failed_total",
			Help: "Total number of webhook events that exhausted their retry budget",
		})
		metricsRegistered = true
	})
}

// Safe to call even if metrics have not been initialized.
func incrementDelivered() {
	if metricsRegistered && deliveredTotal != nil {
		deliveredTotal.Inc()
	}
}

func incrementFailed() {
	if metricsRegistered && failedTotal != nil {
		failedTotal.Inc()
	}
}
