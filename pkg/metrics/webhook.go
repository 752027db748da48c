package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics counts processor webhook outcomes by result.
type WebhookMetrics struct {
	received *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook counters on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Processor webhook deliveries by outcome.",
	}, []string{"kind", "outcome"})
	reg.MustRegister(received)
	return &WebhookMetrics{received: received}
}

// IncOutcome increments the counter for the event kind and outcome.
func (w *WebhookMetrics) IncOutcome(kind, outcome string) {
	if w == nil || w.received == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	w.received.WithLabelValues(kind, outcome).Inc()
}
