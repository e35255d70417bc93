package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics tracks the relay from the outbox table to the broker.
type OutboxMetrics struct {
	events  *prometheus.CounterVec
	publish *prometheus.HistogramVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orgreeni_outbox_events_total",
		Help: "Outbox rows handled by the publisher, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	publish := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orgreeni_outbox_publish_duration_seconds",
		Help:    "Broker round trip per published event.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 15},
	}, []string{"transport"})
	reg.MustRegister(events, publish)
	return &OutboxMetrics{events: events, publish: publish}
}

// Event counts one row's outcome: published, retry or dead_lettered.
func (m *OutboxMetrics) Event(eventType, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(eventType, outcome).Inc()
}

func (m *OutboxMetrics) ObservePublish(transport string, elapsed time.Duration) {
	if m == nil || m.publish == nil {
		return
	}
	m.publish.WithLabelValues(transport).Observe(elapsed.Seconds())
}
