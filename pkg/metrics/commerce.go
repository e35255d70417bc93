package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics tracks checkout outcomes and latency.
type CheckoutMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

// NewCheckoutMetrics registers checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "orgreeni_checkout_duration_seconds",
		Help:    "Duration of checkout attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orgreeni_checkout_total",
		Help: "Checkout attempts by outcome code.",
	}, []string{"outcome"})
	reg.MustRegister(duration, outcomes)
	return &CheckoutMetrics{duration: duration, outcomes: outcomes}
}

// Observe records a finished checkout. An empty outcome means success.
func (c *CheckoutMetrics) Observe(outcome string, elapsed time.Duration) {
	if c == nil || c.outcomes == nil {
		return
	}
	if outcome == "" {
		outcome = "success"
	}
	c.outcomes.WithLabelValues(outcome).Inc()
	c.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// InventoryMetrics tracks ledger mutations.
type InventoryMetrics struct {
	adjustments *prometheus.CounterVec
	units       *prometheus.CounterVec
	lowStock    prometheus.Counter
}

// NewInventoryMetrics registers ledger metrics on the provided registerer.
func NewInventoryMetrics(reg prometheus.Registerer) *InventoryMetrics {
	if reg == nil {
		return &InventoryMetrics{}
	}
	adjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orgreeni_inventory_adjustments_total",
		Help: "Inventory ledger rows written by transaction type.",
	}, []string{"type"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orgreeni_inventory_units_total",
		Help: "Absolute units moved through the ledger by transaction type.",
	}, []string{"type"})
	lowStock := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orgreeni_inventory_low_stock_crossings_total",
		Help: "Adjustments that moved a product into low stock.",
	})
	reg.MustRegister(adjustments, units, lowStock)
	return &InventoryMetrics{adjustments: adjustments, units: units, lowStock: lowStock}
}

// ObserveAdjustment records one ledger row.
func (m *InventoryMetrics) ObserveAdjustment(txType string, delta int) {
	if m == nil || m.adjustments == nil {
		return
	}
	if delta < 0 {
		delta = -delta
	}
	m.adjustments.WithLabelValues(normalizeLabel(txType)).Inc()
	m.units.WithLabelValues(normalizeLabel(txType)).Add(float64(delta))
}

// IncLowStock records a crossing into low stock.
func (m *InventoryMetrics) IncLowStock() {
	if m == nil || m.lowStock == nil {
		return
	}
	m.lowStock.Inc()
}
