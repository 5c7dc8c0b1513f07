package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcome labels.
const (
	OutcomeSuccess                = "success"
	OutcomeValidationFailed       = "validation_failed"
	OutcomeInsufficientStock      = "insufficient_stock"
	OutcomePaymentDeclined        = "payment_declined"
	OutcomeReconciliationRequired = "reconciliation_required"
	OutcomeInternal               = "internal"
)

// CheckoutMetrics records duration and per-outcome counts for checkout runs.
type CheckoutMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout executions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_outcomes_total",
		Help: "Checkout executions by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(duration, outcomes)
	return &CheckoutMetrics{
		duration: duration,
		outcomes: outcomes,
	}
}

// Observe records one checkout run with its outcome and duration.
func (c *CheckoutMetrics) Observe(outcome string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	label := normalizeLabel(outcome)
	c.duration.WithLabelValues(label).Observe(duration.Seconds())
	c.outcomes.WithLabelValues(label).Inc()
}

func normalizeLabel(outcome string) string {
	if outcome == "" {
		return "unknown"
	}
	return outcome
}
