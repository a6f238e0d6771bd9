/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package throttle

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/shop-service/internal/rateguard"
)

const metricsLabelDecision = "decision"

// MetricsCollector represents a collector of metrics for throttling decisions.
type MetricsCollector interface {
	IncDecisions(decision rateguard.Decision)
	IncStoreErrors()
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	Namespace         string
	ConstLabels       prometheus.Labels
	CurriedLabelNames []string
}

// PrometheusMetrics is a MetricsCollector backed by Prometheus.
type PrometheusMetrics struct {
	Decisions   *prometheus.CounterVec
	StoreErrors *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   opts.Namespace,
		Name:        "throttle_decisions_total",
		Help:        "Number of throttling decisions by result.",
		ConstLabels: opts.ConstLabels,
	}, append(append([]string{}, opts.CurriedLabelNames...), metricsLabelDecision))

	storeErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   opts.Namespace,
		Name:        "throttle_store_errors_total",
		Help:        "Number of failed admission checks because of store errors.",
		ConstLabels: opts.ConstLabels,
	}, append([]string{}, opts.CurriedLabelNames...))

	return &PrometheusMetrics{Decisions: decisions, StoreErrors: storeErrors}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		Decisions:   pm.Decisions.MustCurryWith(labels),
		StoreErrors: pm.StoreErrors.MustCurryWith(labels),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.Decisions, pm.StoreErrors)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.Decisions)
	prometheus.Unregister(pm.StoreErrors)
}

// IncDecisions increments the counter of the given decision.
func (pm *PrometheusMetrics) IncDecisions(decision rateguard.Decision) {
	pm.Decisions.WithLabelValues(decision.String()).Inc()
}

// IncStoreErrors increments the counter of store failures.
func (pm *PrometheusMetrics) IncStoreErrors() {
	pm.StoreErrors.WithLabelValues().Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) IncDecisions(rateguard.Decision) {}
func (disabledMetrics) IncStoreErrors()                 {}
