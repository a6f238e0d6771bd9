/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package resultcache

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector represents a collector of metrics for ResultCache.
type MetricsCollector interface {
	IncHits()
	IncMisses()
	IncComputeErrors()
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	Namespace   string
	ConstLabels prometheus.Labels
	// CurriedLabelNames must be curried with MustCurryWith before use.
	CurriedLabelNames []string
}

// PrometheusMetrics is a MetricsCollector backed by Prometheus.
type PrometheusMetrics struct {
	Hits          *prometheus.CounterVec
	Misses        *prometheus.CounterVec
	ComputeErrors *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	newCounter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        name,
			Help:        help,
			ConstLabels: opts.ConstLabels,
		}, append([]string{}, opts.CurriedLabelNames...))
	}
	return &PrometheusMetrics{
		Hits:          newCounter("result_cache_hits_total", "Number of results served from the cache."),
		Misses:        newCounter("result_cache_misses_total", "Number of absent or expired results."),
		ComputeErrors: newCounter("result_cache_compute_errors_total", "Number of failed computations."),
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		Hits:          pm.Hits.MustCurryWith(labels),
		Misses:        pm.Misses.MustCurryWith(labels),
		ComputeErrors: pm.ComputeErrors.MustCurryWith(labels),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.Hits, pm.Misses, pm.ComputeErrors)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.Hits)
	prometheus.Unregister(pm.Misses)
	prometheus.Unregister(pm.ComputeErrors)
}

// IncHits increments the hits counter.
func (pm *PrometheusMetrics) IncHits() {
	pm.Hits.With(nil).Inc()
}

// IncMisses increments the misses counter.
func (pm *PrometheusMetrics) IncMisses() {
	pm.Misses.With(nil).Inc()
}

// IncComputeErrors increments the compute errors counter.
func (pm *PrometheusMetrics) IncComputeErrors() {
	pm.ComputeErrors.With(nil).Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) IncHits()          {}
func (disabledMetrics) IncMisses()        {}
func (disabledMetrics) IncComputeErrors() {}
