// ABOUTME: Prometheus collectors for client operations and analysis calls
// ABOUTME: Each Metrics value owns its registry so tests and commands never share globals
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "agencycrm"

const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics groups the collectors recorded by the client service and analyzers.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	AnalysisTotal     *prometheus.CounterVec
	AnalysisDuration  *prometheus.HistogramVec
}

// New builds the collectors and registers them on a fresh registry, along
// with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "client_operations_total",
				Help:      "Total number of client operations",
			},
			[]string{"op", "result"},
		),

		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "client_operation_duration_seconds",
				Help:      "Duration of client operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),

		AnalysisTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "analysis_requests_total",
				Help:      "Total number of analysis requests",
			},
			[]string{"call", "result"},
		),

		AnalysisDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "analysis_duration_seconds",
				Help:      "Duration of analysis requests in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"call"},
		),
	}

	m.registry.MustRegister(
		m.OperationsTotal,
		m.OperationDuration,
		m.AnalysisTotal,
		m.AnalysisDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveOperation records one client operation that started at start.
func (m *Metrics) ObserveOperation(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.OperationsTotal.WithLabelValues(op, result(err)).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// ObserveAnalysis records one analyzer call that started at start.
func (m *Metrics) ObserveAnalysis(call string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.AnalysisTotal.WithLabelValues(call, result(err)).Inc()
	m.AnalysisDuration.WithLabelValues(call).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
