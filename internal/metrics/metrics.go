package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics of one autokudos invocation
type Metrics struct {
	registry *prometheus.Registry

	// Run metrics
	RunsTotal        *prometheus.CounterVec
	LastRunTimestamp prometheus.Gauge

	// Step metrics
	StepDuration    *prometheus.HistogramVec
	StepErrorsTotal *prometheus.CounterVec

	// Portal metrics
	RowsScanned    prometheus.Gauge
	DownloadsTotal prometheus.Counter
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autokudos_runs_total",
				Help: "Total number of runs by outcome",
			},
			[]string{"outcome"},
		),
		LastRunTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "autokudos_last_run_timestamp_seconds",
				Help: "Unix time the last run finished",
			},
		),

		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autokudos_step_duration_seconds",
				Help:    "Duration of run steps in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"step"},
		),
		StepErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autokudos_step_errors_total",
				Help: "Total number of failed steps by error kind",
			},
			[]string{"step", "error_type"},
		),

		RowsScanned: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "autokudos_booking_rows_scanned",
				Help: "Number of booking rows read from the portal",
			},
		),
		DownloadsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "autokudos_downloads_total",
				Help: "Total number of info files downloaded",
			},
		),
	}

	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(m.RunsTotal)
	m.registry.MustRegister(m.LastRunTimestamp)
	m.registry.MustRegister(m.StepDuration)
	m.registry.MustRegister(m.StepErrorsTotal)
	m.registry.MustRegister(m.RowsScanned)
	m.registry.MustRegister(m.DownloadsTotal)
}

// ObserveStep records how long a step took and, on failure, its error kind
func (m *Metrics) ObserveStep(step string, started time.Time, errorType string) {
	if m == nil {
		return
	}
	m.StepDuration.WithLabelValues(step).Observe(time.Since(started).Seconds())
	if errorType != "" {
		m.StepErrorsTotal.WithLabelValues(step, errorType).Inc()
	}
}

// RecordRun counts a finished run
func (m *Metrics) RecordRun(outcome string, finished time.Time) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.LastRunTimestamp.Set(float64(finished.Unix()))
}

// WriteTextfile writes the metrics in the text exposition format for the
// node_exporter textfile collector. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
