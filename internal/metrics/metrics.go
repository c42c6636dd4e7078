// Package metrics provides Prometheus instrumentation for reframe. All
// metrics are prefixed with "reframe_" and registered on the default
// registry; serve mode exposes them over HTTP when a metrics address is
// configured.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation status label values.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Operation metrics
var (
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reframe_operations_total",
			Help: "Total number of operations by kind and final status",
		},
		[]string{"kind", "status"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reframe_operation_duration_seconds",
			Help:    "Operation duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"kind"},
	)

	OperationsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reframe_operations_in_flight",
			Help: "Number of operations currently running",
		},
	)
)

// Planning metrics
var (
	EncoderSelections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reframe_encoder_selections_total",
			Help: "Encoders chosen for exports",
		},
		[]string{"encoder"},
	)

	AudioDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reframe_audio_decisions_total",
			Help: "Audio handling chosen for exports (copy, reencode, fallback)",
		},
		[]string{"decision"},
	)
)

// ObserveOperation records one finished operation.
func ObserveOperation(kind string, seconds float64, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusFailed
	}
	OperationsTotal.WithLabelValues(kind, status).Inc()
	OperationDuration.WithLabelValues(kind).Observe(seconds)
}
