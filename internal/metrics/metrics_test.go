package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	switch {
	case out.Counter != nil:
		return out.Counter.GetValue()
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	case out.Histogram != nil:
		return float64(out.Histogram.GetSampleCount())
	}
	return 0
}

func TestMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"OperationsTotal", OperationsTotal},
		{"OperationDuration", OperationDuration},
		{"OperationsInFlight", OperationsInFlight},
		{"EncoderSelections", EncoderSelections},
		{"AudioDecisions", AudioDecisions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.metric)
		})
	}
}

func TestObserveOperation(t *testing.T) {
	ok := OperationsTotal.WithLabelValues("export", StatusSuccess)
	failed := OperationsTotal.WithLabelValues("export", StatusFailed)
	hist := OperationDuration.WithLabelValues("export").(prometheus.Metric)
	okBefore, failBefore, histBefore := value(t, ok), value(t, failed), value(t, hist)

	ObserveOperation("export", 1.5, nil)
	ObserveOperation("export", 0.2, errors.New("boom"))
	ObserveOperation("export", 3, nil)

	assert.Equal(t, okBefore+2, value(t, ok))
	assert.Equal(t, failBefore+1, value(t, failed))
	assert.Equal(t, histBefore+3, value(t, hist))
}

func TestInFlightGauge(t *testing.T) {
	before := value(t, OperationsInFlight)
	OperationsInFlight.Inc()
	assert.Equal(t, before+1, value(t, OperationsInFlight))
	OperationsInFlight.Dec()
	assert.Equal(t, before, value(t, OperationsInFlight))
}
