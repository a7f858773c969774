package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tve/scum-tuning/registry"
	"github.com/tve/scum-tuning/tuning"
)

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m.GetLabel(), labels) {
				return m.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(pairs []*dto.LabelPair, want map[string]string) bool {
	if len(pairs) != len(want) {
		return false
	}
	for _, p := range pairs {
		if want[p.GetName()] != p.GetValue() {
			return false
		}
	}
	return true
}

func Test_ObserveChannelMode_SetsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	r := registry.New()
	r.SetTuningCode(17, registry.RX, tuning.TuningCode{Coarse: 22, Mid: 15, Fine: 3})
	r.MarkCalibrated(17, registry.RX)
	r.RecordFailure(17, registry.RX)

	p.ObserveChannelMode(r, 17, registry.RX)

	labels := map[string]string{"channel": "17", "mode": "RX"}
	assert.Equal(t, 22.0, gaugeValue(t, reg, "scum_tuning_code_coarse", labels))
	assert.Equal(t, 15.0, gaugeValue(t, reg, "scum_tuning_code_mid", labels))
	assert.Equal(t, 3.0, gaugeValue(t, reg, "scum_tuning_code_fine", labels))
	assert.Equal(t, 1.0, gaugeValue(t, reg, "scum_tuning_calibrated", labels))
	assert.Equal(t, 1.0, gaugeValue(t, reg, "scum_tuning_num_failures", labels))
}

func Test_ObserveChannelMode_UnknownChannel_NoPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)
	r := registry.New()

	assert.NotPanics(t, func() { p.ObserveChannelMode(r, 99, registry.RX) })
}

func Test_ObserveIFEstimate_SetsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.ObserveIFEstimate(18, 512)

	assert.Equal(t, 512.0, gaugeValue(t, reg, "scum_tuning_if_estimate_avg", map[string]string{"channel": "18"}))
}
