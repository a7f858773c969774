// Package metrics instruments the frequency-tuning subsystem: a
// Prometheus gauge set keyed by channel and mode, and an optional MQTT
// republisher of the same state as JSON for dashboards that don't
// scrape Prometheus directly.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tve/scum-tuning/registry"
)

// Prometheus holds the gauge vectors exported for the calibration
// subsystem, each labeled by channel and mode except the IF-estimate
// gauge, which is labeled by channel only.
type Prometheus struct {
	ifEstimateAvg *prometheus.GaugeVec
	numFailures   *prometheus.GaugeVec
	calibrated    *prometheus.GaugeVec
	tuningCoarse  *prometheus.GaugeVec
	tuningMid     *prometheus.GaugeVec
	tuningFine    *prometheus.GaugeVec
}

// NewPrometheus creates and registers the gauge vectors against reg.
// Pass prometheus.DefaultRegisterer for the global registry, or a
// fresh *prometheus.Registry in tests to avoid collisions across runs.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	labels := []string{"channel", "mode"}
	return &Prometheus{
		ifEstimateAvg: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scum_tuning_if_estimate_avg",
				Help: "Most recent windowed-average IF count estimate for a channel.",
			},
			[]string{"channel"},
		),
		numFailures: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scum_tuning_num_failures",
				Help: "Consecutive calibration failures for a channel/mode since the last success.",
			},
			labels,
		),
		calibrated: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scum_tuning_calibrated",
				Help: "1 if a channel/mode has completed calibration at least once, else 0.",
			},
			labels,
		),
		tuningCoarse: factory.NewGaugeVec(
			prometheus.GaugeOpts{Name: "scum_tuning_code_coarse", Help: "Current coarse tuning code."},
			labels,
		),
		tuningMid: factory.NewGaugeVec(
			prometheus.GaugeOpts{Name: "scum_tuning_code_mid", Help: "Current mid tuning code."},
			labels,
		),
		tuningFine: factory.NewGaugeVec(
			prometheus.GaugeOpts{Name: "scum_tuning_code_fine", Help: "Current fine tuning code."},
			labels,
		),
	}
}

// ObserveIFEstimate records the latest IF-estimate window average for
// a channel.
func (p *Prometheus) ObserveIFEstimate(channel int, avg int) {
	p.ifEstimateAvg.WithLabelValues(channelLabel(channel)).Set(float64(avg))
}

// ObserveChannelMode syncs every gauge for one (channel, mode) against
// the registry's current state.
func (p *Prometheus) ObserveChannelMode(reg *registry.Registry, channel int, mode registry.ChannelMode) {
	cl, ml := channelLabel(channel), mode.String()
	code, ok := reg.GetTuningCode(channel, mode)
	if !ok {
		return
	}
	p.tuningCoarse.WithLabelValues(cl, ml).Set(float64(code.Coarse))
	p.tuningMid.WithLabelValues(cl, ml).Set(float64(code.Mid))
	p.tuningFine.WithLabelValues(cl, ml).Set(float64(code.Fine))

	calibrated := 0.0
	if reg.Calibrated(channel, mode) {
		calibrated = 1.0
	}
	p.calibrated.WithLabelValues(cl, ml).Set(calibrated)
	p.numFailures.WithLabelValues(cl, ml).Set(float64(reg.NumFailures(channel, mode)))
}

func channelLabel(channel int) string {
	return strconv.Itoa(channel)
}
