package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tve/scum-tuning/registry"
	"github.com/tve/scum-tuning/tuning"
)

func newCalibrated(channel int, code tuning.TuningCode) *registry.Registry {
	r := registry.New()
	r.SetTuningCode(channel, registry.RX, code)
	r.MarkCalibrated(channel, registry.RX)
	return r
}

func Test_Observe_BelowMinSamples_NoAction(t *testing.T) {
	r := newCalibrated(17, tuning.TuningCode{Coarse: 22, Mid: 15, Fine: 10})
	c := New(r, nil)

	require.NoError(t, c.Observe(17, Nominal+100))
	require.NoError(t, c.Observe(17, Nominal+100))

	got, _ := r.GetTuningCode(17, registry.RX)
	assert.Equal(t, tuning.TuningCode{Coarse: 22, Mid: 15, Fine: 10}, got)
}

func Test_Observe_InBand_NoAction(t *testing.T) {
	r := newCalibrated(17, tuning.TuningCode{Coarse: 22, Mid: 15, Fine: 10})
	c := New(r, nil)

	for i := 0; i < MinIFEstimates; i++ {
		require.NoError(t, c.Observe(17, Nominal))
	}

	got, _ := r.GetTuningCode(17, registry.RX)
	assert.Equal(t, tuning.TuningCode{Coarse: 22, Mid: 15, Fine: 10}, got)
}

// Test_Observe_HighAverage_DecrementsFine pins scenario S3: a sustained
// high IF average nudges the RX fine code down by one.
func Test_Observe_HighAverage_DecrementsFine(t *testing.T) {
	r := newCalibrated(17, tuning.TuningCode{Coarse: 22, Mid: 15, Fine: 10})
	c := New(r, nil)

	for i := 0; i < MinIFEstimates; i++ {
		require.NoError(t, c.Observe(17, Nominal+MaxIFOffset+1))
	}

	got, _ := r.GetTuningCode(17, registry.RX)
	assert.Equal(t, tuning.TuningCode{Coarse: 22, Mid: 15, Fine: 9}, got)
}

func Test_Observe_LowAverage_IncrementsFine(t *testing.T) {
	r := newCalibrated(17, tuning.TuningCode{Coarse: 22, Mid: 15, Fine: 10})
	c := New(r, nil)

	for i := 0; i < MinIFEstimates; i++ {
		require.NoError(t, c.Observe(17, Nominal-MaxIFOffset-1))
	}

	got, _ := r.GetTuningCode(17, registry.RX)
	assert.Equal(t, tuning.TuningCode{Coarse: 22, Mid: 15, Fine: 11}, got)
}

func Test_Observe_CorrectionResetsWindow(t *testing.T) {
	r := newCalibrated(17, tuning.TuningCode{Coarse: 22, Mid: 15, Fine: 10})
	c := New(r, nil)

	for i := 0; i < MinIFEstimates; i++ {
		require.NoError(t, c.Observe(17, Nominal+MaxIFOffset+1))
	}
	assert.Equal(t, 0, c.windows[registry.ChannelToIndex(17)].Len())
}

func Test_Observe_ZeroEstimate_Ignored(t *testing.T) {
	r := newCalibrated(17, tuning.TuningCode{Coarse: 22, Mid: 15, Fine: 10})
	c := New(r, nil)

	for i := 0; i < MinIFEstimates+5; i++ {
		require.NoError(t, c.Observe(17, 0))
	}
	assert.Equal(t, 0, c.windows[registry.ChannelToIndex(17)].Len())
}

func Test_Observe_UnknownChannel_NoError(t *testing.T) {
	r := registry.New()
	c := New(r, nil)
	assert.NoError(t, c.Observe(99, Nominal+1000))
}
