package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tve/scum-tuning/tuning"
)

func Test_ChannelIndexRoundTrip(t *testing.T) {
	for c := MinChannel; c <= MaxChannel; c++ {
		assert.Equal(t, c, IndexToChannel(ChannelToIndex(c)))
	}
}

func Test_New_AllUncalibrated(t *testing.T) {
	r := New()
	assert.False(t, r.AllCalibrated(RX))
	assert.False(t, r.AllCalibrated(TX))
	assert.Equal(t, 0, r.CalibratedCount(RX))
}

func Test_SetGetTuningCode(t *testing.T) {
	r := New()
	code := tuning.TuningCode{Coarse: 22, Mid: 15, Fine: 3}
	r.SetTuningCode(17, RX, code)

	got, ok := r.GetTuningCode(17, RX)
	require.True(t, ok)
	assert.Equal(t, code, got)

	_, ok = r.GetTuningCode(17, TX)
	require.True(t, ok)
	_, ok = r.GetTuningCode(27, RX) // out of range
	assert.False(t, ok)
}

func Test_UnknownChannel_IsNoOp(t *testing.T) {
	r := New()
	r.SetTuningCode(99, RX, tuning.TuningCode{Coarse: 1, Mid: 1, Fine: 1})
	assert.Nil(t, r.Info(99))
}

func Test_MarkCalibrated_Latches(t *testing.T) {
	r := New()
	r.RecordFailure(17, RX)
	r.RecordFailure(17, RX)
	r.MarkCalibrated(17, RX)

	assert.True(t, r.Calibrated(17, RX))
	assert.Equal(t, 0, r.Info(17).RX.NumFailures)

	// Calibrated never clears on subsequent failures; it's a one-way latch.
	r.RecordFailure(17, RX)
	assert.True(t, r.Calibrated(17, RX))
}

func Test_AllCalibrated(t *testing.T) {
	r := New()
	for _, c := range Channels() {
		r.MarkCalibrated(c, RX)
	}
	assert.True(t, r.AllCalibrated(RX))
	assert.False(t, r.AllCalibrated(TX))
	assert.Equal(t, NumChannels, r.CalibratedCount(RX))
}
