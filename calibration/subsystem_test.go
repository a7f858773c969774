package calibration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tve/scum-tuning/feedback"
	"github.com/tve/scum-tuning/radio"
	"github.com/tve/scum-tuning/registry"
	"github.com/tve/scum-tuning/tuning"
)

func Test_TuningSubsystem_RunStopsOnContextCancel(t *testing.T) {
	reg := registry.New()
	fb := feedback.New(reg, nil)
	rad := radio.NewFakeRadio()
	timer := radio.NewFakeTimer()
	sched := NewBareMetalScheduler(timer, 1000)

	sweep := tuning.SweepConfig{
		Coarse: tuning.SweepRange{Start: 22, End: 22},
		Mid:    tuning.SweepRange{Start: 15, End: 15},
		Fine:   tuning.SweepRange{Start: 0, End: 5},
	}
	sub, err := NewTuningSubsystem(reg, fb, rad, sched, TuningSubsystemOpts{
		InitialChannel: 17,
		InitialSweep:   sweep,
		PollInterval:   time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
