package calibration

import (
	"context"
	"time"

	"github.com/tve/scum-tuning/feedback"
	"github.com/tve/scum-tuning/metrics"
	"github.com/tve/scum-tuning/radio"
	"github.com/tve/scum-tuning/registry"
	"github.com/tve/scum-tuning/tuning"
)

// TuningSubsystemOpts bundles the optional collaborators a
// TuningSubsystem wires into its Engine: a Prometheus exporter, an
// MQTT telemetry publisher, and the poll cadence (telemetry is
// published every 30 seconds). All are nil-safe; a bare
// TuningSubsystemOpts{} runs with no telemetry.
type TuningSubsystemOpts struct {
	InitialChannel int
	InitialSweep   tuning.SweepConfig
	Logger         LogPrintf

	Metrics      *metrics.Prometheus
	MQTT         *metrics.MQTTPublisher
	PollInterval time.Duration
}

// TuningSubsystem owns an Engine and drives its main-loop side: the
// Poll calls spec section 4.3.2 requires outside ISR context, plus
// periodic telemetry publication. This is the type cmd/scum-tune
// constructs once at startup and runs for the process lifetime.
type TuningSubsystem struct {
	Engine *Engine
	reg    *registry.Registry
	opts   TuningSubsystemOpts
}

// NewTuningSubsystem builds the Engine from opts and wraps it.
func NewTuningSubsystem(reg *registry.Registry, fb *feedback.Controller, rad radio.Radio, sched Scheduler, opts TuningSubsystemOpts) (*TuningSubsystem, error) {
	engine, err := NewEngine(reg, fb, rad, sched, opts.InitialChannel, opts.InitialSweep, opts.Logger)
	if err != nil {
		return nil, err
	}
	return &TuningSubsystem{Engine: engine, reg: reg, opts: opts}, nil
}

// Run starts phase 1 calibration and then polls the engine and
// publishes telemetry until ctx is cancelled.
func (s *TuningSubsystem) Run(ctx context.Context) error {
	if err := s.Engine.Start(ctx); err != nil {
		return err
	}

	interval := s.opts.PollInterval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	publishEvery := 30 * time.Second
	lastPublish := time.Time{}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := s.Engine.Poll(); err != nil {
				return err
			}
			if now.Sub(lastPublish) >= publishEvery {
				s.publish()
				lastPublish = now
			}
		}
	}
}

// publish syncs every channel/mode's telemetry to whichever
// collaborators in opts are non-nil.
func (s *TuningSubsystem) publish() {
	if s.opts.Metrics == nil && s.opts.MQTT == nil {
		return
	}
	for _, ch := range registry.Channels() {
		for _, mode := range []registry.ChannelMode{registry.RX, registry.TX} {
			if s.opts.Metrics != nil {
				s.opts.Metrics.ObserveChannelMode(s.reg, ch, mode)
			}
			if s.opts.MQTT != nil {
				s.opts.MQTT.PublishChannelMode(s.reg, ch, mode)
			}
		}
	}
}
