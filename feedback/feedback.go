// Package feedback implements the tuning-feedback controller: during
// steady-state operation, after a channel has been calibrated, each
// received frame yields an IF-count estimate that the controller
// averages over a short window and, when the average drifts out of
// band, uses to nudge the channel's RX fine code by one step.
package feedback

import (
	"github.com/tve/scum-tuning/registry"
	"github.com/tve/scum-tuning/tuning"
)

// Tunables, named per spec section 4.5.
const (
	// Nominal is the IF count corresponding to the target 2.5MHz
	// intermediate frequency.
	Nominal = 500

	// MaxIFOffset bounds the on-frequency band around Nominal.
	MaxIFOffset = 25

	// MinIFEstimates is the fewest window samples required before the
	// controller will act.
	MinIFEstimates = 3
)

// LogPrintf matches the logging callback shape used throughout this
// module, nil-safe by default.
type LogPrintf func(format string, v ...interface{})

// Controller runs the closed-loop RX fine-code correction of spec
// section 4.5 against a shared *registry.Registry, which must already
// hold a calibrated RX code for any channel Observe is called with.
//
// The sign convention resolves spec section 9's open question: a high
// IF average means the local oscillator is running low, so the
// controller walks it up by decrementing fine; a low average
// increments fine. This matches the worked example in spec section 8
// (scenario S3, property 14).
type Controller struct {
	reg     *registry.Registry
	windows [registry.NumChannels]registry.IFEstimateWindow
	log     LogPrintf
}

// New returns a Controller bound to reg. log may be nil.
func New(reg *registry.Registry, log LogPrintf) *Controller {
	if log == nil {
		log = func(string, ...interface{}) {}
	}
	return &Controller{reg: reg, log: log}
}

// Observe feeds one received frame's IF-count estimate for channel into
// the controller. A zero estimate is invalid and is never averaged in.
// Once the channel's window holds at least MinIFEstimates samples, the
// running average is compared to the [Nominal-MaxIFOffset,
// Nominal+MaxIFOffset] band; a single correction step is applied on
// drift, and the window is cleared so the next decision is judged on
// fresh samples.
func (c *Controller) Observe(channel int, ifEstimate int) error {
	if ifEstimate == 0 {
		return nil
	}
	idx := registry.ChannelToIndex(channel)
	if idx < 0 || idx >= registry.NumChannels {
		return nil
	}
	w := &c.windows[idx]
	w.Push(ifEstimate)
	if w.Len() < MinIFEstimates {
		return nil
	}

	avg := w.Average()
	switch {
	case avg > Nominal+MaxIFOffset:
		return c.correct(channel, w, tuning.TuningCode.DecrementFine)
	case avg < Nominal-MaxIFOffset:
		return c.correct(channel, w, tuning.TuningCode.IncrementFine)
	default:
		return nil
	}
}

func (c *Controller) correct(channel int, w *registry.IFEstimateWindow, step func(tuning.TuningCode, byte) (tuning.TuningCode, error)) error {
	code, ok := c.reg.GetTuningCode(channel, registry.RX)
	if !ok {
		return nil
	}
	next, err := step(code, 1)
	if err != nil {
		return err
	}
	c.reg.SetTuningCode(channel, registry.RX, next)
	w.Reset()
	c.log("RX %d %s", channel, next)
	return nil
}
