package calibration

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tve/scum-tuning/feedback"
	"github.com/tve/scum-tuning/radio"
	"github.com/tve/scum-tuning/registry"
	"github.com/tve/scum-tuning/tuning"
)

// Tunables, named per spec section 4.3.
const (
	MaxNumFailures   = 2
	MidCodeThreshold = 24

	NormalRxTimeout = 500 * time.Millisecond
	LongRxTimeout   = 2 * time.Second

	DefaultInitialChannel = 17
)

// ErrSweepExhausted is returned when a channel/mode's sweep config has
// no more codes to try.
var ErrSweepExhausted = errors.New("calibration: sweep exhausted")

// LogPrintf matches the nil-safe logging callback used throughout
// this module.
type LogPrintf func(format string, v ...interface{})

type iterKey struct {
	channel int
	mode    registry.ChannelMode
}

// Engine drives the mote-side calibration protocol of spec section
// 4.3 against a shared *registry.Registry and a feedback.Controller
// that takes over once a channel is calibrated.
type Engine struct {
	reg   *registry.Registry
	fb    *feedback.Controller
	rad   radio.Radio
	sched Scheduler
	log   LogPrintf

	initialChannel int
	state          State

	iterators map[iterKey]*tuning.SweepIterator

	frameReceived atomic.Bool

	discoveredRX tuning.TuningCode
	discoveredTX tuning.TuningCode
}

// NewEngine returns an Engine in state INIT. initialSweep bounds the
// phase 1 search on initialChannel.
func NewEngine(reg *registry.Registry, fb *feedback.Controller, rad radio.Radio, sched Scheduler, initialChannel int, initialSweep tuning.SweepConfig, log LogPrintf) (*Engine, error) {
	if !initialSweep.Valid() {
		return nil, fmt.Errorf("calibration: %w", tuning.ErrInvalidSweepConfig)
	}
	if log == nil {
		log = func(string, ...interface{}) {}
	}
	iter, err := tuning.NewSweepIterator(initialSweep)
	if err != nil {
		return nil, fmt.Errorf("calibration: %w", err)
	}
	e := &Engine{
		reg:            reg,
		fb:             fb,
		rad:            rad,
		sched:          sched,
		log:            log,
		initialChannel: initialChannel,
		state:          StateInit,
		iterators:      map[iterKey]*tuning.SweepIterator{{initialChannel, registry.RX}: iter},
	}
	rad.SetStartFrameCB(func(time.Time) {})
	rad.SetEndFrameCB(e.onEndFrame)
	return e, nil
}

// State reports the engine's current state.
func (e *Engine) State() State { return e.state }

// Start begins phase 1: tunes the radio to the first code in the
// initial sweep, enables RX, and arms the sweep timer.
func (e *Engine) Start(ctx context.Context) error {
	e.state = StateInitialRX
	if err := e.tuneAndArm(); err != nil {
		return err
	}
	e.state = StateInitialRXIdle
	return nil
}

func (e *Engine) tuneAndArm() error {
	iter := e.iterators[iterKey{e.initialChannel, registry.RX}]
	code := iter.Code()
	if err := e.rad.SetFrequency(e.initialChannel, registry.RX, code); err != nil {
		return err
	}
	if err := e.rad.RFOn(); err != nil {
		return err
	}
	if err := e.rad.RxEnable(); err != nil {
		return err
	}
	timeout := NormalRxTimeout
	if code.Mid >= MidCodeThreshold {
		timeout = LongRxTimeout
	}
	e.sched.Schedule(timeout, e.onTimerFired)
	return nil
}

// onEndFrame runs in ISR context: it only inspects the frame and sets
// a flag, per spec section 5's no-blocking-in-ISR rule. A CRC failure
// is silently dropped, leaving the timer to govern progress.
func (e *Engine) onEndFrame(time.Time) {
	f, err := e.rad.GetReceivedFrame()
	if err != nil || !f.CRCOK {
		return
	}
	e.frameReceived.Store(true)
}

// onTimerFired runs when the phase 1 sweep timer expires with no
// frame received: advance the code and retry.
func (e *Engine) onTimerFired() {
	if e.state != StateInitialRXIdle {
		return
	}
	_ = e.rad.RFOff()
	iter := e.iterators[iterKey{e.initialChannel, registry.RX}]
	if !iter.IncrementFineForSweep() {
		e.log("calibration: initial sweep on channel %d exhausted", e.initialChannel)
		return
	}
	if err := e.tuneAndArm(); err != nil {
		e.log("calibration: retune failed: %v", err)
	}
}

// Poll must be called from the main loop; it completes the state
// transition that onEndFrame deferred, per spec section 4.3.2 step 3.
// It is a no-op unless a frame was received since the last Poll.
func (e *Engine) Poll() error {
	if e.state != StateInitialRXIdle || !e.frameReceived.CompareAndSwap(true, false) {
		return nil
	}
	e.sched.Cancel()
	e.state = StateInitialRXReceived
	return e.recordInitialSuccess()
}

// recordInitialSuccess latches the initial channel's RX (and derived
// TX) tuning code and seeds every other channel's sweep windows.
func (e *Engine) recordInitialSuccess() error {
	iter := e.iterators[iterKey{e.initialChannel, registry.RX}]
	e.discoveredRX = iter.Code()
	e.reg.SetTuningCode(e.initialChannel, registry.RX, e.discoveredRX)
	e.reg.MarkCalibrated(e.initialChannel, registry.RX)

	tx, err := e.discoveredRX.EstimateTxFromRx()
	if err != nil {
		return fmt.Errorf("calibration: estimating initial TX code: %w", err)
	}
	e.discoveredTX = tx
	e.reg.SetTuningCode(e.initialChannel, registry.TX, tx)

	e.state = StateRXDone
	if err := e.InitRemainingSweeps(); err != nil {
		return err
	}
	e.state = StateRemainingRX
	return nil
}

// InitRemainingSweeps implements spec section 4.3.3 step 1-3: a
// narrow confirmation window around the initial channel's discovered
// codes, and estimated RX/TX codes for every other channel stepping
// outward from it, each with its own narrow sweep window.
func (e *Engine) InitRemainingSweeps() error {
	rolloverK := byte(0)
	if e.discoveredRX.Mid < tuning.MidPerCoarseTransition/2 || e.discoveredRX.Mid+tuning.MidPerCoarseTransition/2 > tuning.MaxCode {
		rolloverK = 1
	}

	if err := e.seedSweep(e.initialChannel, registry.RX, e.discoveredRX, rolloverK); err != nil {
		return err
	}
	if err := e.seedSweep(e.initialChannel, registry.TX, e.discoveredTX, rolloverK); err != nil {
		return err
	}

	chans := registry.Channels()
	idx := -1
	for i, c := range chans {
		if c == e.initialChannel {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("calibration: initial channel %d out of range", e.initialChannel)
	}

	if err := e.extrapolate(chans[idx+1:], e.discoveredRX, e.discoveredTX, tuning.TuningCode.EstimateNextChannel); err != nil {
		return err
	}
	reversed := make([]int, len(chans[:idx]))
	for i, c := range chans[:idx] {
		reversed[len(reversed)-1-i] = c
	}
	return e.extrapolate(reversed, e.discoveredRX, e.discoveredTX, tuning.TuningCode.EstimatePreviousChannel)
}

func (e *Engine) extrapolate(chans []int, prevRX, prevTX tuning.TuningCode, step func(tuning.TuningCode) (tuning.TuningCode, error)) error {
	for _, c := range chans {
		nextRX, err := step(prevRX)
		if err != nil {
			return fmt.Errorf("calibration: extrapolating RX to channel %d: %w", c, err)
		}
		widenRX := byte(0)
		if absDiff(nextRX.Coarse, prevRX.Coarse) >= 2 {
			widenRX = 1
		}
		e.reg.SetTuningCode(c, registry.RX, nextRX)
		if err := e.seedSweep(c, registry.RX, nextRX, widenRX); err != nil {
			return err
		}

		nextTX, err := step(prevTX)
		if err != nil {
			return fmt.Errorf("calibration: extrapolating TX to channel %d: %w", c, err)
		}
		widenTX := byte(0)
		if absDiff(nextTX.Coarse, prevTX.Coarse) >= 2 {
			widenTX = 1
		}
		e.reg.SetTuningCode(c, registry.TX, nextTX)
		if err := e.seedSweep(c, registry.TX, nextTX, widenTX); err != nil {
			return err
		}

		prevRX, prevTX = nextRX, nextTX
	}
	return nil
}

func absDiff(a, b byte) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// seedSweep installs a narrow ping-pong sweep window centered on code
// for channel/mode, widened by one additional mid code on each side
// per additional unit of widen.
func (e *Engine) seedSweep(channel int, mode registry.ChannelMode, code tuning.TuningCode, widen byte) error {
	span := byte(1) + widen
	lo := code.Mid
	if lo > span {
		lo -= span
	} else {
		lo = tuning.MinCode
	}
	hi := code.Mid + span
	if hi > tuning.MaxCode {
		hi = tuning.MaxCode
	}
	cfg := tuning.SweepConfig{
		Coarse: tuning.SweepRange{Start: code.Coarse, End: code.Coarse},
		Mid:    tuning.SweepRange{Start: lo, End: hi},
		Fine:   tuning.SweepRange{Start: tuning.MinCode, End: tuning.MaxCode},
	}
	if !cfg.Valid() {
		return fmt.Errorf("calibration: channel %d %s: %w", channel, mode, tuning.ErrInvalidSweepConfig)
	}
	e.reg.SetSweepConfig(channel, mode, cfg)

	iter, err := tuning.NewSweepIterator(cfg)
	if err != nil {
		return fmt.Errorf("calibration: channel %d %s: %w", channel, mode, err)
	}
	e.iterators[iterKey{channel, mode}] = iter
	return nil
}

// advanceSweep steps channel/mode's sweep iterator by one code and
// stores the result as its current tuning code.
func (e *Engine) advanceSweep(channel int, mode registry.ChannelMode) error {
	key := iterKey{channel, mode}
	iter := e.iterators[key]
	if iter == nil {
		cfg := e.reg.Info(channel)
		if cfg == nil {
			return fmt.Errorf("calibration: unknown channel %d", channel)
		}
		var sweepCfg tuning.SweepConfig
		if mode == registry.TX {
			sweepCfg = cfg.TX.SweepConfig
		} else {
			sweepCfg = cfg.RX.SweepConfig
		}
		var err error
		iter, err = tuning.NewSweepIterator(sweepCfg)
		if err != nil {
			return fmt.Errorf("calibration: channel %d %s: %w", channel, mode, err)
		}
		e.iterators[key] = iter
	}
	if !iter.IncrementFineForSweep() {
		return ErrSweepExhausted
	}
	e.reg.SetTuningCode(channel, mode, iter.Code())
	e.reg.ResetFailures(channel, mode)
	return nil
}

// RxFailure implements spec section 4.3.3's rx_failure event: after
// MaxNumFailures consecutive calls for the same channel, advance the
// code and reset the count without marking the channel calibrated.
func (e *Engine) RxFailure(channel int) error {
	if n := e.reg.RecordFailure(channel, registry.RX); n < MaxNumFailures {
		return nil
	}
	if err := e.advanceSweep(channel, registry.RX); err != nil {
		return fmt.Errorf("calibration: channel %d RX: %w", channel, err)
	}
	return nil
}

// RxSuccess implements spec section 4.3.3's rx_success event: latch
// calibrated, reset failures, and seed the TX code from RX if it was
// never initialized.
func (e *Engine) RxSuccess(channel int) error {
	e.reg.MarkCalibrated(channel, registry.RX)
	if e.state == StateRemainingRX && e.AllRxCalibrated() {
		e.state = StateTXCal
	}
	if e.reg.Seeded(channel, registry.TX) {
		return nil
	}
	rx, ok := e.reg.GetTuningCode(channel, registry.RX)
	if !ok {
		return nil
	}
	tx, err := rx.EstimateTxFromRx()
	if err != nil {
		return fmt.Errorf("calibration: channel %d: seeding TX from RX: %w", channel, err)
	}
	e.reg.SetTuningCode(channel, registry.TX, tx)
	return nil
}

// TxFailure is the TX-side mirror of RxFailure.
func (e *Engine) TxFailure(channel int) error {
	if n := e.reg.RecordFailure(channel, registry.TX); n < MaxNumFailures {
		return nil
	}
	if err := e.advanceSweep(channel, registry.TX); err != nil {
		return fmt.Errorf("calibration: channel %d TX: %w", channel, err)
	}
	return nil
}

// TxSuccess is the TX-side mirror of RxSuccess.
func (e *Engine) TxSuccess(channel int) error {
	e.reg.MarkCalibrated(channel, registry.TX)
	if e.state == StateTXCal && e.AllTxCalibrated() {
		e.state = StateFeedback
	}
	return nil
}

// AllRxCalibrated reports whether every channel's RX code is
// calibrated.
func (e *Engine) AllRxCalibrated() bool { return e.reg.AllCalibrated(registry.RX) }

// AllTxCalibrated reports whether every channel's TX code is
// calibrated.
func (e *Engine) AllTxCalibrated() bool { return e.reg.AllCalibrated(registry.TX) }

// ObserveIfEstimate forwards a received frame's IF-count estimate to
// the feedback controller, but only once the channel's RX code has
// been calibrated: per spec section 5's ownership rule, calibration
// and feedback never mutate the same channel's tuning code at once.
func (e *Engine) ObserveIfEstimate(channel int, ifEstimate int) error {
	if e.fb == nil || !e.reg.Calibrated(channel, registry.RX) {
		return nil
	}
	return e.fb.Observe(channel, ifEstimate)
}
