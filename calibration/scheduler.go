package calibration

import (
	"sync"
	"time"

	"github.com/tve/scum-tuning/radio"
)

// Scheduler arms a single one-shot deadline and invokes a callback
// when it expires. The calibration engine only ever has one timer
// live at a time, matching the bare-metal app's single sctimer
// instance; Schedule implicitly replaces any pending deadline.
type Scheduler interface {
	Schedule(d time.Duration, cb func())
	Cancel()
}

// BareMetalScheduler adapts a radio.Timer's absolute-tick compare
// register to the Scheduler interface, for the no-MAC build variant.
type BareMetalScheduler struct {
	timer          radio.Timer
	ticksPerSecond uint32
}

// NewBareMetalScheduler returns a scheduler driving timer, which ticks
// at ticksPerSecond.
func NewBareMetalScheduler(timer radio.Timer, ticksPerSecond uint32) *BareMetalScheduler {
	return &BareMetalScheduler{timer: timer, ticksPerSecond: ticksPerSecond}
}

func (s *BareMetalScheduler) Schedule(d time.Duration, cb func()) {
	ticks := uint32(d.Seconds() * float64(s.ticksPerSecond))
	s.timer.SetCallback(cb)
	s.timer.SetCompare(s.timer.ReadCounter() + ticks)
	s.timer.Enable()
}

func (s *BareMetalScheduler) Cancel() {
	s.timer.SetCallback(func() {})
}

// SlotframeScheduler adapts stdlib time.AfterFunc to the Scheduler
// interface, for the MAC-integrated build variant where deadlines are
// named timers rather than a single hardware compare register.
type SlotframeScheduler struct {
	mu     sync.Mutex
	cancel func() bool
}

func NewSlotframeScheduler() *SlotframeScheduler {
	return &SlotframeScheduler{}
}

func (s *SlotframeScheduler) Schedule(d time.Duration, cb func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	t := time.AfterFunc(d, cb)
	s.cancel = t.Stop
}

func (s *SlotframeScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
