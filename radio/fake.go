package radio

import (
	"errors"
	"sync"
	"time"

	"github.com/tve/scum-tuning/registry"
	"github.com/tve/scum-tuning/tuning"
)

// ErrNoFrame is returned by GetReceivedFrame when nothing is queued.
var ErrNoFrame = errors.New("radio: no received frame queued")

// FakeRadio is an in-memory Radio double, modeled on sx1276.Radio's
// channel-based TX/RX queues. Two FakeRadios can be wired together
// with Link so each one's transmitted payloads appear as received
// frames on the other, for loopback calibration tests without
// hardware.
type FakeRadio struct {
	mu sync.Mutex

	on       bool
	rxActive bool
	txActive bool
	channel  int
	mode     registry.ChannelMode
	code     tuning.TuningCode
	loaded   []byte

	rxChan chan Frame
	peer   *FakeRadio

	startCB StartFrameFunc
	endCB   EndFrameFunc

	// CRCOK controls whether frames delivered via Link report a valid
	// CRC; tests flip this to exercise the silent-drop path.
	CRCOK bool
}

// NewFakeRadio returns a FakeRadio ready for use, with CRCOK defaulting
// to true.
func NewFakeRadio() *FakeRadio {
	return &FakeRadio{rxChan: make(chan Frame, 16), CRCOK: true}
}

// Link wires two FakeRadios so each one's TxNow delivers its loaded
// packet as a received frame to the other.
func Link(a, b *FakeRadio) {
	a.peer = b
	b.peer = a
}

func (r *FakeRadio) RFOn() error  { r.mu.Lock(); defer r.mu.Unlock(); r.on = true; return nil }
func (r *FakeRadio) RFOff() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.on, r.rxActive, r.txActive = false, false, false
	return nil
}

func (r *FakeRadio) SetFrequency(channel int, mode registry.ChannelMode, code tuning.TuningCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channel, r.mode, r.code = channel, mode, code
	return nil
}

func (r *FakeRadio) RxEnable() error { r.mu.Lock(); defer r.mu.Unlock(); r.rxActive = true; return nil }
func (r *FakeRadio) RxNow() error    { return nil }
func (r *FakeRadio) TxEnable() error { r.mu.Lock(); defer r.mu.Unlock(); r.txActive = true; return nil }

func (r *FakeRadio) LoadPacket(buf []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = append([]byte(nil), buf...)
	return nil
}

// TxNow delivers the most recently loaded packet to the linked peer,
// if any, firing both frame callbacks on the sending side first (they
// carry an ISR-context timestamp regardless of which side they're
// on).
func (r *FakeRadio) TxNow() error {
	r.mu.Lock()
	payload := append([]byte(nil), r.loaded...)
	peer := r.peer
	startCB := r.startCB
	endCB := r.endCB
	r.mu.Unlock()

	now := time.Now()
	if startCB != nil {
		startCB(now)
	}
	if endCB != nil {
		endCB(now)
	}
	if peer == nil {
		return nil
	}
	peer.deliver(Frame{Payload: payload, CRCOK: peer.CRCOK, Received: now})
	return nil
}

func (r *FakeRadio) deliver(f Frame) {
	r.mu.Lock()
	startCB := r.startCB
	endCB := r.endCB
	r.mu.Unlock()
	if startCB != nil {
		startCB(f.Received)
	}
	select {
	case r.rxChan <- f:
	default:
	}
	if endCB != nil {
		endCB(f.Received)
	}
}

func (r *FakeRadio) GetReceivedFrame() (Frame, error) {
	select {
	case f := <-r.rxChan:
		return f, nil
	default:
		return Frame{}, ErrNoFrame
	}
}

func (r *FakeRadio) SetStartFrameCB(f StartFrameFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startCB = f
}

func (r *FakeRadio) SetEndFrameCB(f EndFrameFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endCB = f
}

// Tuned reports the (channel, mode, code) most recently set via
// SetFrequency, for test assertions.
func (r *FakeRadio) Tuned() (int, registry.ChannelMode, tuning.TuningCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channel, r.mode, r.code
}

// Deliver injects a frame directly, bypassing any linked peer, for
// tests that want to hand the engine a specific payload.
func (r *FakeRadio) Deliver(f Frame) {
	r.deliver(f)
}
