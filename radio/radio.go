// Package radio defines the collaborator contracts the calibration
// engine and peer coordinator drive (Radio, Timer, MAC, UART), plus a
// FakeRadio double usable in tests and the loopback simulator without
// any hardware.
package radio

import (
	"time"

	"github.com/tve/scum-tuning/registry"
	"github.com/tve/scum-tuning/tuning"
)

// Frame is one received 802.15.4 frame as reported by the driver,
// including its ISR-context reception timestamp.
type Frame struct {
	Payload  []byte
	RSSI     int
	LQI      int
	CRCOK    bool
	Received time.Time
}

// StartFrameFunc and EndFrameFunc are the ISR-context callbacks a
// Radio invokes; they must not block.
type StartFrameFunc func(t time.Time)
type EndFrameFunc func(t time.Time)

// Radio is the hardware abstraction the calibration engine drives,
// matching spec section 6's collaborator contract. SetFrequency takes
// an 802.15.4 channel and a registry.ChannelMode rather than a raw
// frequency in Hz, since every tuning decision in this subsystem is
// phrased in terms of (channel, mode, tuning code).
type Radio interface {
	RFOn() error
	RFOff() error
	SetFrequency(channel int, mode registry.ChannelMode, code tuning.TuningCode) error
	RxEnable() error
	RxNow() error
	TxEnable() error
	TxNow() error
	LoadPacket(buf []byte) error
	GetReceivedFrame() (Frame, error)
	SetStartFrameCB(f StartFrameFunc)
	SetEndFrameCB(f EndFrameFunc)
}

// Timer is the bare-metal scheduling collaborator: a single one-shot
// compare-and-callback, matching spec section 6's sctimer-style
// contract.
type Timer interface {
	ReadCounter() uint32
	SetCompare(absoluteTick uint32)
	Enable()
	SetCallback(f func())
}

// MAC is the subset of the 802.15.4 MAC layer the calibration engine
// queries when running in MAC-integrated mode.
type MAC interface {
	IsSynched() bool
	HasNegotiatedCellToNeighbor(addr uint16, cellType int) bool
}

// UART is the diagnostic trace sink; TxSend and TxSendStr mirror the
// two call shapes the source firmware uses for binary and textual
// traces respectively.
type UART interface {
	TxSend(b []byte) error
	TxSendStr(s string) error
}
