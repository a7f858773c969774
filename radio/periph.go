package radio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tve/scum-tuning"
	"github.com/tve/scum-tuning/registry"
	"github.com/tve/scum-tuning/tuning"
)

// Register addresses on the mote's radio front-end: three DAC-style
// tuning registers driving the LC oscillator, an opmode register
// selecting RX/TX/idle, an IRQ-flags register, and a packet FIFO.
// Grounded on the sx1231 driver's register map; the mote has no
// frequency register of its own since its oscillator is crystal-less
// and tuned entirely through these three codes.
const (
	regOpMode  = 0x01
	regCoarse  = 0x10
	regMid     = 0x11
	regFine    = 0x12
	regIRQ     = 0x20
	regFIFO    = 0x30
	regFIFOLen = 0x31
	regRSSI    = 0x40

	modeIdle = 0x00
	modeRX   = 0x01
	modeTX   = 0x02

	irqPacketStart = 0x01
	irqPacketDone  = 0x02
	irqCRCOK       = 0x04
)

// ErrPacketTooLarge is returned by LoadPacket for a payload that
// doesn't fit the radio's FIFO.
var ErrPacketTooLarge = errors.New("radio: packet larger than FIFO")

const fifoCap = 127

// PeriphRadio drives a SCuM-class radio front-end over SPI, using a
// GPIO interrupt pin the same way sx1231.Radio does: a single worker
// goroutine waits on the pin's edges and dispatches IRQ flags into the
// StartFrameFunc and EndFrameFunc callbacks this package's Radio
// interface requires.
type PeriphRadio struct {
	spi     devices.SPI
	intrPin devices.GPIO
	log     LogPrintf

	mu       sync.Mutex
	mode     byte
	frame    Frame
	frameSet bool
	startCB  StartFrameFunc
	endCB    EndFrameFunc

	stop chan struct{}
}

// LogPrintf is the nil-safe logging hook, matching the convention used
// throughout this module.
type LogPrintf func(format string, v ...interface{})

// NewPeriphRadio brings up a PeriphRadio on the given SPI device and
// interrupt pin, starting its interrupt-dispatch goroutine.
func NewPeriphRadio(spiDev devices.SPI, intrPin devices.GPIO, log LogPrintf) (*PeriphRadio, error) {
	if log == nil {
		log = func(string, ...interface{}) {}
	}
	r := &PeriphRadio{spi: spiDev, intrPin: intrPin, log: log, stop: make(chan struct{})}

	if err := r.intrPin.In(devices.GpioRisingEdge); err != nil {
		return nil, fmt.Errorf("radio: configuring interrupt pin: %w", err)
	}
	r.writeReg(regOpMode, modeIdle)
	r.mode = modeIdle

	go r.worker()
	return r, nil
}

func (r *PeriphRadio) writeReg(addr byte, data ...byte) {
	wBuf := make([]byte, len(data)+1)
	rBuf := make([]byte, len(data)+1)
	wBuf[0] = addr | 0x80
	copy(wBuf[1:], data)
	r.spi.Tx(wBuf, rBuf)
}

func (r *PeriphRadio) readReg(addr byte) byte {
	var buf [2]byte
	r.spi.Tx([]byte{addr & 0x7f, 0}, buf[:])
	return buf[1]
}

// worker converts interrupt-pin edges into StartFrameFunc/EndFrameFunc
// callbacks, mirroring sx1231.Radio.worker's WaitForEdge loop.
func (r *PeriphRadio) worker() {
	for {
		if !r.intrPin.WaitForEdge(time.Second) {
			select {
			case <-r.stop:
				return
			default:
				continue
			}
		}
		irq := r.readReg(regIRQ)
		now := time.Now()
		if irq&irqPacketStart != 0 {
			r.mu.Lock()
			cb := r.startCB
			r.mu.Unlock()
			if cb != nil {
				cb(now)
			}
		}
		if irq&irqPacketDone != 0 {
			r.captureFrame(irq, now)
			r.mu.Lock()
			cb := r.endCB
			r.mu.Unlock()
			if cb != nil {
				cb(now)
			}
		}
	}
}

func (r *PeriphRadio) captureFrame(irq byte, at time.Time) {
	n := r.readReg(regFIFOLen)
	payload := make([]byte, n)
	if n > 0 {
		rBuf := make([]byte, n+1)
		wBuf := make([]byte, n+1)
		wBuf[0] = regFIFO & 0x7f
		r.spi.Tx(wBuf, rBuf)
		copy(payload, rBuf[1:])
	}
	rssi := -int(r.readReg(regRSSI)) / 2

	r.mu.Lock()
	r.frame = Frame{
		Payload:  payload,
		RSSI:     rssi,
		CRCOK:    irq&irqCRCOK != 0,
		Received: at,
	}
	r.frameSet = true
	r.mu.Unlock()
}

func (r *PeriphRadio) setMode(mode byte) {
	r.writeReg(regOpMode, mode)
	r.mode = mode
}

// RFOn is a no-op on this front-end: the opmode register leaves idle
// only through RxNow or TxNow.
func (r *PeriphRadio) RFOn() error {
	return nil
}

// RFOff idles the front-end, matching sx1231's MODE_STANDBY transition
// before reprogramming the tuning registers.
func (r *PeriphRadio) RFOff() error {
	r.setMode(modeIdle)
	return nil
}

// SetFrequency programs the three tuning-code registers directly; on
// this crystal-less front-end a frequency IS a (coarse, mid, fine)
// triple; mode only selects which register set RX vs TX arbitration
// uses internally, so it does not affect the register writes here.
func (r *PeriphRadio) SetFrequency(channel int, mode registry.ChannelMode, code tuning.TuningCode) error {
	r.writeReg(regCoarse, code.Coarse)
	r.writeReg(regMid, code.Mid)
	r.writeReg(regFine, code.Fine)
	r.log("radio: tuned channel %d %s to %d.%d.%d", channel, mode, code.Coarse, code.Mid, code.Fine)
	return nil
}

// RxEnable arms the front-end for reception without starting it yet.
func (r *PeriphRadio) RxEnable() error {
	return nil
}

// RxNow switches the front-end into receive mode immediately.
func (r *PeriphRadio) RxNow() error {
	r.setMode(modeRX)
	return nil
}

// TxEnable arms the front-end for transmission without starting it yet.
func (r *PeriphRadio) TxEnable() error {
	return nil
}

// TxNow switches the front-end into transmit mode, sending whatever
// was last loaded via LoadPacket.
func (r *PeriphRadio) TxNow() error {
	r.setMode(modeTX)
	return nil
}

// LoadPacket writes buf into the radio's FIFO ahead of a TxNow call.
func (r *PeriphRadio) LoadPacket(buf []byte) error {
	if len(buf) > fifoCap {
		return ErrPacketTooLarge
	}
	r.writeReg(regFIFOLen, byte(len(buf)))
	r.writeReg(regFIFO, buf...)
	return nil
}

// GetReceivedFrame returns the most recently captured frame, or
// ErrNoFrame if none is pending.
func (r *PeriphRadio) GetReceivedFrame() (Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.frameSet {
		return Frame{}, ErrNoFrame
	}
	f := r.frame
	r.frameSet = false
	return f, nil
}

// SetStartFrameCB registers the ISR-context start-of-frame callback.
func (r *PeriphRadio) SetStartFrameCB(f StartFrameFunc) {
	r.mu.Lock()
	r.startCB = f
	r.mu.Unlock()
}

// SetEndFrameCB registers the ISR-context end-of-frame callback.
func (r *PeriphRadio) SetEndFrameCB(f EndFrameFunc) {
	r.mu.Lock()
	r.endCB = f
	r.mu.Unlock()
}

// Close stops the interrupt-dispatch goroutine.
func (r *PeriphRadio) Close() error {
	close(r.stop)
	return nil
}
