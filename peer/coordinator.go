package peer

import (
	"context"
	"fmt"
	"time"
)

// MaxRecordedCodes bounds how many RX reports the coordinator buffers
// for a single channel before averaging, guarding against a
// misbehaving mote that never lets its timer expire.
const MaxRecordedCodes = 128

// InterPacketTimeout is the steady-state wait between RX reports
// during step 1.
const InterPacketTimeout = 500 * time.Millisecond

// FirstPacketTimeout is used for the first packet on a channel and
// after a coarse-rollover heuristic fires, mirroring the mote's own
// long-timeout rule.
const FirstPacketTimeout = 2 * time.Second

// TXAckTimeout bounds how long step 2 waits for the mote's ACK to a
// TX packet.
const TXAckTimeout = 15625 * time.Microsecond

// Transport is the minimal link the coordinator needs: receiving RX
// reports from the mote and sending TX packets back, each with its
// own deadline. A production Transport wraps a UART or radio link; a
// test Transport can be driven entirely in memory.
type Transport interface {
	ReceiveRXPacket(ctx context.Context, timeout time.Duration) (RXPacket, error)
	SendTXPacket(ctx context.Context, p TXPacket) error
}

// LogPrintf matches the nil-safe logging callback used throughout
// this module.
type LogPrintf func(format string, v ...interface{})

// Coordinator drives the base-station half of spec section 4.3.4
// across the channel range [CalStart, CalEnd].
type Coordinator struct {
	t        Transport
	CalStart byte
	CalEnd   byte
	log      LogPrintf
}

// New returns a Coordinator sweeping channels [calStart, calEnd]
// inclusive over t. log may be nil.
func New(t Transport, calStart, calEnd byte, log LogPrintf) *Coordinator {
	if log == nil {
		log = func(string, ...interface{}) {}
	}
	return &Coordinator{t: t, CalStart: calStart, CalEnd: calEnd, log: log}
}

// Run drives the full two-step protocol across every channel in
// range, in order, until the mote reports it is done with the last
// channel or ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	for channel := c.CalStart; channel <= c.CalEnd; channel++ {
		codes, err := c.stepOne(ctx, channel)
		if err != nil {
			return fmt.Errorf("peer: channel %d RX step: %w", channel, err)
		}
		done, err := c.stepTwo(ctx, channel, codes)
		if err != nil {
			return fmt.Errorf("peer: channel %d TX step: %w", channel, err)
		}
		if done {
			return nil
		}
		if channel == 255 {
			break // byte wraparound guard, channel numbers never reach this
		}
	}
	return nil
}

// stepOne listens on channel until the inter-packet timer expires
// with no frame, collecting every code the mote reports, then
// averages them per AverageCodes.
func (c *Coordinator) stepOne(ctx context.Context, channel byte) ([]AveragedCode, error) {
	var recorded []RXPacket
	timeout := FirstPacketTimeout
	for {
		pkt, err := c.t.ReceiveRXPacket(ctx, timeout)
		if err != nil {
			break // timer expiry or link error ends step 1 for this channel
		}
		if pkt.Channel != channel {
			continue
		}
		recorded = append(recorded, pkt)
		if len(recorded) >= MaxRecordedCodes {
			c.log("peer: channel %d hit MaxRecordedCodes, averaging early", channel)
			break
		}
		timeout = InterPacketTimeout
		if pkt.Mid >= 24 {
			timeout = FirstPacketTimeout
		}
	}
	return AverageCodes(recorded), nil
}

// stepTwo transmits the averaged codes for channel and waits for the
// mote's ACK. done reports whether the ACK instructed the coordinator
// to stop (channel > CalEnd on the mote's side).
func (c *Coordinator) stepTwo(ctx context.Context, channel byte, codes []AveragedCode) (bool, error) {
	txPkt := TXPacket{Channel: channel, Codes: codes}
	if err := c.t.SendTXPacket(ctx, txPkt); err != nil {
		return false, err
	}
	ack, err := c.t.ReceiveRXPacket(ctx, TXAckTimeout)
	if err != nil {
		return false, nil // no ACK: caller moves on, mote will retry on its own timer
	}
	return ack.Command == ChangeChannel && ack.Channel > c.CalEnd, nil
}

// AverageCodes implements the run-length averaging rule of spec
// section 4.3.4: walking the ordered list of reports, each maximal
// run of identical (coarse, mid) collapses to one averaged code whose
// fine value is the mean of the run's first and last fine values.
// Emission is capped at MaxTxCodesPerChannel; later runs are dropped.
func AverageCodes(recorded []RXPacket) []AveragedCode {
	var out []AveragedCode
	i := 0
	for i < len(recorded) && len(out) < MaxTxCodesPerChannel {
		j := i
		for j+1 < len(recorded) && recorded[j+1].Coarse == recorded[i].Coarse && recorded[j+1].Mid == recorded[i].Mid {
			j++
		}
		out = append(out, AveragedCode{
			Coarse: recorded[i].Coarse,
			Mid:    recorded[i].Mid,
			Fine:   byte((int(recorded[i].Fine) + int(recorded[j].Fine)) / 2),
		})
		i = j + 1
	}
	return out
}
