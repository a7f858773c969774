// Command scum-tune-sim runs the calibration engine against an
// in-memory radio with no hardware and no peer link, for exercising
// the phase 1 initial sweep and phase 2 extrapolation end to end. A
// groundTruthRadio wraps radio.FakeRadio and auto-delivers a
// CRC-valid frame whenever the engine tunes onto the channel's
// "true" code, standing in for a real OpenMote's ACK.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/tve/scum-tuning/calibration"
	"github.com/tve/scum-tuning/feedback"
	"github.com/tve/scum-tuning/radio"
	"github.com/tve/scum-tuning/registry"
	"github.com/tve/scum-tuning/tuning"
)

// groundTruthRadio decorates a *radio.FakeRadio with a fixed per-channel
// RX tuning code; any SetFrequency landing on that exact code triggers
// an immediate simulated reception.
type groundTruthRadio struct {
	*radio.FakeRadio
	truth map[int]tuning.TuningCode
}

func (g *groundTruthRadio) SetFrequency(channel int, mode registry.ChannelMode, code tuning.TuningCode) error {
	if err := g.FakeRadio.SetFrequency(channel, mode, code); err != nil {
		return err
	}
	if mode != registry.RX {
		return nil
	}
	if truth, ok := g.truth[channel]; ok && truth == code {
		g.FakeRadio.Deliver(radio.Frame{Payload: []byte{0x01}, CRCOK: true, Received: time.Now()})
	}
	return nil
}

func main() {
	initialChannel := flag.Int("channel", 17, "initial channel to calibrate")
	flag.Parse()

	logger := log.Printf

	// A plausible "true" RX code per channel, stepped channel to channel
	// with EstimateNextChannel (MidCodesBetweenChannels mid codes apart,
	// carrying into coarse as the algebra does), so extrapolation has
	// something non-trivial to walk toward.
	truth := map[int]tuning.TuningCode{}
	code := tuning.TuningCode{Coarse: 22, Mid: 15, Fine: 3}
	for i, ch := range registry.Channels() {
		if i > 0 {
			next, err := code.EstimateNextChannel()
			if err != nil {
				log.Fatalf("scum-tune-sim: building ground truth: %s", err)
			}
			code = next
		}
		truth[ch] = code
	}

	fake := radio.NewFakeRadio()
	rad := &groundTruthRadio{FakeRadio: fake, truth: truth}

	reg := registry.New()
	fb := feedback.New(reg, feedback.LogPrintf(logger))
	timer := radio.NewFakeTimer()
	sched := calibration.NewBareMetalScheduler(timer, 1000)

	sweep := tuning.SweepConfig{
		Coarse: tuning.SweepRange{Start: truth[*initialChannel].Coarse, End: truth[*initialChannel].Coarse},
		Mid:    tuning.SweepRange{Start: 0, End: tuning.MaxCode},
		Fine:   tuning.SweepRange{Start: tuning.MinCode, End: tuning.MaxCode},
	}

	engine, err := calibration.NewEngine(reg, fb, rad, sched, *initialChannel, sweep, calibration.LogPrintf(logger))
	if err != nil {
		log.Fatalf("scum-tune-sim: %s", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := engine.Start(ctx); err != nil {
		log.Fatalf("scum-tune-sim: starting engine: %s", err)
	}

	for engine.State() != calibration.StateRemainingRX {
		select {
		case <-ctx.Done():
			log.Fatalf("scum-tune-sim: timed out in state %s", engine.State())
		default:
		}
		timer.Advance(1)
		if err := engine.Poll(); err != nil {
			log.Fatalf("scum-tune-sim: %s", err)
		}
	}

	fmt.Printf("initial channel %d calibrated; engine now in state %s\n", *initialChannel, engine.State())
	for _, ch := range registry.Channels() {
		rx, _ := reg.GetTuningCode(ch, registry.RX)
		tx, _ := reg.GetTuningCode(ch, registry.TX)
		fmt.Printf("channel %2d: rx=%d.%d.%d tx=%d.%d.%d\n",
			ch, rx.Coarse, rx.Mid, rx.Fine, tx.Coarse, tx.Mid, tx.Fine)
	}
}
