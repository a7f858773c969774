// Package tuning implements the tuning-code algebra for the mote's
// crystal-less local oscillator: arithmetic on the (coarse, mid, fine)
// triple that selects a physical frequency, including the empirical
// carry/borrow constants discovered for the part, and the sweep
// iterator used to enumerate codes inside a bounded box of the 3-D
// code space.
package tuning

import "fmt"

// MinCode and MaxCode bound every field of a TuningCode.
const (
	MinCode byte = 0
	MaxCode byte = 31
)

// Empirical constants for the oscillator's overlap regions. The source
// firmware disagreed across sibling builds on MidPerCoarseTransition
// (13 vs 14) and MidCodesBetweenChannels (5 vs 6); both are exposed as
// package variables rather than untouchable consts so a calibration run
// can pin the value that matches a given die without a rebuild. See
// DESIGN.md for how the defaults below were chosen.
var (
	// FinePerMidTransition is the fine code a mid transition lands on,
	// rather than resetting to 0: the fine and mid ranges physically
	// overlap near the boundary.
	FinePerMidTransition byte = 9

	// MidPerCoarseTransition is the analogous overlap width at the
	// mid<->coarse boundary.
	MidPerCoarseTransition byte = 13

	// MidCodesBetweenChannels is the mid-code spacing between two
	// neighboring 802.15.4 channels at the same coarse.
	MidCodesBetweenChannels byte = 5

	// MidCodesBetweenRXAndTX is how many mid codes RX runs above TX
	// for the same frequency.
	MidCodesBetweenRXAndTX byte = 1
)

// TuningCode is a single oscillator setting: coarse, mid, and fine fields,
// each valid in [MinCode, MaxCode]. The zero value is a valid code
// (0, 0, 0), though not a meaningful one.
type TuningCode struct {
	Coarse byte
	Mid    byte
	Fine   byte
}

// Less reports whether c sorts before o under the lexicographic
// (coarse, mid, fine) total order.
func (c TuningCode) Less(o TuningCode) bool {
	if c.Coarse != o.Coarse {
		return c.Coarse < o.Coarse
	}
	if c.Mid != o.Mid {
		return c.Mid < o.Mid
	}
	return c.Fine < o.Fine
}

// LessEqual reports c <= o lexicographically.
func (c TuningCode) LessEqual(o TuningCode) bool {
	return c == o || c.Less(o)
}

// Valid reports whether every field of c lies in [MinCode, MaxCode].
// Since the fields are bytes and MaxCode == 31 < 255, this only ever
// rejects a TuningCode built by hand with an out-of-band value.
func (c TuningCode) Valid() bool {
	return c.Coarse <= MaxCode && c.Mid <= MaxCode && c.Fine <= MaxCode
}

func (c TuningCode) String() string {
	return fmt.Sprintf("%d.%d.%d", c.Coarse, c.Mid, c.Fine)
}

// ErrCodeOverflow is returned by any algebra operation that would push a
// field below MinCode or above MaxCode. The source firmware leaves this
// case as undefined behavior; the port promotes it to a checked error
// per spec section 9.
type ErrCodeOverflow struct {
	Op   string
	Code TuningCode
}

func (e *ErrCodeOverflow) Error() string {
	return fmt.Sprintf("tuning: %s overflow at code %s", e.Op, e.Code)
}
