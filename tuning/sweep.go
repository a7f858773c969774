package tuning

import "errors"

// ErrInvalidSweepConfig is returned when a SweepConfig fails validation:
// an inverted range, or a range outside [MinCode, MaxCode].
var ErrInvalidSweepConfig = errors.New("tuning: invalid sweep config")

// SweepRange is an inclusive [Start, End] bound on one TuningCode field.
type SweepRange struct {
	Start byte
	End   byte
}

// Valid reports whether r is a well-formed, in-bounds range.
func (r SweepRange) Valid() bool {
	return r.Start <= r.End && r.End <= MaxCode
}

// Single reports whether r names exactly one code.
func (r SweepRange) Single() bool {
	return r.Start == r.End
}

// Midpoint returns the integer midpoint of the range, rounding down.
func (r SweepRange) Midpoint() byte {
	return r.Start + (r.End-r.Start)/2
}

// SweepConfig bounds a sweep of the 3-D tuning code space, one
// SweepRange per field.
type SweepConfig struct {
	Coarse SweepRange
	Mid    SweepRange
	Fine   SweepRange
}

// Valid reports whether every range in cfg is valid.
func (cfg SweepConfig) Valid() bool {
	return cfg.Coarse.Valid() && cfg.Mid.Valid() && cfg.Fine.Valid()
}

// End returns the TuningCode at the top-right corner of cfg, i.e. the
// code named by (Coarse.End, Mid.End, Fine.End).
func (cfg SweepConfig) End() TuningCode {
	return TuningCode{Coarse: cfg.Coarse.End, Mid: cfg.Mid.End, Fine: cfg.Fine.End}
}

// EndOfSweep reports whether code is lexicographically at or past the
// top-right corner of cfg.
func EndOfSweep(cfg SweepConfig, code TuningCode) bool {
	return cfg.End().LessEqual(code)
}

// SweepIterator enumerates the tuning codes inside a SweepConfig in the
// order the calibration engine needs them to be visited: plain
// lexicographic order for a multi-coarse sweep, or a center-outward
// ping-pong order over mid (at a pinned coarse) for the narrow
// re-confirmation sweeps built after an initial calibration.
type SweepIterator struct {
	cfg SweepConfig
	cur TuningCode

	pingPong bool
	center   byte
	turn     int8 // +1: next candidate tried is above center, -1: below
	plusK    int
	minusK   int
	plusDone bool
	minusDone bool
	done     bool
}

// NewSweepIterator validates cfg and positions the iterator at its
// initial code, per init_for_sweep: the box's start corner, except that
// a single-coarse config starts mid at the midpoint of the mid range
// (scanning outward from the empirically best coarse).
func NewSweepIterator(cfg SweepConfig) (*SweepIterator, error) {
	if !cfg.Valid() {
		return nil, ErrInvalidSweepConfig
	}
	it := &SweepIterator{cfg: cfg}
	it.cur = TuningCode{Coarse: cfg.Coarse.Start, Mid: cfg.Mid.Start, Fine: cfg.Fine.Start}
	if cfg.Coarse.Single() {
		it.pingPong = true
		it.center = cfg.Mid.Midpoint()
		it.cur.Mid = it.center
		it.turn = 1
	}
	return it, nil
}

// Code returns the iterator's current tuning code.
func (it *SweepIterator) Code() TuningCode {
	return it.cur
}

// EndOfSweep reports whether the iterator has visited every code its
// config names. For a plain lexicographic sweep this is the generic
// end_of_sweep comparison from spec section 4.2; for a ping-pong sweep
// it is the iterator having exhausted both directions around the
// center, per the ping-pong schedule's own termination rule.
func (it *SweepIterator) EndOfSweep() bool {
	if it.pingPong {
		return it.done
	}
	return EndOfSweep(it.cfg, it.cur)
}

// IncrementFineForSweep advances fine by one, rolling over into a mid
// (and possibly coarse) step per IncrementMidForSweep when fine would
// exceed the config's fine range. Returns false once the sweep is
// exhausted; a ping-pong sweep then reports its center mid again,
// otherwise Code() is left unchanged.
func (it *SweepIterator) IncrementFineForSweep() bool {
	if it.EndOfSweep() {
		return false
	}
	if it.cur.Fine < it.cfg.Fine.End {
		it.cur.Fine++
		return true
	}
	return it.incrementMidForSweep()
}

// incrementMidForSweep advances mid (and possibly coarse), using a
// ping-pong schedule when the sweep is pinned to a single coarse, else a
// plain lexicographic step, resetting fine to its start only once the
// mid/coarse step actually happens. A failed ping-pong advance leaves
// fine untouched and moves mid back to the center.
func (it *SweepIterator) incrementMidForSweep() bool {
	if it.pingPong {
		if !it.advancePingPong() {
			return false
		}
		it.cur.Fine = it.cfg.Fine.Start
		return true
	}
	if it.cur.Mid < it.cfg.Mid.End {
		it.cur.Mid++
		it.cur.Fine = it.cfg.Fine.Start
		return true
	}
	if it.cur.Coarse < it.cfg.Coarse.End {
		it.cur.Mid = it.cfg.Mid.Start
		it.cur.Coarse++
		it.cur.Fine = it.cfg.Fine.Start
		return true
	}
	it.cur = it.cfg.End()
	return true
}

// advancePingPong steps to the next mid position in the order
// center, center+1, center-1, center+2, center-2, ..., skipping past
// whichever side leaves [mid.Start, mid.End] first and continuing on
// the other side until it too leaves the window, at which point the
// sweep falls back to reporting the center as exhausted.
func (it *SweepIterator) advancePingPong() bool {
	for {
		if it.plusDone && it.minusDone {
			it.cur.Mid = it.center
			it.done = true
			return false
		}
		if it.turn > 0 {
			if it.plusDone {
				it.turn = -1
				continue
			}
			it.plusK++
			candidate := int(it.center) + it.plusK
			if candidate > int(it.cfg.Mid.End) {
				it.plusDone = true
				it.turn = -1
				continue
			}
			it.cur.Mid = byte(candidate)
			it.turn = -1
			return true
		}
		if it.minusDone {
			it.turn = 1
			continue
		}
		it.minusK++
		candidate := int(it.center) - it.minusK
		if candidate < int(it.cfg.Mid.Start) {
			it.minusDone = true
			it.turn = 1
			continue
		}
		it.cur.Mid = byte(candidate)
		it.turn = 1
		return true
	}
}
