package tuning

// IncrementFine advances the fine field by n, carrying into mid (and
// potentially coarse) across the fine<->mid overlap region whenever the
// result would exceed MaxCode. Chained carries are applied when n is
// large enough to cross more than one boundary.
func (c TuningCode) IncrementFine(n byte) (TuningCode, error) {
	cur := c
	total := int(cur.Fine) + int(n)
	for total > int(MaxCode) {
		next, err := cur.IncrementMid(1)
		if err != nil {
			return TuningCode{}, err
		}
		cur.Coarse, cur.Mid = next.Coarse, next.Mid
		total = int(FinePerMidTransition) + total - int(MaxCode) - 1
	}
	cur.Fine = byte(total)
	return cur, nil
}

// DecrementFine is the mirror of IncrementFine: a plain subtraction when
// fine >= n, else a borrow from mid (and potentially coarse).
func (c TuningCode) DecrementFine(n byte) (TuningCode, error) {
	cur := c
	total := int(cur.Fine) - int(n)
	for total < 0 {
		next, err := cur.DecrementMid(1)
		if err != nil {
			return TuningCode{}, err
		}
		cur.Coarse, cur.Mid = next.Coarse, next.Mid
		total = total + int(MaxCode) + 1 - int(FinePerMidTransition)
	}
	cur.Fine = byte(total)
	return cur, nil
}

// IncrementMid advances the mid field by n, carrying into coarse across
// the mid<->coarse overlap whenever the result would exceed MaxCode.
// Returns ErrCodeOverflow if coarse would need to exceed MaxCode.
func (c TuningCode) IncrementMid(n byte) (TuningCode, error) {
	cur := c
	total := int(cur.Mid) + int(n)
	for total > int(MaxCode) {
		if cur.Coarse >= MaxCode {
			return TuningCode{}, &ErrCodeOverflow{Op: "increment_mid", Code: c}
		}
		cur.Coarse++
		total = int(MidPerCoarseTransition) + total - int(MaxCode) - 1
	}
	cur.Mid = byte(total)
	return cur, nil
}

// DecrementMid is the mirror of IncrementMid. Returns ErrCodeOverflow if
// coarse would need to go below MinCode.
func (c TuningCode) DecrementMid(n byte) (TuningCode, error) {
	cur := c
	total := int(cur.Mid) - int(n)
	for total < 0 {
		if cur.Coarse <= MinCode {
			return TuningCode{}, &ErrCodeOverflow{Op: "decrement_mid", Code: c}
		}
		cur.Coarse--
		total = total + int(MaxCode) + 1 - int(MidPerCoarseTransition)
	}
	cur.Mid = byte(total)
	return cur, nil
}

// RolloverMid pulls mid back toward the center of the coarse<->mid
// overlap band: if mid is below threshold it is too close to the bottom
// of the range and is pushed up a transition width while coarse is
// decremented; if mid is too close to the top it is pulled down while
// coarse is incremented. Outside the threshold band this is a no-op
// (idempotent).
func (c TuningCode) RolloverMid(threshold byte) (TuningCode, error) {
	switch {
	case c.Mid < threshold:
		if c.Coarse <= MinCode {
			return TuningCode{}, &ErrCodeOverflow{Op: "rollover_mid", Code: c}
		}
		return TuningCode{Coarse: c.Coarse - 1, Mid: c.Mid + MidPerCoarseTransition, Fine: c.Fine}, nil
	case int(c.Mid)+int(threshold) > int(MaxCode):
		if c.Coarse >= MaxCode {
			return TuningCode{}, &ErrCodeOverflow{Op: "rollover_mid", Code: c}
		}
		return TuningCode{Coarse: c.Coarse + 1, Mid: c.Mid - MidPerCoarseTransition, Fine: c.Fine}, nil
	default:
		return c, nil
	}
}

// EstimatePreviousChannel estimates the tuning code for the next lower
// 802.15.4 channel at the same coarse, offsetting mid by
// -MidCodesBetweenChannels.
func (c TuningCode) EstimatePreviousChannel() (TuningCode, error) {
	return c.DecrementMid(MidCodesBetweenChannels)
}

// EstimateNextChannel estimates the tuning code for the next higher
// 802.15.4 channel at the same coarse, offsetting mid by
// +MidCodesBetweenChannels.
func (c TuningCode) EstimateNextChannel() (TuningCode, error) {
	return c.IncrementMid(MidCodesBetweenChannels)
}

// EstimateTxFromRx estimates the TX tuning code given a calibrated RX
// code for the same channel: RX runs MidCodesBetweenRXAndTX mid codes
// above TX.
func (c TuningCode) EstimateTxFromRx() (TuningCode, error) {
	return c.DecrementMid(MidCodesBetweenRXAndTX)
}

// EstimateRxFromTx is the inverse of EstimateTxFromRx.
func (c TuningCode) EstimateRxFromTx() (TuningCode, error) {
	return c.IncrementMid(MidCodesBetweenRXAndTX)
}
