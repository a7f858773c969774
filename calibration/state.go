// Package calibration implements the mote-side calibration engine:
// the phase 1 initial RX sweep, the phase 2 per-channel extrapolation
// from that first result, and the MAC-event-driven confirmation that
// keeps every channel's RX/TX code current until feedback takes over.
package calibration

// State is the calibration engine's state, mirroring the source
// firmware's tagged enum.
type State int

// StateInvalid is reachable only as a poison value, never a live
// engine state.
const StateInvalid State = -1

const (
	StateInit State = iota
	StateInitialRX
	StateInitialRXIdle
	StateInitialRXReceived
	StateRemainingRX
	StateRXDone
	StateTXCal
	StateFeedback
)

func (s State) String() string {
	switch s {
	case StateInvalid:
		return "INVALID"
	case StateInit:
		return "INIT"
	case StateInitialRX:
		return "INITIAL_RX"
	case StateInitialRXIdle:
		return "INITIAL_RX_IDLE"
	case StateInitialRXReceived:
		return "INITIAL_RX_RECEIVED"
	case StateRemainingRX:
		return "REMAINING_RX"
	case StateRXDone:
		return "RX_DONE"
	case StateTXCal:
		return "TX_CAL"
	case StateFeedback:
		return "FEEDBACK"
	default:
		return "UNKNOWN"
	}
}
