package upload

// State is the position of one attempt in the upload protocol.
type State int

const (
	StateIdle State = iota
	StateReserving
	StateTransferring
	StateConfirming
	StateSucceeded
	StateReserveFailed
	StateTransferFailed
	StateConfirmFailed
)

var stateNames = [...]string{
	StateIdle:           "idle",
	StateReserving:      "reserving",
	StateTransferring:   "transferring",
	StateConfirming:     "confirming",
	StateSucceeded:      "succeeded",
	StateReserveFailed:  "reserve_failed",
	StateTransferFailed: "transfer_failed",
	StateConfirmFailed:  "confirm_failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateReserveFailed, StateTransferFailed, StateConfirmFailed:
		return true
	default:
		return false
	}
}

// Cancelable reports whether an attempt in s may still be canceled.
func (s State) Cancelable() bool {
	return s == StateReserving || s == StateTransferring
}
