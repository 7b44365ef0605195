package rabbitmq

// State is a consumer lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateDeclaring
	StateConsuming
	StateError
	StateReconnecting
	StateShuttingDown
	StateClosed
)

var stateNames = [...]string{
	StateDisconnected: "disconnected",
	StateConnecting:   "connecting",
	StateDeclaring:    "declaring",
	StateConsuming:    "consuming",
	StateError:        "error",
	StateReconnecting: "reconnecting",
	StateShuttingDown: "shutting_down",
	StateClosed:       "closed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}
