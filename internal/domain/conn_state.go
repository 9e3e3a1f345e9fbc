package domain

// ConnState is the lifecycle state of the upstream connection.
//
//	DISCONNECTED -> CONNECTING -> CONNECTED -> {CLOSED | FAILED}
//
// CLOSED and FAILED are terminal; nothing reconnects.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateClosed
	StateFailed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateClosed:
		return "CLOSED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether the state can never leave itself.
func (s ConnState) IsTerminal() bool {
	return s == StateClosed || s == StateFailed
}
