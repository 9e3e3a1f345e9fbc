package domain

// Action is a control intent sent to the upstream feed.
type Action int

const (
	ActionSubscribe Action = iota + 1
	ActionUnsubscribe
)

// Wire tags understood by the upstream feed.
const (
	WireActionReg    = "REG"
	WireActionRemove = "REMOVE"
)

// String returns the wire tag for the action.
func (a Action) String() string {
	switch a {
	case ActionSubscribe:
		return WireActionReg
	case ActionUnsubscribe:
		return WireActionRemove
	default:
		return "UNKNOWN"
	}
}

// ControlFrame tells the upstream feed to start or stop streaming a symbol.
// Built per registry transition, sent once, never retained.
type ControlFrame struct {
	Action Action
	Symbol string
}
