package channel

// State is the channel's connection state. Exactly one value is current.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Erroring
	Closing
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Erroring:
		return "error"
	case Closing:
		return "closing"
	}
	return "unknown"
}

// CanOpen reports whether Open is a legal transition from s. Erroring is
// terminal for an attempt and only left through a fresh Open.
func (s State) CanOpen() bool {
	return s == Disconnected || s == Erroring
}
