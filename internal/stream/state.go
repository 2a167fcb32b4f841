package stream

// State is the lifecycle state of the stream connection.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
	AwaitingRetry
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "DISCONNECTED"
	case Connecting:
		return "CONNECTING"
	case Connected:
		return "CONNECTED"
	case AwaitingRetry:
		return "AWAITING_RETRY"
	default:
		return "UNKNOWN"
	}
}
