package pairing

import "fmt"

// State is a step of the application authentication handshake.
type State int

const (
	StateStart State = iota
	StateAppTokenGenerated
	StateExchanged
	StatePersisted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "Start"
	case StateAppTokenGenerated:
		return "AppTokenGenerated"
	case StateExchanged:
		return "Exchanged"
	case StatePersisted:
		return "Persisted"
	case StateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
