// internal/realtime/connection/state.go
package connection

// State is the lifecycle position of one logical channel.
//
//	Idle -> Connecting -> Open -> ClosedWillRetry -> Connecting (after delay)
//	                           -> ClosedFinal
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosedWillRetry
	StateClosedFinal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosedWillRetry:
		return "closed-will-retry"
	case StateClosedFinal:
		return "closed-final"
	default:
		return "unknown"
	}
}
