package domain

// SessionState is the lifecycle position of a peer session.
type SessionState uint8

const (
	SessionIdle SessionState = iota
	SessionConnecting
	SessionOpen
	SessionKeyExchanged
	SessionClosed
	SessionErrored
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionConnecting:
		return "connecting"
	case SessionOpen:
		return "open"
	case SessionKeyExchanged:
		return "key-exchanged"
	case SessionClosed:
		return "closed"
	case SessionErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s SessionState) Terminal() bool {
	return s == SessionClosed || s == SessionErrored
}
