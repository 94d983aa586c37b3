package goAuthClient

// State is the session state machine's current state.
type State uint8

const (
	// StateAnonymous means no usable session exists.
	StateAnonymous State = iota
	// StateAuthenticating means a login is in flight.
	StateAuthenticating
	// StateAuthenticated means the token store holds a live session.
	StateAuthenticated
	// StateRefreshing means the background refresher is renewing tokens.
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return "anonymous"
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Session is an immutable snapshot of the session controller.
type Session struct {
	State         State  `json:"state"`
	User          *User  `json:"user,omitempty"`
	Authenticated bool   `json:"authenticated"`
	Loading       bool   `json:"loading"`
	LastError     string `json:"last_error,omitempty"`
}
