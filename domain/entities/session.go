package entities

import "time"

// ConnectionState represents the lifecycle state of a live session
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateError        ConnectionState = "error"
)

// IsValid reports whether the state is one of the known states
func (s ConnectionState) IsValid() bool {
	switch s {
	case StateDisconnected, StateConnecting, StateConnected, StateError:
		return true
	}
	return false
}

// IsTerminal reports whether no connection is alive in this state
func (s ConnectionState) IsTerminal() bool {
	return s == StateDisconnected || s == StateError
}

// SessionInfo is a point-in-time snapshot of a live session
type SessionInfo struct {
	ID          string          `json:"id,omitempty"`
	State       ConnectionState `json:"state"`
	Active      bool            `json:"active"`
	Video       bool            `json:"video"`
	ConnectedAt *time.Time      `json:"connected_at,omitempty"`
}

// Uptime returns how long the session has been connected
func (i SessionInfo) Uptime(now time.Time) time.Duration {
	if i.ConnectedAt == nil || i.State != StateConnected {
		return 0
	}
	return now.Sub(*i.ConnectedAt)
}
