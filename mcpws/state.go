package mcpws

import "time"

// ConnectionState represents the current state of the WebSocket connection.
type ConnectionState int

const (
	// StateDisconnected means the client is not connected.
	StateDisconnected ConnectionState = iota

	// StateConnecting means the client is establishing a connection.
	StateConnecting

	// StateConnected means the client is connected and ready.
	StateConnected

	// StateError means the client encountered an error. Error is not a
	// terminal state: the close path still transitions to disconnected.
	StateError
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// State is a read-only snapshot of the client's connection record.
type State struct {
	// Status is the current connection state.
	Status ConnectionState

	// Connected is true while Status is StateConnected.
	Connected bool

	// LastConnectedAt is the time the most recent connection opened.
	// Zero if the client never connected.
	LastConnectedAt time.Time

	// ReconnectAttempt is the ordinal of the pending or most recent
	// reconnection attempt. Reset to 0 on a successful open.
	ReconnectAttempt int

	// LastError is the most recent connection-level error, nil if none.
	LastError error
}

// StateEvent describes a state transition.
type StateEvent struct {
	Old ConnectionState
	New ConnectionState
	Err error // error that caused the transition, if any
}
