// Package domain contains entity without logic, just meta-data
package domain

import "github.com/google/uuid"

type ConnID string

// NewConnID returns a fresh id for a single WebSocket lifetime.
func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}

type ConnState int

const (
	StateIdle ConnState = iota
	StateWaiting
	StateRoomPending
	StatePaired
)

func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StateRoomPending:
		return "room_pending"
	case StatePaired:
		return "paired"
	default:
		return "unknown"
	}
}
