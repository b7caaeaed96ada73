// Package port holds the definition of a physical port
package port

import "time"

// EventType indicates the type of change to the line active state.
//
// Note that for active low lines a low line level results in a high active
// state.
type EventType int

const (
	_ EventType = iota
	// RisingEdge indicates an inactive to active event (low to high).
	RisingEdge
	// FallingEdge indicates an active to inactive event (high to low).
	FallingEdge
)

// String returns the edge name used in logs and traces.
func (t EventType) String() string {
	switch t {
	case RisingEdge:
		return "rising"
	case FallingEdge:
		return "falling"
	default:
		return "unknown"
	}
}

// Level returns the line level after an edge of this type.
func (t EventType) Level() bool {
	return t == RisingEdge
}

// Event is a single edge detected on a line.
type Event struct {
	// Timestamp indicates the time the event was detected.
	Timestamp time.Duration
	// The type of state change event this structure represents.
	Type EventType
	// Line is the offset (or BCM number) of the line that changed.
	Line int
}

// EdgeOf returns the event type for a transition to level v.
func EdgeOf(v bool) EventType {
	if v {
		return RisingEdge
	}
	return FallingEdge
}
