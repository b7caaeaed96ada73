// Package quadrature is the decoder of the two channel quadrature code
// https://en.wikipedia.org/wiki/Incremental_encoder#Quadrature_outputs
//
// Each edge of channel A or B moves the (A,B) pair one step along the cycle
// 00 -> 01 -> 11 -> 10 -> 00 (code = B<<1 | A). Walking the cycle forward
// means clockwise rotation, walking it backwards counter clockwise.
package quadrature

import (
	"sync"
)

// Channel identifies one of the two encoder outputs.
type Channel int

const (
	// A is the leading channel for clockwise rotation.
	A Channel = iota
	// B lags A by 90° for clockwise rotation.
	B
)

func (c Channel) String() string {
	switch c {
	case A:
		return "A"
	case B:
		return "B"
	default:
		return "?"
	}
}

// Direction is the last inferred direction of rotation.
type Direction int

const (
	Clockwise Direction = iota
	CounterClockwise
)

// String returns the direction label used in reports.
func (d Direction) String() string {
	if d == CounterClockwise {
		return "CCW"
	}
	return "CW"
}

// MarshalText lets reports carry the label instead of the number.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Edge is a level change of one channel.
type Edge struct {
	Channel Channel
	Level   bool
}

// State holds the last observed levels of both channels.
type State struct {
	A bool
	B bool
}

// Code returns the 2-bit quadrature code of the state.
func (s State) Code() Code {
	var c Code
	if s.A {
		c |= 1
	}
	if s.B {
		c |= 2
	}
	return c
}

// apply returns the state after edge e.
func (s State) apply(e Edge) State {
	switch e.Channel {
	case A:
		s.A = e.Level
	case B:
		s.B = e.Level
	}
	return s
}

// Sample is the read-and-reset result handed to the reporting loop.
type Sample struct {
	Pulses    uint64
	Direction Direction
}

// Decoder converts edges into a pulse counter and a direction flag.
// All methods are safe for concurrent use; each call is one critical section.
type Decoder struct {
	mu sync.Mutex
	// state is the pair of levels used for the last direction judgment.
	state State
	// pulses counts edges since the last Take or Reset.
	pulses uint64
	// direction keeps its value across unresolved transitions.
	direction Direction
	// unresolved counts repeated codes and two-bit jumps since start.
	unresolved uint64
}

// New returns a decoder in state (false,false), clockwise, count 0.
func New() *Decoder {
	return &Decoder{}
}

// OnEdge handles one edge: the counter is always incremented, the direction
// is updated only if the step from the previous code is a valid single-bit
// move. It returns the judgment for the transition.
func (d *Decoder) OnEdge(e Edge) Judgment {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.step(d.state.apply(e))
}

// Observe handles one edge reported as a snapshot of both levels, as read by
// an interrupt handler that samples both lines. A snapshot that differs in
// both bits (a missed edge) is counted but leaves the direction unchanged.
func (d *Decoder) Observe(next State) Judgment {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.step(next)
}

// step must be called with mu held.
func (d *Decoder) step(next State) Judgment {
	j := Transition(d.state.Code(), next.Code())

	d.pulses++
	switch j {
	case Forward:
		d.direction = Clockwise
	case Reverse:
		d.direction = CounterClockwise
	default:
		d.unresolved++
	}

	d.state = next
	return j
}

// Take returns the pulse counter and direction and resets the counter.
func (d *Decoder) Take() Sample {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Sample{Pulses: d.pulses, Direction: d.direction}
	d.pulses = 0
	return s
}

// Reset clears the pulse counter only.
func (d *Decoder) Reset() {
	d.mu.Lock()
	d.pulses = 0
	d.mu.Unlock()
}

// Seed replaces the tracked levels, e.g. with levels read at startup.
func (d *Decoder) Seed(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// Count returns the pulses seen since the last reset.
func (d *Decoder) Count() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pulses
}

// Direction returns the last inferred direction.
func (d *Decoder) Direction() Direction {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.direction
}

// State returns the tracked levels.
func (d *Decoder) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Unresolved returns the number of transitions that could not be decoded.
func (d *Decoder) Unresolved() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unresolved
}
