package quadrature

// Code is the 2-bit quadrature code B<<1 | A.
type Code uint8

// Judgment is the direction information carried by a transition.
type Judgment int

const (
	// Unresolved means no single-bit step: same code or both bits changed.
	Unresolved Judgment = iota
	// Forward is a step along 00 -> 01 -> 11 -> 10 -> 00 (clockwise).
	Forward
	// Reverse is a step along 00 -> 10 -> 11 -> 01 -> 00 (counter clockwise).
	Reverse
)

func (j Judgment) String() string {
	switch j {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return "unresolved"
	}
}

const (
	u = Unresolved
	f = Forward
	r = Reverse
)

// transitions is indexed by [previous code][next code].
var transitions = [4][4]Judgment{
	//        00 01 10 11
	0b00: {u, f, r, u},
	0b01: {r, u, u, f},
	0b10: {f, u, u, r},
	0b11: {u, r, f, u},
}

// Transition looks up the judgment for a move from prev to next.
func Transition(prev, next Code) Judgment {
	return transitions[prev&3][next&3]
}
