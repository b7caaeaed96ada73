package quadrature

import (
	"sync"
	"testing"
)

// cw is one full clockwise cycle: A rising, B rising, A falling, B falling.
var cw = []Edge{{A, true}, {B, true}, {A, false}, {B, false}}

// ccw is one full counter clockwise cycle.
var ccw = []Edge{{B, true}, {A, true}, {B, false}, {A, false}}

func TestTransition_Table(t *testing.T) {
	forward := []Code{0b00, 0b01, 0b11, 0b10}

	for prev := Code(0); prev < 4; prev++ {
		for next := Code(0); next < 4; next++ {
			want := Unresolved
			for i, c := range forward {
				if c != prev {
					continue
				}
				switch next {
				case forward[(i+1)%4]:
					want = Forward
				case forward[(i+3)%4]:
					want = Reverse
				}
			}

			if got := Transition(prev, next); got != want {
				t.Errorf("Transition(%02b, %02b) = %v, want %v", prev, next, got, want)
			}
		}
	}
}

func TestTransition_SingleBitAlwaysResolves(t *testing.T) {
	for prev := Code(0); prev < 4; prev++ {
		for _, bit := range []Code{1, 2} {
			if j := Transition(prev, prev^bit); j == Unresolved {
				t.Errorf("single bit step %02b -> %02b is unresolved", prev, prev^bit)
			}
		}
	}
}

func TestTransition_TwoBitJumpUnresolved(t *testing.T) {
	for prev := Code(0); prev < 4; prev++ {
		if j := Transition(prev, prev^3); j != Unresolved {
			t.Errorf("jump %02b -> %02b = %v, want unresolved", prev, prev^3, j)
		}
	}
}

func TestDecoder_Initial(t *testing.T) {
	d := New()

	if s := d.State(); s != (State{}) {
		t.Errorf("expected initial state (false,false), got %+v", s)
	}
	if c := d.Count(); c != 0 {
		t.Errorf("expected count=0, got %d", c)
	}
	if dir := d.Direction(); dir != Clockwise {
		t.Errorf("expected initial direction CW, got %v", dir)
	}
}

func TestDecoder_Clockwise(t *testing.T) {
	d := New()

	for i, e := range cw {
		if j := d.OnEdge(e); j != Forward {
			t.Errorf("edge %d (%v=%v): expected forward, got %v", i, e.Channel, e.Level, j)
		}
		if dir := d.Direction(); dir != Clockwise {
			t.Errorf("edge %d: expected CW, got %v", i, dir)
		}
	}

	if s := d.State(); s != (State{}) {
		t.Errorf("expected state back at (false,false), got %+v", s)
	}
}

func TestDecoder_CounterClockwise(t *testing.T) {
	d := New()

	for i, e := range ccw {
		if j := d.OnEdge(e); j != Reverse {
			t.Errorf("edge %d (%v=%v): expected reverse, got %v", i, e.Channel, e.Level, j)
		}
		if dir := d.Direction(); dir != CounterClockwise {
			t.Errorf("edge %d: expected CCW, got %v", i, dir)
		}
	}
}

func TestDecoder_DirectionReversal(t *testing.T) {
	d := New()

	d.OnEdge(Edge{A, true}) // 00 -> 01
	d.OnEdge(Edge{B, true}) // 01 -> 11
	if dir := d.Direction(); dir != Clockwise {
		t.Fatalf("expected CW, got %v", dir)
	}

	d.OnEdge(Edge{B, false}) // 11 -> 01
	if dir := d.Direction(); dir != CounterClockwise {
		t.Errorf("expected CCW after reversal, got %v", dir)
	}
}

func TestDecoder_CountsEveryEdge(t *testing.T) {
	tests := []struct {
		name  string
		edges []Edge
	}{
		{"none", nil},
		{"clockwise", cw},
		{"counter clockwise", ccw},
		{"repeated level", []Edge{{A, true}, {A, true}, {A, true}}},
		{"mixed", []Edge{{A, true}, {B, true}, {B, false}, {A, true}, {A, false}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New()
			for _, e := range tt.edges {
				d.OnEdge(e)
			}
			if c := d.Count(); c != uint64(len(tt.edges)) {
				t.Errorf("expected count=%d, got %d", len(tt.edges), c)
			}
		})
	}
}

func TestDecoder_RepeatedLevelKeepsDirection(t *testing.T) {
	d := New()
	d.OnEdge(Edge{B, true}) // CCW

	if j := d.OnEdge(Edge{B, true}); j != Unresolved {
		t.Errorf("expected unresolved, got %v", j)
	}
	if dir := d.Direction(); dir != CounterClockwise {
		t.Errorf("expected direction kept at CCW, got %v", dir)
	}
	if n := d.Unresolved(); n != 1 {
		t.Errorf("expected 1 unresolved, got %d", n)
	}
}

func TestDecoder_ObserveTwoBitJump(t *testing.T) {
	d := New()
	d.OnEdge(Edge{B, true}) // 00 -> 10, CCW

	// 10 -> 01: both bits changed, an edge was missed.
	if j := d.Observe(State{A: true, B: false}); j != Unresolved {
		t.Errorf("expected unresolved, got %v", j)
	}
	if dir := d.Direction(); dir != CounterClockwise {
		t.Errorf("expected direction unchanged (CCW), got %v", dir)
	}
	if c := d.Count(); c != 2 {
		t.Errorf("expected count=2, got %d", c)
	}
	if s := d.State(); s != (State{A: true}) {
		t.Errorf("expected state carried forward to (true,false), got %+v", s)
	}

	// Decoding continues from the new pair: 01 -> 11 is forward.
	if j := d.OnEdge(Edge{B, true}); j != Forward {
		t.Errorf("expected forward after jump, got %v", j)
	}
}

func TestDecoder_ResetKeepsDirectionAndState(t *testing.T) {
	d := New()
	d.OnEdge(Edge{B, true})
	d.OnEdge(Edge{A, true})

	d.Reset()

	if c := d.Count(); c != 0 {
		t.Errorf("expected count=0 after reset, got %d", c)
	}
	if dir := d.Direction(); dir != CounterClockwise {
		t.Errorf("expected CCW after reset, got %v", dir)
	}
	if s := d.State(); s != (State{A: true, B: true}) {
		t.Errorf("expected state (true,true) after reset, got %+v", s)
	}
}

func TestDecoder_Take(t *testing.T) {
	d := New()
	for i := 0; i < 3; i++ {
		for _, e := range ccw {
			d.OnEdge(e)
		}
	}

	s := d.Take()
	if s.Pulses != 12 {
		t.Errorf("expected 12 pulses, got %d", s.Pulses)
	}
	if s.Direction != CounterClockwise {
		t.Errorf("expected CCW, got %v", s.Direction)
	}

	if s = d.Take(); s.Pulses != 0 {
		t.Errorf("expected 0 pulses on second take, got %d", s.Pulses)
	}
	if s.Direction != CounterClockwise {
		t.Errorf("expected direction kept by take, got %v", s.Direction)
	}
}

func TestDecoder_Seed(t *testing.T) {
	d := New()
	d.Seed(State{A: true, B: true})

	// 11 -> 10 is forward.
	if j := d.OnEdge(Edge{A, false}); j != Forward {
		t.Errorf("expected forward from seeded state, got %v", j)
	}
	if c := d.Count(); c != 1 {
		t.Errorf("seed must not count, got %d", c)
	}
}

// TestDecoder_ConcurrentTake checks that no edge is lost or counted twice
// when the counter is taken while edges arrive.
func TestDecoder_ConcurrentTake(t *testing.T) {
	const cycles = 5000

	d := New()
	var total uint64
	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				total += d.Take().Pulses
			}
		}
	}()

	for i := 0; i < cycles; i++ {
		for _, e := range cw {
			d.OnEdge(e)
		}
	}
	close(done)
	wg.Wait()

	total += d.Take().Pulses
	if total != cycles*4 {
		t.Errorf("expected %d pulses in total, got %d", cycles*4, total)
	}
}

func TestDirection_String(t *testing.T) {
	if s := Clockwise.String(); s != "CW" {
		t.Errorf("expected CW, got %q", s)
	}
	if s := CounterClockwise.String(); s != "CCW" {
		t.Errorf("expected CCW, got %q", s)
	}
}
