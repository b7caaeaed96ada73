package raspberry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/womat/debug"

	"quadmon/pkg/port"
)

// EmulatorConfig configures the software quadrature generator.
type EmulatorConfig struct {
	// EdgeRate is the number of edges per second, 0 generates edges only on Step.
	EdgeRate int
	// Direction is cw or ccw.
	Direction string
}

// Emulator emulates the two lines of a rotating quadrature encoder.
type Emulator struct {
	pinA, pinB int
	start      time.Time

	sl   sync.Mutex
	a, b bool
	// phase is the position in the cycle A+ B+ A- B-
	phase int
	ccw   bool

	c      chan port.Event
	quit   chan struct{}
	done   chan struct{}
	closed bool
}

// NewEmulator creates an emulator for lines a and b.
// If c.EdgeRate > 0, edges are generated in the background until Close.
func NewEmulator(a, b int, c EmulatorConfig) (*Emulator, error) {
	if c.EdgeRate < 0 {
		return nil, fmt.Errorf("edge rate %d: %w", c.EdgeRate, ErrInvalidParam)
	}

	var period time.Duration
	if c.EdgeRate > 0 {
		// the ticker needs a period of at least 1ns
		if period = time.Second / time.Duration(c.EdgeRate); period <= 0 {
			return nil, fmt.Errorf("edge rate %d above 1 edge/ns: %w", c.EdgeRate, ErrInvalidParam)
		}
	}

	e := &Emulator{
		pinA:  a,
		pinB:  b,
		start: time.Now(),
		c:     make(chan port.Event, eventBuffer),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	if err := e.SetDirection(c.Direction); err != nil {
		return nil, err
	}

	if c.EdgeRate == 0 {
		close(e.done)
		return e, nil
	}

	go e.run(period)
	debug.InfoLog.Printf("emulating %v edges/s %v on lines %v (A) and %v (B)", c.EdgeRate, c.Direction, a, b)
	return e, nil
}

// SetDirection changes the emulated direction of rotation (cw or ccw).
func (e *Emulator) SetDirection(dir string) error {
	e.sl.Lock()
	defer e.sl.Unlock()

	switch dir {
	case "", "cw":
		e.ccw = false
	case "ccw":
		e.ccw = true
	default:
		return errors.New("emulator direction must be cw or ccw")
	}
	return nil
}

func (e *Emulator) run(period time.Duration) {
	defer close(e.done)

	t := time.NewTicker(period)
	defer t.Stop()

	for {
		select {
		case <-e.quit:
			return
		case <-t.C:
			e.Step(1)
		}
	}
}

// Step emits n edges of the emulated rotation.
// The clockwise cycle is A rising, B rising, A falling, B falling.
func (e *Emulator) Step(n int) {
	e.sl.Lock()
	defer e.sl.Unlock()

	for i := 0; i < n; i++ {
		if e.closed {
			return
		}

		if e.ccw {
			e.phase = (e.phase + 3) % 4
		}

		var evt port.Event
		// counter clockwise walks the cycle backwards: undo the step at the new phase
		switch e.phase {
		case 0:
			e.a = !e.ccw
			evt = port.Event{Line: e.pinA, Type: port.EdgeOf(e.a)}
		case 1:
			e.b = !e.ccw
			evt = port.Event{Line: e.pinB, Type: port.EdgeOf(e.b)}
		case 2:
			e.a = e.ccw
			evt = port.Event{Line: e.pinA, Type: port.EdgeOf(e.a)}
		case 3:
			e.b = e.ccw
			evt = port.Event{Line: e.pinB, Type: port.EdgeOf(e.b)}
		}

		if !e.ccw {
			e.phase = (e.phase + 1) % 4
		}

		evt.Timestamp = time.Since(e.start)
		select {
		case e.c <- evt:
		default:
			debug.ErrorLog.Print("emulator buffer full, edge lost")
		}
	}
}

// C returns the edge channel.
func (e *Emulator) C() <-chan port.Event {
	return e.c
}

// Lines returns the emulated line numbers.
func (e *Emulator) Lines() (int, int) {
	return e.pinA, e.pinB
}

// Levels returns the emulated levels.
func (e *Emulator) Levels() (bool, bool, error) {
	e.sl.Lock()
	defer e.sl.Unlock()
	return e.a, e.b, nil
}

// Close stops the generator and closes the edge channel.
func (e *Emulator) Close() error {
	e.sl.Lock()
	if e.closed {
		e.sl.Unlock()
		return nil
	}
	e.closed = true
	e.sl.Unlock()

	select {
	case <-e.done:
	default:
		close(e.quit)
		<-e.done
	}

	close(e.c)
	return nil
}
