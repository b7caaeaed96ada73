package encoder

import (
	"os"
	"testing"
	"time"

	"quadmon/pkg/port"
	"quadmon/pkg/quadrature"

	"github.com/womat/debug"
)

func TestMain(m *testing.M) {
	debug.SetDebug(os.Stderr, debug.Standard)
	os.Exit(m.Run())
}

var lines = Lines{A: 6, B: 8}

// deliver sends evts, closes rx and waits for the monitor to stop.
func deliver(t *testing.T, m *Monitor, rx chan port.Event, evts []port.Event) {
	t.Helper()

	for _, e := range evts {
		rx <- e
	}
	close(rx)

	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after rx was closed")
	}
}

func cycle(first, second int, n int) []port.Event {
	var evts []port.Event
	for i := 0; i < n; i++ {
		evts = append(evts,
			port.Event{Line: first, Type: port.RisingEdge},
			port.Event{Line: second, Type: port.RisingEdge},
			port.Event{Line: first, Type: port.FallingEdge},
			port.Event{Line: second, Type: port.FallingEdge},
		)
	}
	return evts
}

func TestMonitor_Clockwise(t *testing.T) {
	rx := make(chan port.Event)
	d := quadrature.New()
	m := New(rx, lines, d)

	deliver(t, m, rx, cycle(lines.A, lines.B, 408))

	s := d.Take()
	if s.Pulses != 1632 {
		t.Errorf("expected 1632 pulses, got %d", s.Pulses)
	}
	if s.Direction != quadrature.Clockwise {
		t.Errorf("expected CW, got %v", s.Direction)
	}
	if st := m.Stats(); st.Edges != 1632 || st.Unresolved != 0 {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestMonitor_CounterClockwise(t *testing.T) {
	rx := make(chan port.Event)
	d := quadrature.New()
	m := New(rx, lines, d)

	deliver(t, m, rx, cycle(lines.B, lines.A, 10))

	if dir := d.Direction(); dir != quadrature.CounterClockwise {
		t.Errorf("expected CCW, got %v", dir)
	}
}

func TestMonitor_UnknownLineDropped(t *testing.T) {
	rx := make(chan port.Event)
	d := quadrature.New()
	m := New(rx, lines, d)

	deliver(t, m, rx, []port.Event{
		{Line: 13, Type: port.RisingEdge},
		{Line: lines.A, Type: port.RisingEdge},
	})

	st := m.Stats()
	if st.Dropped != 1 {
		t.Errorf("expected 1 dropped event, got %d", st.Dropped)
	}
	if c := d.Count(); c != 1 {
		t.Errorf("expected count=1, got %d", c)
	}
}

func TestMonitor_RepeatedEdgeUnresolved(t *testing.T) {
	rx := make(chan port.Event)
	d := quadrature.New()
	m := New(rx, lines, d)

	deliver(t, m, rx, []port.Event{
		{Line: lines.B, Type: port.RisingEdge},
		{Line: lines.B, Type: port.RisingEdge},
	})

	if st := m.Stats(); st.Unresolved != 1 || st.Edges != 2 {
		t.Errorf("unexpected stats %+v", st)
	}
	if dir := d.Direction(); dir != quadrature.CounterClockwise {
		t.Errorf("expected CCW kept, got %v", dir)
	}
}

func TestMonitor_Close(t *testing.T) {
	m := New(make(chan port.Event), lines, quadrature.New())

	stopped := make(chan struct{})
	go func() {
		_ = m.Close()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}

	// closing a stopped monitor is a no-op
	_ = m.Close()
}
