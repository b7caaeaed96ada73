// Package encoder delivers the edges of a quadrature encoder to the decoder.
//
// Edges of both lines arrive on one channel in the order the hardware saw
// them. A single goroutine drains the channel and hands one edge at a time to
// the decoder, so two edges are never processed concurrently.
package encoder

import (
	"sync"

	"quadmon/pkg/port"
	"quadmon/pkg/quadrature"

	"github.com/womat/debug"
)

// Lines maps the hardware lines to the encoder channels.
type Lines struct {
	A int
	B int
}

// Stats are the delivery counters of a monitor.
type Stats struct {
	// Edges is the number of edges handed to the decoder.
	Edges uint64
	// Unresolved is the number of edges that carried no direction information.
	Unresolved uint64
	// Dropped is the number of events from lines not belonging to the encoder.
	Dropped uint64
}

// Monitor represents the handler of the edge delivery.
type Monitor struct {
	lines   Lines
	decoder *quadrature.Decoder

	// rx is the channel to receive the line events
	rx <-chan port.Event

	sl    sync.Mutex
	stats Stats

	// quit is the channel to stop the monitor
	quit chan struct{}
	// done signals that run is terminated
	done chan struct{}
}

// New starts delivering the events of rx to d.
func New(rx <-chan port.Event, l Lines, d *quadrature.Decoder) *Monitor {
	m := Monitor{
		lines:   l,
		decoder: d,
		rx:      rx,
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}

	go m.run()
	return &m
}

// Close stops the delivery and waits until run is terminated.
func (m *Monitor) Close() error {
	select {
	case <-m.done:
		return nil
	case m.quit <- struct{}{}:
	}

	<-m.done
	return nil
}

// Done is closed when the monitor stopped, e.g. because rx was closed.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

// Stats returns a copy of the delivery counters.
func (m *Monitor) Stats() Stats {
	m.sl.Lock()
	defer m.sl.Unlock()
	return m.stats
}

// run receives line events and hands them to the decoder one by one.
func (m *Monitor) run() {
	defer close(m.done)

	for {
		select {
		case <-m.quit:
			return
		case evt, open := <-m.rx:
			if !open {
				debug.InfoLog.Print("edge source closed, stop monitoring")
				return
			}

			m.eventHandler(evt)
		}
	}
}

// eventHandler translates a line event to an encoder edge and decodes it.
func (m *Monitor) eventHandler(evt port.Event) {
	var e quadrature.Edge

	switch evt.Line {
	case m.lines.A:
		e.Channel = quadrature.A
	case m.lines.B:
		e.Channel = quadrature.B
	default:
		debug.ErrorLog.Printf("edge from unexpected line %v", evt.Line)
		m.sl.Lock()
		m.stats.Dropped++
		m.sl.Unlock()
		return
	}
	e.Level = evt.Type.Level()

	j := m.decoder.OnEdge(e)

	m.sl.Lock()
	m.stats.Edges++
	if j == quadrature.Unresolved {
		m.stats.Unresolved++
	}
	m.sl.Unlock()

	if j == quadrature.Unresolved {
		debug.TraceLog.Printf("unresolved transition on %v %v edge at %v", e.Channel, evt.Type, evt.Timestamp)
	}
}
