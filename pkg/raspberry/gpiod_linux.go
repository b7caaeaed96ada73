//go:build linux
// +build linux

package raspberry

import (
	"sync"

	"github.com/warthog618/gpiod"
	"github.com/womat/debug"

	"quadmon/pkg/port"
)

// Chip watches both encoder lines of a gpio character device.
type Chip struct {
	gpiodChip  *gpiod.Chip
	gpiodLines *gpiod.Lines
	pinA, pinB int

	// send edge changes to channel c
	c chan port.Event
	// cl guards c against sends after close
	cl     sync.RWMutex
	closed bool
}

// openChip requests both lines in a single request, so the kernel reports
// the edges of A and B through one event queue, in hardware order.
func openChip(c Config) (*Chip, error) {
	if err := checkBias(c.Bias); err != nil {
		return nil, err
	}

	gc, err := gpiod.NewChip(c.Chip, gpiod.WithConsumer("quadmon"))
	if err != nil {
		return nil, err
	}

	chip := &Chip{
		gpiodChip: gc,
		pinA:      c.PinA,
		pinB:      c.PinB,
		c:         make(chan port.Event, eventBuffer),
	}

	// handler is called from the single watcher goroutine of the request
	handler := func(evt gpiod.LineEvent) {
		var t port.EventType
		switch evt.Type {
		case gpiod.LineEventRisingEdge:
			t = port.RisingEdge
		case gpiod.LineEventFallingEdge:
			t = port.FallingEdge
		default:
			debug.ErrorLog.Printf("invalid line event type: %v", evt.Type)
			return
		}

		chip.send(port.Event{Timestamp: evt.Timestamp, Type: t, Line: evt.Offset})
	}

	opts := []gpiod.LineReqOption{gpiod.AsInput, gpiod.WithBothEdges, gpiod.WithEventHandler(handler)}
	switch c.Bias {
	case "pullup":
		opts = append(opts, gpiod.WithPullUp)
	case "pulldown":
		opts = append(opts, gpiod.WithPullDown)
	}
	if c.Debounce > 0 {
		opts = append(opts, gpiod.WithDebounce(c.Debounce))
	}

	if chip.gpiodLines, err = gc.RequestLines([]int{c.PinA, c.PinB}, opts...); err != nil {
		_ = gc.Close()
		return nil, err
	}

	debug.InfoLog.Printf("watching %v lines %v (A) and %v (B), bias %v", c.Chip, c.PinA, c.PinB, c.Bias)
	return chip, nil
}

// send forwards an event; it blocks the watcher while the decoder is busy,
// which defers further edges instead of reordering them.
func (c *Chip) send(e port.Event) {
	c.cl.RLock()
	defer c.cl.RUnlock()

	if c.closed {
		return
	}
	c.c <- e
}

// C returns the edge channel.
func (c *Chip) C() <-chan port.Event {
	return c.c
}

// Lines returns the offsets of A and B.
func (c *Chip) Lines() (int, int) {
	return c.pinA, c.pinB
}

// Levels reads the current values of both lines.
func (c *Chip) Levels() (a, b bool, err error) {
	v := make([]int, 2)
	if err = c.gpiodLines.Values(v); err != nil {
		return false, false, err
	}
	return v[0] == 1, v[1] == 1, nil
}

// Close releases all resources held by the requested lines and the chip.
//
// Note that this includes waiting for any running event handler to return.
// The edge channel must still be drained while Close is running.
func (c *Chip) Close() error {
	err := c.gpiodLines.Close()

	c.cl.Lock()
	c.closed = true
	close(c.c)
	c.cl.Unlock()

	if e := c.gpiodChip.Close(); err == nil {
		err = e
	}
	return err
}
