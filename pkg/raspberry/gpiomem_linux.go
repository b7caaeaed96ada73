//go:build linux
// +build linux

package raspberry

import (
	"sync"
	"time"

	"github.com/warthog618/gpio"
	"github.com/womat/debug"

	"quadmon/pkg/port"
)

// RpiLines watches the encoder pins through /dev/gpiomem.
type RpiLines struct {
	pinA, pinB *gpio.Pin
	start      time.Time

	// send edge changes to channel c
	c      chan port.Event
	cl     sync.RWMutex
	closed bool
}

// openMem maps the GPIO memory and watches both pins for both edges.
// The gpio package serves all watches from one goroutine, so handlers run one at a time.
func openMem(c Config) (*RpiLines, error) {
	if err := checkBias(c.Bias); err != nil {
		return nil, err
	}

	if err := gpio.Open(); err != nil {
		return nil, err
	}

	l := &RpiLines{
		pinA:  gpio.NewPin(c.PinA),
		pinB:  gpio.NewPin(c.PinB),
		start: time.Now(),
		c:     make(chan port.Event, eventBuffer),
	}

	for _, p := range []*gpio.Pin{l.pinA, l.pinB} {
		p.Input()
		switch c.Bias {
		case "pullup":
			p.PullUp()
		case "pulldown":
			p.PullDown()
		default:
			p.PullNone()
		}

		if err := p.Watch(gpio.EdgeBoth, l.handler); err != nil {
			l.unwatch()
			_ = gpio.Close()
			return nil, err
		}
	}

	debug.InfoLog.Printf("watching gpiomem pins %v (A) and %v (B), bias %v", c.PinA, c.PinB, c.Bias)
	return l, nil
}

// handler reads the new level of the pin and forwards the edge.
func (l *RpiLines) handler(p *gpio.Pin) {
	e := port.Event{
		Timestamp: time.Since(l.start),
		Type:      port.EdgeOf(bool(p.Read())),
		Line:      p.Pin(),
	}

	l.cl.RLock()
	defer l.cl.RUnlock()

	if l.closed {
		return
	}
	l.c <- e
}

func (l *RpiLines) unwatch() {
	l.pinA.Unwatch()
	l.pinB.Unwatch()
}

// C returns the edge channel.
func (l *RpiLines) C() <-chan port.Event {
	return l.c
}

// Lines returns the BCM numbers of A and B.
func (l *RpiLines) Lines() (int, int) {
	return l.pinA.Pin(), l.pinB.Pin()
}

// Levels reads the current pin states.
func (l *RpiLines) Levels() (a, b bool, err error) {
	return bool(l.pinA.Read()), bool(l.pinB.Read()), nil
}

// Close removes the interrupt handlers and unmaps GPIO memory.
func (l *RpiLines) Close() error {
	l.unwatch()

	l.cl.Lock()
	l.closed = true
	close(l.c)
	l.cl.Unlock()

	return gpio.Close()
}
