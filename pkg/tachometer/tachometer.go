// Package tachometer turns the pulses counted in a sampling window into
// rotations per second and hands the result to its sinks.
package tachometer

import (
	"fmt"
	"time"

	"quadmon/pkg/quadrature"

	"github.com/womat/debug"
)

const (
	// DefaultPulsesPerRotation is 408 slots × 4 edges (both channels, both polarities).
	DefaultPulsesPerRotation = 408 * 4
	// DefaultWindow is the sampling window.
	DefaultWindow = time.Second
)

// Config holds the calibration of the tachometer.
type Config struct {
	// PulsesPerRotation is the number of edges of both channels per full revolution.
	PulsesPerRotation int
	// Window is the duration pulses are accumulated before a report is computed.
	Window time.Duration
}

// Report is the result of one sampling window.
type Report struct {
	TimeStamp          time.Time
	Pulses             uint64
	Window             time.Duration
	RotationsPerSecond float64
	Direction          quadrature.Direction
	// Moving is false if no rotation was measured; Direction is not meaningful then.
	Moving bool
}

// String formats the report as "rotations/s = <rate>" followed by the
// direction label if rotation was detected.
func (r Report) String() string {
	s := fmt.Sprintf("rotations/s = %.3f", r.RotationsPerSecond)
	if r.Moving {
		s += " " + r.Direction.String()
	}
	return s
}

// Sampler is implemented by the decoder: read the counter and reset it in one step.
type Sampler interface {
	Take() quadrature.Sample
}

// Sink receives every report.
type Sink interface {
	Publish(Report)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Report)

// Publish calls f(r).
func (f SinkFunc) Publish(r Report) { f(r) }

// Validate checks the calibration.
func (c Config) Validate() error {
	if c.PulsesPerRotation <= 0 {
		return fmt.Errorf("pulses per rotation must be > 0, got %d", c.PulsesPerRotation)
	}
	if c.Window <= 0 {
		return fmt.Errorf("window must be > 0, got %v", c.Window)
	}
	return nil
}

// Compute calculates the report for one window.
//  rotations/s = pulses / (pulses per rotation × window in seconds)
func Compute(c Config, s quadrature.Sample, at time.Time) Report {
	r := Report{
		TimeStamp: at,
		Pulses:    s.Pulses,
		Window:    c.Window,
		Direction: s.Direction,
	}

	if c.PulsesPerRotation > 0 && c.Window > 0 {
		r.RotationsPerSecond = float64(s.Pulses) / (float64(c.PulsesPerRotation) * c.Window.Seconds())
	}
	r.Moving = r.RotationsPerSecond != 0
	return r
}

// Reporter is the periodic reporting loop.
type Reporter struct {
	config Config
	src    Sampler
	sinks  []Sink

	// quit stops Run
	quit chan struct{}
	// done signals that Run is terminated
	done chan struct{}
}

// NewReporter creates a reporter reading src and publishing to sinks.
func NewReporter(c Config, src Sampler, sinks ...Sink) *Reporter {
	return &Reporter{
		config: c,
		src:    src,
		sinks:  sinks,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Run waits for the end of each window on tick, takes the counter and publishes a report.
// It returns when tick is closed or Close is called.
// Run must only be called once per Reporter, use NewReporter for a new loop.
func (r *Reporter) Run(tick <-chan time.Time) {
	defer close(r.done)

	for {
		select {
		case <-r.quit:
			return
		case t, open := <-tick:
			if !open {
				return
			}

			rep := Compute(r.config, r.src.Take(), t)
			debug.TraceLog.Printf("window %v: %v pulses", rep.Window, rep.Pulses)

			for _, s := range r.sinks {
				s.Publish(rep)
			}
		}
	}
}

// Close stops Run and waits until it is terminated.
// It must only be called once, after Run has been started.
func (r *Reporter) Close() error {
	close(r.quit)
	<-r.done
	return nil
}
