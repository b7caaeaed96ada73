// Package raspberry is the watcher for the gpio lines of the encoder
package raspberry

import (
	"errors"
	"fmt"
	"time"

	"quadmon/pkg/port"
)

var (
	ErrInvalidParam   = errors.New("invalid parameters")
	ErrUnknownBackend = errors.New("unknown gpio backend")
	ErrNotSupported   = errors.New("gpio backend not supported on this platform")
)

// eventBuffer is the number of edges buffered between the line watcher and the decoder.
const eventBuffer = 1024

// Backend names.
const (
	BackendGpiod    = "gpiod"
	BackendGpiomem  = "gpiomem"
	BackendEmulator = "emulator"
)

// Source delivers the edges of both encoder lines on a single channel,
// in the order the edges occurred.
type Source interface {
	// C returns the channel of edge events. It is closed by Close.
	C() <-chan port.Event
	// Levels reads the current levels of line A and B.
	Levels() (a, b bool, err error)
	// Lines returns the line numbers of A and B.
	Lines() (a, b int)
	// Close releases the lines.
	Close() error
}

// Config defines which lines are watched and how.
type Config struct {
	// Backend is one of gpiod, gpiomem or emulator.
	Backend string
	// Chip is the gpio character device, e.g. gpiochip0 (gpiod only).
	Chip string
	// PinA and PinB are the line offsets (gpiod) or BCM numbers (gpiomem).
	PinA int
	PinB int
	// Bias is the terminator of both inputs: pullup, pulldown or none.
	Bias string
	// Debounce is the kernel debounce period, 0 disables debouncing (gpiod only).
	Debounce time.Duration
	// Emulator configures the software edge generator.
	Emulator EmulatorConfig
}

// Open opens the configured edge source.
func Open(c Config) (Source, error) {
	if c.PinA == c.PinB || c.PinA < 0 || c.PinB < 0 {
		return nil, fmt.Errorf("pins %v and %v: %w", c.PinA, c.PinB, ErrInvalidParam)
	}

	var s Source
	var err error

	switch c.Backend {
	case BackendGpiod:
		s, err = openChip(c)
	case BackendGpiomem:
		s, err = openMem(c)
	case BackendEmulator:
		s, err = NewEmulator(c.PinA, c.PinB, c.Emulator)
	default:
		return nil, fmt.Errorf("%q: %w", c.Backend, ErrUnknownBackend)
	}

	if err != nil {
		return nil, fmt.Errorf("open %v lines: %w", c.Backend, err)
	}
	return s, nil
}

// checkBias validates the terminator setting.
func checkBias(bias string) error {
	switch bias {
	case "pullup", "pulldown", "none":
		return nil
	default:
		return fmt.Errorf("bias %q: %w", bias, ErrInvalidParam)
	}
}
