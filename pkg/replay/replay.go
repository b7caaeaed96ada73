// Package replay feeds a recorded or hand written edge trace through the
// decoder and the tachometer math, one sampling window at a time.
//
// A trace is a yaml file:
//
//	pulsesperrotation: 1632
//	window: 1000
//	start: "00"
//	windows:
//	  - pattern: A+ B+ A- B-
//	    repeat: 408
//	  - idle: true
//
// A pattern is a list of edge tokens: A+ A- B+ B- set one line, AB toggles
// both lines at once.
package replay

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"quadmon/pkg/quadrature"
	"quadmon/pkg/tachometer"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"
)

var ErrInvalidTrace = errors.New("invalid trace")

// Trace is a sequence of sampling windows.
type Trace struct {
	PulsesPerRotation int `yaml:"pulsesperrotation"`
	// WindowInt is the sampling window in milliseconds.
	WindowInt int `yaml:"window"`
	// Start is the code of the line levels before the first edge, written as
	// two binary digits B then A like quadrature.Code, e.g. "01" is A high and B low.
	Start   string   `yaml:"start"`
	Windows []Window `yaml:"windows"`
}

// Window holds the edges of one sampling window.
type Window struct {
	Pattern string `yaml:"pattern"`
	Repeat  int    `yaml:"repeat"`
	Idle    bool   `yaml:"idle"`
}

// Row is the result of one replayed window.
type Row struct {
	Window     int
	Edges      int
	Unresolved uint64
	Report     tachometer.Report
}

// token is a parsed pattern element.
type token struct {
	edge quadrature.Edge
	both bool
}

// Load reads a trace, unknown fields are an error.
func Load(r io.Reader) (*Trace, error) {
	t := Trace{
		PulsesPerRotation: tachometer.DefaultPulsesPerRotation,
		WindowInt:         int(tachometer.DefaultWindow / time.Millisecond),
	}

	decoder := yaml.NewDecoder(r)
	decoder.SetStrict(true)
	if err := decoder.Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTrace, err)
	}
	return &t, nil
}

// LoadFile reads the trace file name.
func LoadFile(name string) (*Trace, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return Load(f)
}

// Config returns the tachometer calibration of the trace.
func (t *Trace) Config() tachometer.Config {
	return tachometer.Config{
		PulsesPerRotation: t.PulsesPerRotation,
		Window:            time.Duration(t.WindowInt) * time.Millisecond,
	}
}

// Run replays all windows of t on a new decoder.
func Run(t *Trace) ([]Row, error) {
	c := t.Config()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTrace, err)
	}

	start, err := parseLevels(t.Start)
	if err != nil {
		return nil, err
	}

	d := quadrature.New()
	d.Seed(start)

	// windows are replayed back to back, the first one ends one window after begin
	at := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]Row, 0, len(t.Windows))

	for i, w := range t.Windows {
		tokens, err := w.tokens()
		if err != nil {
			return nil, fmt.Errorf("window %d: %w", i+1, err)
		}

		before := d.Unresolved()
		for _, tk := range tokens {
			if tk.both {
				s := d.State()
				d.Observe(quadrature.State{A: !s.A, B: !s.B})
				continue
			}
			d.OnEdge(tk.edge)
		}

		at = at.Add(c.Window)
		r := Row{
			Window:     i + 1,
			Edges:      len(tokens),
			Unresolved: d.Unresolved() - before,
			Report:     tachometer.Compute(c, d.Take(), at),
		}
		debug.DebugLog.Printf("window %d: %v", r.Window, r.Report)
		rows = append(rows, r)
	}

	return rows, nil
}

// tokens expands the pattern of w repeat times.
func (w Window) tokens() ([]token, error) {
	if w.Idle {
		if w.Pattern != "" {
			return nil, fmt.Errorf("%w: idle window with pattern %q", ErrInvalidTrace, w.Pattern)
		}
		return nil, nil
	}
	if w.Repeat < 0 {
		return nil, fmt.Errorf("%w: repeat %d", ErrInvalidTrace, w.Repeat)
	}

	var pattern []token
	for _, f := range strings.Fields(w.Pattern) {
		tk, err := parseToken(f)
		if err != nil {
			return nil, err
		}
		pattern = append(pattern, tk)
	}

	n := w.Repeat
	if n == 0 {
		n = 1
	}

	out := make([]token, 0, n*len(pattern))
	for i := 0; i < n; i++ {
		out = append(out, pattern...)
	}
	return out, nil
}

func parseToken(s string) (token, error) {
	switch strings.ToUpper(s) {
	case "A+":
		return token{edge: quadrature.Edge{Channel: quadrature.A, Level: true}}, nil
	case "A-":
		return token{edge: quadrature.Edge{Channel: quadrature.A, Level: false}}, nil
	case "B+":
		return token{edge: quadrature.Edge{Channel: quadrature.B, Level: true}}, nil
	case "B-":
		return token{edge: quadrature.Edge{Channel: quadrature.B, Level: false}}, nil
	case "AB":
		return token{both: true}, nil
	default:
		return token{}, fmt.Errorf("%w: unknown edge %q", ErrInvalidTrace, s)
	}
}

// parseLevels parses the start code "BA", e.g. "01" is A high and B low.
func parseLevels(s string) (quadrature.State, error) {
	if s == "" {
		return quadrature.State{}, nil
	}
	if len(s) != 2 || strings.Trim(s, "01") != "" {
		return quadrature.State{}, fmt.Errorf("%w: start levels %q", ErrInvalidTrace, s)
	}
	return quadrature.State{A: s[1] == '1', B: s[0] == '1'}, nil
}
