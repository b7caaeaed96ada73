package app

import (
	"quadmon/pkg/encoder"
	"quadmon/pkg/quadrature"
	"quadmon/pkg/raspberry"

	"github.com/womat/debug"
)

// openEncoder requests the encoder lines and starts the edge monitor.
// If calibration is enabled, the decoder starts from the levels read at startup.
func (app *App) openEncoder() error {
	c := app.config.Encoder

	s, err := raspberry.Open(raspberry.Config{
		Backend:  c.Backend,
		Chip:     c.Chip,
		PinA:     c.PinA,
		PinB:     c.PinB,
		Bias:     c.Bias,
		Debounce: c.Debounce,
		Emulator: raspberry.EmulatorConfig{
			EdgeRate:  c.Emulator.EdgeRate,
			Direction: c.Emulator.Direction,
		},
	})
	if err != nil {
		return err
	}
	app.source = s

	if c.Calibrate {
		a, b, err := s.Levels()
		if err != nil {
			debug.ErrorLog.Printf("can't read line levels, starting from 00: %v", err)
		} else {
			st := quadrature.State{A: a, B: b}
			app.decoder.Seed(st)
			debug.InfoLog.Printf("initial line levels A=%v B=%v (code %02b)", a, b, st.Code())
		}
	}

	a, b := s.Lines()
	app.monitor = encoder.New(s.C(), encoder.Lines{A: a, B: b}, app.decoder)
	debug.InfoLog.Printf("watching %v lines %v (A) and %v (B)", c.Backend, a, b)
	return nil
}
