package app

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"quadmon/pkg/app/config"
	"quadmon/pkg/encoder"
	"quadmon/pkg/mqtt"
	"quadmon/pkg/quadrature"
	"quadmon/pkg/raspberry"
	"quadmon/pkg/tachometer"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/flock"
	"github.com/womat/debug"
)

// ErrLocked is returned if another instance holds the lock file.
var ErrLocked = errors.New("another instance is running")

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Url parameter
	// and makes it easier to get params out of e.g.
	// url: https://0.0.0.0:7844/?minTls=1.2&bodyLimit=50MB
	urlParsed *url.URL

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// lock prevents two instances from watching the same lines
	lock *flock.Flock

	// source delivers the edges of the encoder lines
	source raspberry.Source

	// decoder holds pulse counter, direction and line levels
	decoder *quadrature.Decoder

	// monitor hands the edges of source to the decoder
	monitor *encoder.Monitor

	// reporter computes a report at the end of each sampling window
	reporter *tachometer.Reporter
	ticker   *time.Ticker

	// history holds the last reports for the web services
	history *tachometer.History

	// shutdown signals application shutdown
	shutdown chan struct{}
	// quit is closed when Close starts
	quit chan struct{}
}

// New checks the Web server URL and initialize the main app structure
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return &App{}, err
	}

	return &App{
		config:    config,
		urlParsed: u,

		web:      fiber.New(fiber.Config{DisableStartupMessage: true}),
		mqtt:     mqtt.New(),
		decoder:  quadrature.New(),
		history:  tachometer.NewHistory(config.History),
		shutdown: make(chan struct{}),
		quit:     make(chan struct{}),
	}, nil
}

// Run starts the application.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	go app.mqtt.Service()
	go app.runWebServer()

	app.ticker = time.NewTicker(app.config.Tachometer.Window)
	go app.reporter.Run(app.ticker.C)

	go func() {
		// the monitor only stops by itself if the edge source fails
		select {
		case <-app.quit:
			return
		case <-app.monitor.Done():
		}

		select {
		case <-app.quit:
		default:
			debug.ErrorLog.Print("edge source stopped, shutting down")
			close(app.shutdown)
		}
	}()

	return nil
}

// init initializes the application.
func (app *App) init() (err error) {
	if app.config.LockFile != "" {
		app.lock = flock.New(app.config.LockFile)
		locked, lerr := app.lock.TryLock()
		if lerr != nil {
			return fmt.Errorf("lock %v: %w", app.config.LockFile, lerr)
		}
		if !locked {
			return fmt.Errorf("lock %v: %w", app.config.LockFile, ErrLocked)
		}
	}

	if err = app.openEncoder(); err != nil {
		debug.ErrorLog.Printf("can't open encoder: %v", err)
		return err
	}

	if err = app.mqtt.Connect(app.config.MQTT.Connection, app.config.MQTT.ClientID); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}

	app.reporter = tachometer.NewReporter(app.tachometerConfig(), app.decoder,
		app.history,
		tachometer.SinkFunc(app.publish),
	)

	// initDefaultRoutes should be always called last because it may access things like app.history
	// which must be initialized before
	app.initDefaultRoutes()

	return nil
}

// tachometerConfig returns the calibration of the reporting loop.
func (app *App) tachometerConfig() tachometer.Config {
	return tachometer.Config{
		PulsesPerRotation: app.config.Tachometer.PulsesPerRotation,
		Window:            app.config.Tachometer.Window,
	}
}

// Shutdown returns the read only shutdown channel.
// Shutdown is closed if the application can't continue, e.g. the gpio lines are gone. (see cmd/quadmon.go)
func (app *App) Shutdown() <-chan struct{} {
	return app.shutdown
}

// Close stops the reporting loop, releases the lines and disconnects from the broker.
func (app *App) Close() error {
	select {
	case <-app.quit:
		return nil
	default:
		close(app.quit)
	}

	if app.ticker != nil {
		app.ticker.Stop()
		_ = app.reporter.Close()
	}

	// the source closes the edge channel, which stops the monitor
	if app.source != nil {
		if err := app.source.Close(); err != nil {
			debug.ErrorLog.Printf("closing encoder lines: %v", err)
		}
	}
	if app.monitor != nil {
		_ = app.monitor.Close()
	}

	if app.mqtt != nil {
		close(app.mqtt.C)
		_ = app.mqtt.Disconnect()
	}

	if app.web != nil {
		_ = app.web.Shutdown()
	}

	if app.lock != nil {
		_ = app.lock.Unlock()
	}
	return nil
}
