package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"
)

// Config holds the application configuration.
// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	Flag       FlagConfig       `yaml:"-"`
	Encoder    EncoderConfig    `yaml:"encoder"`
	Tachometer TachometerConfig `yaml:"tachometer"`
	// History is the number of reports kept for the web service.
	History   int             `yaml:"history"`
	LockFile  string          `yaml:"lockfile"`
	Debug     DebugConfig     `yaml:"debug"`
	Webserver WebserverConfig `yaml:"webserver"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	Debug      string
	ConfigFile string
	Backend    string
	// ConfigOptional ignores a missing config file, e.g. the default one.
	ConfigOptional bool
}

// EncoderConfig defines the gpio lines of the encoder.
type EncoderConfig struct {
	Backend string `yaml:"backend"`
	Chip    string `yaml:"chip"`
	PinA    int    `yaml:"pina"`
	PinB    int    `yaml:"pinb"`
	Bias    string `yaml:"bias"`
	// DebounceInt is the kernel debounce period in microseconds.
	DebounceInt int           `yaml:"debounce"`
	Debounce    time.Duration `yaml:"-"`
	// Calibrate seeds the decoder with the line levels read at startup.
	Calibrate bool           `yaml:"calibrate"`
	Emulator  EmulatorConfig `yaml:"emulator"`
}

// MaxEdgeRate is the highest emulated edge rate, one edge per nanosecond.
const MaxEdgeRate = int(time.Second)

// EmulatorConfig defines the software encoder used by the emulator backend.
type EmulatorConfig struct {
	EdgeRate  int    `yaml:"edgerate"`
	Direction string `yaml:"direction"`
}

// TachometerConfig defines the sampling window and calibration.
type TachometerConfig struct {
	PulsesPerRotation int `yaml:"pulsesperrotation"`
	// WindowInt is the sampling window in milliseconds.
	WindowInt int           `yaml:"window"`
	Window    time.Duration `yaml:"-"`
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// MQTTConfig defines the struct of the mqtt client configuration and configuration file
type MQTTConfig struct {
	Connection string `yaml:"connection"`
	ClientID   string `yaml:"clientid"`
	Topic      string `yaml:"topic"`
}

// DebugConfig defines the struct of the debug configuration and configuration file
type DebugConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

func NewConfig() *Config {
	return &Config{
		Flag: FlagConfig{},
		Encoder: EncoderConfig{
			Backend:   "gpiod",
			Chip:      "gpiochip0",
			PinA:      6,
			PinB:      8,
			Bias:      "pulldown",
			Calibrate: true,
			Emulator: EmulatorConfig{
				EdgeRate:  1632,
				Direction: "cw",
			},
		},
		Tachometer: TachometerConfig{
			PulsesPerRotation: 1632,
			WindowInt:         1000,
		},
		History:  60,
		LockFile: "/tmp/quadmon.lock",
		Debug: DebugConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version": true,
				"health":  true,
				"data":    true,
				"history": true,
				"speed":   true,
			},
		},
		MQTT: MQTTConfig{
			Connection: "",
			ClientID:   "quadmon",
			Topic:      "quadmon/encoder",
		},
	}
}

// LoadConfig reads the config file (if defined), applies the flags and validates the result.
func (c *Config) LoadConfig() error {
	if c.Flag.ConfigFile != "" {
		if err := c.readConfigFile(); err != nil {
			return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
		}
	}

	if c.Flag.Debug != "" {
		c.Debug.FlagString = c.Flag.Debug
	}
	if c.Flag.Backend != "" {
		c.Encoder.Backend = c.Flag.Backend
	}

	c.Encoder.Debounce = time.Duration(c.Encoder.DebounceInt) * time.Microsecond
	c.Tachometer.Window = time.Duration(c.Tachometer.WindowInt) * time.Millisecond

	if err := c.validate(); err != nil {
		return err
	}

	if err := c.setDebugConfig(); err != nil {
		return fmt.Errorf("unable to open debug file %q: %w", c.Debug.FileString, err)
	}

	return nil
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		if c.Flag.ConfigOptional && errors.Is(err, os.ErrNotExist) {
			debug.InfoLog.Printf("config file %q not found, using defaults", c.Flag.ConfigFile)
			return nil
		}
		return err
	}
	defer func() { _ = file.Close() }()

	// strict mode rejects keys already set in a map, so the file starts with
	// an empty webservices map and the defaults are merged back afterwards
	defaults := c.Webserver.Webservices
	c.Webserver.Webservices = nil

	decoder := yaml.NewDecoder(file)
	decoder.SetStrict(true)
	err = decoder.Decode(c)

	if c.Webserver.Webservices == nil {
		c.Webserver.Webservices = make(map[string]bool, len(defaults))
	}
	for k, v := range defaults {
		if _, ok := c.Webserver.Webservices[k]; !ok {
			c.Webserver.Webservices[k] = v
		}
	}

	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) validate() error {
	if c.Encoder.PinA == c.Encoder.PinB {
		return errors.New("encoder.pina and encoder.pinb must differ")
	}
	if c.Encoder.Emulator.EdgeRate < 0 || c.Encoder.Emulator.EdgeRate > MaxEdgeRate {
		return fmt.Errorf("encoder.emulator.edgerate must be between 0 and %d", MaxEdgeRate)
	}
	if c.Encoder.DebounceInt < 0 {
		return errors.New("encoder.debounce must be >= 0")
	}
	if c.Tachometer.PulsesPerRotation <= 0 {
		return errors.New("tachometer.pulsesperrotation must be > 0")
	}
	if c.Tachometer.WindowInt <= 0 {
		return errors.New("tachometer.window must be > 0")
	}
	if c.History < 1 {
		return errors.New("history must be >= 1")
	}
	return nil
}

func (c *Config) setDebugConfig() (err error) {
	// defines Debug section of global.Config
	switch c.Debug.FlagString {
	case "trace", "full":
		c.Debug.Flag = debug.Full
	case "debug":
		c.Debug.Flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	case "standard":
		c.Debug.Flag = debug.Standard
	default:
		return fmt.Errorf("unknown debug flag %q", c.Debug.FlagString)
	}

	switch c.Debug.FileString {
	case "stderr":
		c.Debug.File = os.Stderr
	case "stdout":
		c.Debug.File = os.Stdout
	default:
		if c.Debug.File, err = os.OpenFile(c.Debug.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
	}

	return
}
