package main

import (
	"os"
	"os/signal"
	"sort"
	"syscall"

	"quadmon/pkg/app"
	"quadmon/pkg/app/config"
	"quadmon/pkg/replay"

	"github.com/urfave/cli/v2"
	"github.com/womat/debug"
)

const defaultConfigFile = "/opt/womat/config/" + app.MODULE + ".yaml"

func main() {
	exitCode := 1
	defer func() {
		os.Exit(exitCode)
	}()

	// cfg holds the application configuration
	cfg := config.NewConfig()

	cliApp := &cli.App{
		Name:    app.MODULE,
		Usage:   "Tachometer for a quadrature encoder on two gpio lines",
		Version: app.VERSION,
		Description: "Decode the edges of the A and B channel of a quadrature encoder," +
			"\n report rotations per second and direction once per sampling window" +
			"\n and publish the reports to the log, mqtt and the web services.",
		UsageText: "quadmon [--config <file>] [--log standard|debug|trace] [--backend gpiod|gpiomem|emulator]" +
			"\n   quadmon replay <trace file>" +
			"\n\nEXAMPLE:" +
			"\n\tstart the tachometer and use the configuration file quadmon.yaml" +
			"\n\t\tquadmon --config /opt/womat/quadmon.yaml" +
			"\n\tstart the tachometer without hardware and without a configuration file" +
			"\n\t\tquadmon --backend emulator",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Destination: &cfg.Flag.ConfigFile, Value: defaultConfigFile, Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Destination: &cfg.Flag.Debug, Usage: "`LEVEL` defines the log level (standard|debug|trace)"},
			&cli.StringFlag{Name: "backend", Aliases: []string{"b"}, Destination: &cfg.Flag.Backend, Usage: "`BACKEND` overrides the gpio backend (gpiod|gpiomem|emulator)"},
		},
		Commands: []*cli.Command{
			{
				Name:      "replay",
				Usage:     "replay an edge trace and print one report per window",
				ArgsUsage: "<trace file>",
				Action:    replayAction,
			},
		},
		Action: func(ctx *cli.Context) error {
			// the default config file may be missing, an explicit one must exist
			cfg.Flag.ConfigOptional = !ctx.IsSet("config")
			if err := cfg.LoadConfig(); err != nil {
				return err
			}

			debug.SetDebug(cfg.Debug.File, cfg.Debug.Flag)
			defer func() {
				debug.InfoLog.Printf("closing debug file %s", cfg.Debug.FileString)
				_ = cfg.Debug.File.Close()
			}()

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer func() {
				debug.InfoLog.Printf("closing app %s", app.Version())
				_ = a.Close()
			}()

			debug.InfoLog.Printf("starting app %s", app.Version())
			if err = a.Run(); err != nil {
				return err
			}

			// capture exit signals to ensure resources are released on exit.
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(quit)

			// wait for am os.Interrupt signal (CTRL C) or the end of the edge delivery
			select {
			case sig := <-quit:
				debug.InfoLog.Printf("Got %s signal. Aborting...", sig)
			case <-a.Shutdown():
				debug.ErrorLog.Print("encoder lines are gone. Aborting...")
			}

			return nil
		},
	}

	// we expect to have more command line flags in the future - sort them
	sort.Sort(cli.FlagsByName(cliApp.Flags))
	sort.Sort(cli.CommandsByName(cliApp.Commands))

	err := cliApp.Run(os.Args)
	if err != nil {
		debug.FatalLog.Print(err)
		exitCode = 1
		return
	}

	exitCode = 0
	return
}

// replayAction replays the trace file given as first argument.
func replayAction(ctx *cli.Context) error {
	debug.SetDebug(os.Stderr, debug.Standard)

	if ctx.NArg() != 1 {
		return cli.Exit("replay expects exactly one trace file", 2)
	}

	t, err := replay.LoadFile(ctx.Args().First())
	if err != nil {
		return err
	}

	rows, err := replay.Run(t)
	if err != nil {
		return err
	}

	replay.Render(os.Stdout, rows)
	return nil
}
