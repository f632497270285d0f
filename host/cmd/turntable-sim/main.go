// Package main runs the turntable firmware core on a PC. Step, direction and
// enable outputs are simulated; the command link is a real serial device,
// so a host application can be developed without the hardware.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"turntable/config"
	"turntable/core"
	"turntable/host/serial"
	"turntable/protocol"
)

const (
	flagConfig   = "config"
	flagDevice   = "device"
	flagBaud     = "baud"
	flagDebug    = "debug"
	flagReport   = "report"
	flagIdleWait = "idle-wait"
)

func main() {
	app := &cli.App{
		Name:  "turntable-sim",
		Usage: "run the turntable firmware against a serial device with simulated motor pins",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:  flagDevice,
				Usage: "serial device (overrides the config file)",
			},
			&cli.IntFlag{
				Name:  flagBaud,
				Usage: "baud rate (overrides the config file)",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging, including firmware debug lines",
			},
			&cli.DurationFlag{
				Name:  flagReport,
				Value: time.Second,
				Usage: "interval between position reports",
			},
			&cli.DurationFlag{
				Name:  flagIdleWait,
				Value: 20 * time.Microsecond,
				Usage: "sleep between loop iterations",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if c.IsSet(flagDevice) {
		cfg.Serial.Device = c.String(flagDevice)
	}
	if c.IsSet(flagBaud) {
		cfg.Serial.Baud = c.Int(flagBaud)
	}
	return cfg, cfg.Validate()
}

func newLogger(debug bool) (*zap.SugaredLogger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if !debug {
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := zcfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build logger")
	}
	return logger.Sugar(), nil
}

func run(c *cli.Context) (err error) {
	logger, err := newLogger(c.Bool(flagDebug))
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	core.SetDebugWriter(func(s string) { logger.Debugw("firmware", "msg", s) })
	core.SetDebugEnabled(c.Bool(flagDebug))

	port, err := serial.Open(serial.FromConfig(cfg.Serial))
	if err != nil {
		return err
	}
	buffered := serial.NewBufferedPort(port, 256)
	defer func() {
		core.DumpTimingRing()
		err = multierr.Combine(err, buffered.Close(), logger.Sync())
	}()

	clock := core.NewSystemClock()
	pins, stepPin, _, _ := core.NewSimPins()
	engine := core.NewEngine(cfg, pins, clock)
	engine.Init()

	out := protocol.NewScratchOutput()
	channel := core.NewChannel(engine, buffered, out, cfg)
	loop := core.NewLoop(clock, engine, channel, out, buffered)

	logger.Infow("simulating turntable",
		"device", cfg.Serial.Device,
		"position_max", engine.PositionMax(),
		"commands", channel.Registry().Count())

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	return simulate(ctx, logger, loop, engine, channel, stepPin, buffered,
		c.Duration(flagReport), c.Duration(flagIdleWait))
}

func simulate(
	ctx context.Context,
	logger *zap.SugaredLogger,
	loop *core.Loop,
	engine *core.Engine,
	channel *core.Channel,
	stepPin *core.SimPin,
	port *serial.BufferedPort,
	report, idleWait time.Duration,
) error {
	lastReport := time.Now()
	var lastErr error
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		default:
		}

		if err := loop.RunOnce(); err != nil {
			return errors.Wrap(err, "write to serial device")
		}
		if err := port.Err(); err != nil {
			return err
		}

		if err := channel.LastError(); err != nil && err != lastErr {
			logger.Warnw("protocol error", "error", err)
			lastErr = err
		}

		if time.Since(lastReport) >= report {
			lastReport = time.Now()
			logger.Infow("status",
				"initialized", channel.Initialized(),
				"position", engine.Position,
				"rpm", engine.RPM(),
				"enabled", engine.Enabled(),
				"moving_to_position", engine.MovingToPosition,
				"steps", stepPin.Rises)
		}

		if idleWait > 0 {
			time.Sleep(idleWait)
		}
	}
}
