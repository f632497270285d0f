//go:build linux && !tinygo

// Turntable controller for a Raspberry Pi driving the stepper driver from
// its GPIO header (BCM numbering). Commands arrive on a serial device.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"

	"github.com/pkg/errors"
	"github.com/stianeikeland/go-rpio/v4"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"turntable/config"
	"turntable/core"
	"turntable/host/serial"
	"turntable/protocol"
)

var (
	configPath = flag.String("config", "", "YAML config file")
	verbose    = flag.Bool("verbose", false, "Enable verbose output")
)

// gpioPin drives one BCM pin
type gpioPin struct {
	pin rpio.Pin
}

func newGPIOPin(n int) gpioPin {
	p := gpioPin{pin: rpio.Pin(n)}
	p.pin.Output()
	p.pin.Low()
	return p
}

func (p gpioPin) Set(high bool) {
	if high {
		p.pin.High()
	} else {
		p.pin.Low()
	}
}

func main() {
	flag.Parse()

	var zl *zap.Logger
	var err error
	if *verbose {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := zl.Sugar()

	if err := run(logger); err != nil {
		logger.Errorw("turntable stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *zap.SugaredLogger) (err error) {
	cfg := config.Default()
	if *configPath != "" {
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}

	if err := rpio.Open(); err != nil {
		return errors.Wrap(err, "failed to open GPIO")
	}

	port, err := serial.Open(serial.FromConfig(cfg.Serial))
	if err != nil {
		return multierr.Combine(err, rpio.Close())
	}
	buffered := serial.NewBufferedPort(port, 256)

	core.SetDebugWriter(func(s string) { logger.Debugw("firmware", "msg", s) })
	core.SetDebugEnabled(*verbose)

	pins := core.Pins{
		Step:   newGPIOPin(cfg.StepPin),
		Dir:    newGPIOPin(cfg.DirPin),
		Enable: newGPIOPin(cfg.EnablePin),
	}
	clock := core.NewSystemClock()
	engine := core.NewEngine(cfg, pins, clock)
	engine.Init()

	defer func() {
		engine.Release()
		core.DumpTimingRing()
		err = multierr.Combine(err, buffered.Close(), rpio.Close(), logger.Sync())
	}()

	out := protocol.NewScratchOutput()
	channel := core.NewChannel(engine, buffered, out, cfg)
	loop := core.NewLoop(clock, engine, channel, out, buffered)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	logger.Infow("turntable ready", "device", cfg.Serial.Device, "position_max", engine.PositionMax())
	for {
		select {
		case <-interrupt:
			logger.Info("shutting down")
			return nil
		default:
		}

		if err := loop.RunOnce(); err != nil {
			return errors.Wrap(err, "write to serial device")
		}
		if err := buffered.Err(); err != nil {
			return err
		}
		runtime.Gosched()
	}
}
