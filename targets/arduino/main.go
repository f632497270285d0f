//go:build arduino

// Firmware for an Arduino Uno with a CNC shield driving the turntable
// stepper on the X axis (step D2, direction D5, enable D8).
package main

import (
	"machine"

	"turntable/config"
	"turntable/core"
	"turntable/protocol"
)

func main() {
	cfg := config.Default()

	uart := machine.UART0
	uart.Configure(machine.UARTConfig{BaudRate: uint32(cfg.Serial.Baud)})
	port := core.NewUARTPort(uart)

	step, dir, enable := machine.D2, machine.D5, machine.D8
	for _, pin := range []machine.Pin{step, dir, enable} {
		pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	}

	clock := core.NewSystemClock()
	engine := core.NewEngine(cfg, core.Pins{Step: step, Dir: dir, Enable: enable}, clock)
	engine.Init()

	out := protocol.NewScratchOutput()
	core.SetDebugWriter(func(s string) { protocol.EncodeComment(out, s) })

	channel := core.NewChannel(engine, port, out, cfg)
	loop := core.NewLoop(clock, engine, channel, out, port)

	for {
		// A failed write only loses frames; the host notices missing heartbeats
		loop.RunOnce()
	}
}
