//go:build rp2040

// Firmware for RP2040 boards. Commands arrive on UART0 (GP0/GP1); the
// stepper driver uses the configured GPIO numbers.
package main

import (
	"context"
	"machine"
	"runtime"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"turntable/config"
	"turntable/core"
	"turntable/protocol"
)

var (
	// Buffers for communication
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput
)

func main() {
	cfg := config.Default()

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()

	pins := core.Pins{
		Step:   outputPin(cfg.StepPin),
		Dir:    outputPin(cfg.DirPin),
		Enable: outputPin(cfg.EnablePin),
	}

	clock := core.NewSystemClock()
	engine := core.NewEngine(cfg, pins, clock)
	engine.Init()

	// The driver stays disabled until the link is up
	uart := uartx.UART0
	for {
		err := uart.Configure(uartx.UARTConfig{
			BaudRate: uint32(cfg.Serial.Baud),
			TX:       machine.GPIO0,
			RX:       machine.GPIO1,
		})
		if err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	core.SetDebugWriter(func(s string) { protocol.EncodeComment(outputBuffer, s) })

	channel := core.NewChannel(engine, inputBuffer, outputBuffer, cfg)
	loop := core.NewLoop(clock, engine, channel, outputBuffer, uart)

	// Start UART reader goroutine
	go uartReaderLoop(uart)

	// Yield every pass so the reader goroutine can fill inputBuffer
	loop.Run(context.Background(), runtime.Gosched)
}

func outputPin(n int) machine.Pin {
	pin := machine.Pin(n)
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return pin
}

// uartReaderLoop moves received bytes into the input FIFO
func uartReaderLoop(uart *uartx.UART) {
	buf := make([]byte, 64)
	ctx := context.Background()
	for {
		n, err := uart.RecvSomeContext(ctx, buf)
		if err != nil || n == 0 {
			continue
		}
		data := buf[:n]
		for len(data) > 0 {
			written := inputBuffer.Write(data)
			data = data[written:]
			if len(data) > 0 {
				// FIFO full; let the main loop drain it
				runtime.Gosched()
			}
		}
	}
}
