package core

import (
	"context"
	"io"

	"turntable/protocol"
)

// Loop is the run-to-completion scheduler: one clock sample per tick,
// shared by the engine and the channel.
type Loop struct {
	clock   Clock
	engine  *Engine
	channel *Channel
	out     *protocol.ScratchOutput
	w       io.Writer
}

// NewLoop wires the engine and channel to a clock and an output writer.
// out must be the buffer the channel was created with.
func NewLoop(clock Clock, engine *Engine, channel *Channel, out *protocol.ScratchOutput, w io.Writer) *Loop {
	return &Loop{
		clock:   clock,
		engine:  engine,
		channel: channel,
		out:     out,
		w:       w,
	}
}

// RunOnce steps the engine, polls the channel and flushes queued frames
func (l *Loop) RunOnce() error {
	now := l.clock.Now()
	l.engine.Step(now)
	l.channel.Poll(now)
	return l.Flush()
}

// Run repeats RunOnce until ctx is done, calling yield after every pass so
// other goroutines (the UART reader on TinyGo) get scheduled. Write errors
// only lose frames and do not end the loop.
func (l *Loop) Run(ctx context.Context, yield func()) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_ = l.RunOnce()
		if yield != nil {
			yield()
		}
	}
}

// Flush writes any queued frames
func (l *Loop) Flush() error {
	if l.out.CurPosition() == 0 {
		return nil
	}
	_, err := l.w.Write(l.out.Result())
	l.out.Reset()
	return err
}
