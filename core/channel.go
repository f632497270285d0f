package core

import (
	"turntable/config"
	"turntable/protocol"
)

// Channel frames commands off the serial byte stream, dispatches them
// into the engine and emits response, heartbeat and completion frames.
type Channel struct {
	engine   *Engine
	in       ByteReader
	out      protocol.OutputBuffer
	registry *CommandRegistry

	statusInterval uint64
	byteTimeout    uint64

	pending    *Command // nil while idle
	buf        [protocol.PayloadMax]byte
	writeIndex int
	remaining  int

	tLastByte   uint64
	tLastStatus uint64
	now         uint64

	initialized      bool
	statusCounter    uint8
	awaitingPosition bool
	lastErr          error
}

// NewChannel creates a channel in the uninitialized state
func NewChannel(engine *Engine, in ByteReader, out protocol.OutputBuffer, cfg *config.Config) *Channel {
	c := &Channel{
		engine:         engine,
		in:             in,
		out:            out,
		registry:       NewCommandRegistry(),
		statusInterval: cfg.StatusInterval,
		byteTimeout:    cfg.ByteTimeout,
	}
	c.registerCommands()
	return c
}

// Poll performs one tick of protocol work: completion and heartbeat
// frames, then at most one received byte.
func (c *Channel) Poll(now uint64) {
	c.now = now

	if c.awaitingPosition && !c.engine.MovingToPosition {
		c.awaitingPosition = false
		if c.engine.PositionReached {
			protocol.EncodePositionReached(c.out)
		}
	}

	if c.initialized && now-c.tLastStatus > c.statusInterval {
		c.sendStatus()
	}

	if c.in.Buffered() == 0 {
		if c.pending != nil && now-c.tLastByte > c.byteTimeout {
			RecordTiming(EvtCmdTimeout, c.pending.Tag, uint32(now), uint32(c.writeIndex), 0)
			c.fail(ErrCommandTimeout)
		}
		return
	}

	b, err := c.in.ReadByte()
	if err != nil {
		return
	}

	if c.pending == nil {
		c.tLastByte = now
		c.begin(b)
		return
	}

	c.buf[c.writeIndex] = b
	c.writeIndex++
	c.remaining--
	if c.remaining > 0 {
		c.tLastByte = now
		return
	}

	cmd := c.pending
	c.pending = nil
	c.dispatch(cmd, c.buf[:cmd.PayloadLen])
}

// begin handles a command tag received while idle
func (c *Channel) begin(tag byte) {
	cmd, ok := c.registry.GetCommand(tag)
	if !ok {
		RecordTiming(EvtCmdError, tag, uint32(c.now), 0, 0)
		c.fail(ErrUnknownCommand)
		return
	}
	if cmd.RequiresInit && !c.initialized {
		RecordTiming(EvtCmdError, tag, uint32(c.now), 0, 0)
		c.fail(ErrNotInitialized)
		return
	}

	if cmd.PayloadLen == 0 {
		c.dispatch(cmd, nil)
		return
	}

	c.pending = cmd
	c.writeIndex = 0
	c.remaining = cmd.PayloadLen
}

func (c *Channel) dispatch(cmd *Command, payload []byte) {
	if err := cmd.Handler(payload); err != nil {
		RecordTiming(EvtCmdError, cmd.Tag, uint32(c.now), 0, 0)
		c.fail(err)
		return
	}
	RecordTiming(EvtCommand, cmd.Tag, uint32(c.now), uint32(c.engine.Position), 0)
}

// fail drops any partial command and reports the error frame
func (c *Channel) fail(err error) {
	c.lastErr = err
	c.pending = nil
	c.writeIndex = 0
	c.remaining = 0
	protocol.EncodeError(c.out)
	DebugPrintln("[CMD] " + err.Error())
}

func (c *Channel) sendStatus() {
	protocol.EncodeStatus(c.out, c.statusCounter)
	c.statusCounter++
	c.tLastStatus = c.now
}

// resetSession returns to the state right after construction
func (c *Channel) resetSession() {
	c.initialized = false
	c.pending = nil
	c.writeIndex = 0
	c.remaining = 0
	c.statusCounter = 0
	c.awaitingPosition = false
}

// Initialized reports whether the initialize command has been accepted
func (c *Channel) Initialized() bool { return c.initialized }

// Pending returns the tag of the command awaiting payload bytes, or 0
func (c *Channel) Pending() byte {
	if c.pending == nil {
		return 0
	}
	return c.pending.Tag
}

// StatusCounter returns the counter the next heartbeat will carry
func (c *Channel) StatusCounter() uint8 { return c.statusCounter }

// LastError returns the most recent protocol error
func (c *Channel) LastError() error { return c.lastErr }

// Registry returns the command table
func (c *Channel) Registry() *CommandRegistry { return c.registry }
