package core

import (
	"math"

	"turntable/protocol"
)

// registerCommands installs the turntable command set
func (c *Channel) registerCommands() {
	r := c.registry
	r.Register(protocol.CmdInitialize, "initialize", 0, false, c.handleInitialize)
	r.Register(protocol.CmdReset, "reset", 0, true, c.handleReset)
	r.Register(protocol.CmdVelocity, "velocity", protocol.VelocityPayload, true, c.handleVelocity)
	r.Register(protocol.CmdPosition, "move_to", protocol.PositionPayload, true, c.handlePosition)
	r.Register(protocol.CmdStopAll, "stop_all", 0, true, c.handleStopAll)
	r.Register(protocol.CmdInfo, "info", 0, true, c.handleInfo)
}

func (c *Channel) handleInitialize(payload []byte) error {
	if c.initialized {
		return ErrAlreadyInitialized
	}
	c.initialized = true
	c.statusCounter = 0
	c.sendStatus()
	return nil
}

// handleReset drops the session and releases the motor. Position is kept.
func (c *Channel) handleReset(payload []byte) error {
	c.resetSession()
	c.engine.Release()
	protocol.EncodeReset(c.out)
	return nil
}

// handleVelocity runs towards whichever travel limit the table is not at.
// Only the magnitude of the decoded speed is used.
func (c *Channel) handleVelocity(payload []byte) error {
	v, err := protocol.DecodeVelocity(payload)
	if err != nil {
		return err
	}

	target := c.engine.PositionMax()
	if c.engine.Position == target {
		target = c.engine.PositionMin()
	}
	c.engine.SetTargetPosition(target, math.Abs(float64(v)))
	protocol.EncodeAck(c.out)
	return nil
}

func (c *Channel) handlePosition(payload []byte) error {
	position, rpm, err := protocol.DecodePosition(payload)
	if err != nil {
		return err
	}

	c.engine.SetTargetPosition(position, float64(rpm))
	c.awaitingPosition = true
	protocol.EncodeAck(c.out)
	return nil
}

func (c *Channel) handleStopAll(payload []byte) error {
	c.engine.HardStop()
	c.engine.abandonMove()
	protocol.EncodeAck(c.out)
	return nil
}

func (c *Channel) handleInfo(payload []byte) error {
	protocol.EncodePosition(c.out, c.engine.Position)
	return nil
}
