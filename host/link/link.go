// Package link is the host side of the turntable serial protocol.
package link

import (
	"context"
	"io"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"turntable/protocol"
)

var (
	// ErrCommandRejected is returned when the turntable answers with an error frame
	ErrCommandRejected = errors.New("turntable rejected command")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("link closed")
)

// Client sends commands to a turntable and waits for their responses.
// Commands are serialized; heartbeats are checked in the background.
type Client struct {
	port    io.ReadWriteCloser
	logger  *zap.SugaredLogger
	monitor *Monitor

	cmdMu   sync.Mutex
	replies chan protocol.Frame
	reached chan struct{}

	errMu   sync.Mutex
	readErr error

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewClient starts reading frames from port
func NewClient(port io.ReadWriteCloser, clk clock.Clock, logger *zap.SugaredLogger) *Client {
	c := &Client{
		port:    port,
		logger:  logger,
		monitor: NewMonitor(clk, DefaultTolerance),
		replies: make(chan protocol.Frame, 16),
		reached: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.readLoop()
	return c
}

func (c *Client) readLoop() {
	defer c.wg.Done()
	reader := protocol.NewFrameReader()
	buf := make([]byte, 64)
	for {
		n, err := c.port.Read(buf)
		if n > 0 {
			reader.Feed(buf[:n])
			for {
				f, ok := reader.Next()
				if !ok {
					break
				}
				c.route(f)
			}
		}
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			if errors.Is(err, io.EOF) {
				continue
			}
			c.errMu.Lock()
			c.readErr = errors.Wrap(err, "read from turntable")
			c.errMu.Unlock()
			return
		}
	}
}

func (c *Client) route(f protocol.Frame) {
	switch f.Kind {
	case protocol.RespComment:
		c.logger.Debugw("turntable", "msg", f.Text)
		return
	case protocol.RespStatus:
		if c.monitor.Started() {
			if err := c.monitor.Observe(f.Counter); err != nil {
				c.logger.Warnw("heartbeat", "error", err)
			}
			return
		}
	case protocol.RespPositionReached:
		select {
		case c.reached <- struct{}{}:
		default:
		}
		return
	}

	select {
	case c.replies <- f:
	case <-c.done:
	}
}

// send writes a command and waits for a frame of kind want
func (c *Client) send(ctx context.Context, cmd []byte, want byte) (protocol.Frame, error) {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()

	// Discard replies nobody waited for
	for len(c.replies) > 0 {
		f := <-c.replies
		c.logger.Debugw("dropping stale frame", "kind", string(rune(f.Kind)))
	}

	if _, err := c.port.Write(cmd); err != nil {
		return protocol.Frame{}, errors.Wrap(err, "write to turntable")
	}

	for {
		select {
		case f := <-c.replies:
			switch f.Kind {
			case want:
				return f, nil
			case protocol.RespError:
				return f, errors.Wrapf(ErrCommandRejected, "command %q", cmd[0])
			}
			c.logger.Debugw("unexpected frame", "kind", string(rune(f.Kind)), "waiting_for", string(rune(want)))
		case <-ctx.Done():
			return protocol.Frame{}, errors.Wrapf(ctx.Err(), "waiting for %q", want)
		case <-c.done:
			return protocol.Frame{}, ErrClosed
		}
	}
}

// Initialize starts a session. The turntable must answer with heartbeat 0.
func (c *Client) Initialize(ctx context.Context) error {
	f, err := c.send(ctx, protocol.EncodeInitialize(), protocol.RespStatus)
	if err != nil {
		return errors.Wrap(err, "initialize")
	}
	if f.Counter != 0 {
		return errors.Errorf("initialize: expected heartbeat 0, got %d", f.Counter)
	}
	c.monitor.Start(f.Counter)
	return nil
}

// Reset ends the session and releases the motor
func (c *Client) Reset(ctx context.Context) error {
	c.monitor.Stop()
	_, err := c.send(ctx, protocol.EncodeResetCommand(), protocol.RespReset)
	return errors.Wrap(err, "reset")
}

// Velocity runs towards the opposite travel limit at |rpm|
func (c *Client) Velocity(ctx context.Context, rpm float32) error {
	_, err := c.send(ctx, protocol.EncodeVelocity(rpm), protocol.RespAck)
	return errors.Wrap(err, "velocity")
}

// MoveTo starts a targeted move; use WaitPositionReached to wait for it
func (c *Client) MoveTo(ctx context.Context, position int32, rpm float32) error {
	select {
	case <-c.reached:
	default:
	}
	_, err := c.send(ctx, protocol.EncodeMoveTo(position, rpm), protocol.RespAck)
	return errors.Wrap(err, "move to")
}

// StopAll halts the motor immediately
func (c *Client) StopAll(ctx context.Context) error {
	_, err := c.send(ctx, protocol.EncodeStopAll(), protocol.RespAck)
	return errors.Wrap(err, "stop all")
}

// Position queries the current position in microsteps
func (c *Client) Position(ctx context.Context) (int32, error) {
	f, err := c.send(ctx, protocol.EncodeInfo(), protocol.RespPosition)
	if err != nil {
		return 0, errors.Wrap(err, "position")
	}
	return f.Position, nil
}

// WaitPositionReached blocks until the last MoveTo completes
func (c *Client) WaitPositionReached(ctx context.Context) error {
	select {
	case <-c.reached:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for position")
	case <-c.done:
		return ErrClosed
	}
}

// Err reports a lost heartbeat or a failed read
func (c *Client) Err() error {
	c.errMu.Lock()
	readErr := c.readErr
	c.errMu.Unlock()
	return multierr.Combine(readErr, c.monitor.Check())
}

// Close stops the reader and closes the port
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.port.Close()
		c.wg.Wait()
	})
	return err
}
