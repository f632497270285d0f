package link

import (
	"context"
	"math"
	"net"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.viam.com/test"

	"turntable/config"
	"turntable/core"
	"turntable/host/serial"
	"turntable/protocol"
)

// connPort adapts a net.Conn to serial.Port
type connPort struct{ net.Conn }

func (connPort) Flush() error { return nil }

// firmware runs the real turntable core on the far end of a pipe,
// with simulated time running as fast as the loop spins
type firmware struct {
	port *serial.BufferedPort
	done chan struct{}
	wg   sync.WaitGroup
}

func startFirmware(conn net.Conn) *firmware {
	cfg := config.Default()
	clk := core.NewManualClock(0)
	pins, _, _, _ := core.NewSimPins()
	engine := core.NewEngine(cfg, pins, clk)
	engine.Init()

	port := serial.NewBufferedPort(connPort{conn}, 64)
	out := protocol.NewScratchOutput()
	loop := core.NewLoop(clk, engine, core.NewChannel(engine, port, out, cfg), out, port)

	fw := &firmware{port: port, done: make(chan struct{})}
	fw.wg.Add(1)
	go func() {
		defer fw.wg.Done()
		for {
			select {
			case <-fw.done:
				return
			default:
			}
			if engine.Phase() != core.PhaseIdle || engine.MovingToPosition {
				clk.Set(uint64(math.Ceil(engine.NextStepAt())))
			} else {
				clk.Advance(100)
			}
			if err := loop.RunOnce(); err != nil {
				return
			}
			runtime.Gosched()
		}
	}()
	return fw
}

func (fw *firmware) stop() {
	close(fw.done)
	fw.port.Close()
	fw.wg.Wait()
}

// scripted answers each received command byte with a fixed reply
func scripted(conn net.Conn, replies map[byte]string) {
	go func() {
		buf := make([]byte, 1)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
			if reply, ok := replies[buf[0]]; ok {
				if _, err := conn.Write([]byte(reply)); err != nil {
					return
				}
			}
		}
	}()
}

func newTestLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	obs, logs := observer.New(zap.DebugLevel)
	return zap.New(obs).Sugar(), logs
}

func TestClientAgainstFirmware(t *testing.T) {
	hostEnd, deviceEnd := net.Pipe()
	fw := startFirmware(deviceEnd)
	defer fw.stop()

	logger, _ := newTestLogger()
	c := NewClient(hostEnd, clock.NewMock(), logger)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := c.Position(ctx)
	test.That(t, errors.Is(err, ErrCommandRejected), test.ShouldBeTrue)

	test.That(t, c.Initialize(ctx), test.ShouldBeNil)
	err = c.Initialize(ctx)
	test.That(t, errors.Is(err, ErrCommandRejected), test.ShouldBeTrue)

	pos, err := c.Position(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos, test.ShouldEqual, int32(0))

	test.That(t, c.MoveTo(ctx, 500, 20), test.ShouldBeNil)
	test.That(t, c.WaitPositionReached(ctx), test.ShouldBeNil)

	pos, err = c.Position(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos, test.ShouldEqual, int32(500))

	test.That(t, c.MoveTo(ctx, 120, 10), test.ShouldBeNil)
	test.That(t, c.WaitPositionReached(ctx), test.ShouldBeNil)
	pos, err = c.Position(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pos, test.ShouldEqual, int32(120))

	test.That(t, c.Velocity(ctx, 5), test.ShouldBeNil)
	test.That(t, c.StopAll(ctx), test.ShouldBeNil)
	test.That(t, c.Err(), test.ShouldBeNil)

	test.That(t, c.Reset(ctx), test.ShouldBeNil)
	_, err = c.Position(ctx)
	test.That(t, errors.Is(err, ErrCommandRejected), test.ShouldBeTrue)
}

func TestClientInitializeExpectsCounterZero(t *testing.T) {
	hostEnd, deviceEnd := net.Pipe()
	defer deviceEnd.Close()
	scripted(deviceEnd, map[byte]string{protocol.CmdInitialize: "S\x07\n"})

	logger, _ := newTestLogger()
	c := NewClient(hostEnd, clock.NewMock(), logger)
	defer c.Close()

	err := c.Initialize(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "expected heartbeat 0")
}

func TestClientDetectsMissedHeartbeat(t *testing.T) {
	hostEnd, deviceEnd := net.Pipe()
	defer deviceEnd.Close()
	scripted(deviceEnd, map[byte]string{protocol.CmdInitialize: "_booting\nS\x00\n"})

	mock := clock.NewMock()
	logger, logs := newTestLogger()
	c := NewClient(hostEnd, mock, logger)
	defer c.Close()

	test.That(t, c.Initialize(context.Background()), test.ShouldBeNil)
	test.That(t, c.Err(), test.ShouldBeNil)
	test.That(t, logs.FilterMessage("turntable").Len(), test.ShouldEqual, 1)

	mock.Add(3 * time.Second)
	test.That(t, errors.Is(c.Err(), ErrHeartbeatLost), test.ShouldBeTrue)
}

func TestClientContextTimeout(t *testing.T) {
	hostEnd, deviceEnd := net.Pipe()
	defer deviceEnd.Close()
	scripted(deviceEnd, nil)

	logger, _ := newTestLogger()
	c := NewClient(hostEnd, clock.NewMock(), logger)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.StopAll(ctx)
	test.That(t, errors.Is(err, context.DeadlineExceeded), test.ShouldBeTrue)
}
