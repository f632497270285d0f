package core

import (
	"math"
	"testing"

	"turntable/config"
)

const maxTicks = 500000

func newTestEngine() (*Engine, *ManualClock, *SimPin, *SimPin, *SimPin) {
	clk := NewManualClock(0)
	pins, step, dir, en := NewSimPins()
	e := NewEngine(config.Default(), pins, clk)
	e.Init()
	return e, clk, step, dir, en
}

// advance jumps the clock to the next due edge and steps once
func advance(e *Engine, clk *ManualClock) {
	clk.Set(uint64(math.Ceil(e.NextStepAt())))
	e.Step(clk.Now())
}

// runUntil advances until done returns true and reports the tick count
func runUntil(t *testing.T, e *Engine, clk *ManualClock, done func() bool) int {
	t.Helper()
	for i := 0; i < maxTicks; i++ {
		if done() {
			return i
		}
		advance(e, clk)
		if e.Position < e.PositionMin() || e.Position > e.PositionMax() {
			t.Fatalf("position %d outside [%d, %d]", e.Position, e.PositionMin(), e.PositionMax())
		}
	}
	t.Fatalf("condition not reached after %d ticks (position=%d rpm=%v)", maxTicks, e.Position, e.RPM())
	return maxTicks
}

func countEvents(eventType uint8) int {
	n := 0
	for _, evt := range TimingEvents() {
		if evt.EventType == eventType {
			n++
		}
	}
	return n
}

func TestEngineInit(t *testing.T) {
	e, _, step, dir, en := newTestEngine()

	if step.High {
		t.Error("step pin should start low")
	}
	if !dir.High {
		t.Error("direction pin should be high for forward")
	}
	if !en.High || e.Enabled() {
		t.Error("driver should start disabled (enable pin high)")
	}
	if e.PositionMax() != 14266 {
		t.Errorf("PositionMax() = %d, want 14266", e.PositionMax())
	}
	if e.Phase() != PhaseIdle {
		t.Errorf("Phase() = %d, want idle", e.Phase())
	}
}

func TestEngineNoHardwareAccessBeforeInit(t *testing.T) {
	pins, step, dir, en := NewSimPins()
	NewEngine(config.Default(), pins, NewManualClock(0))
	if step.Rises+dir.Rises+en.Rises != 0 {
		t.Error("constructor must not touch pins")
	}
}

func TestTargetedMoveCompletes(t *testing.T) {
	tests := []struct {
		name     string
		from, to int32
		rpm      float64
	}{
		{"one step forward", 0, 1, 0},
		{"one step reverse", 10, 9, 0},
		{"two steps forward", 0, 2, 0},
		{"two steps reverse", 2, 0, 0},
		{"three steps", 5000, 5003, 0},
		{"short reverse", 7000, 6990, 0},
		{"medium", 0, 1000, 0},
		{"medium reverse", 1000, 0, 0},
		{"slow", 200, 1000, 5},
		{"fast", 0, 6000, 40},
		{"long", 0, 14000, 0},
		{"full reverse", 14266, 0, 0},
		{"to upper limit", 0, 14266, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, clk, _, _, _ := newTestEngine()
			e.Position = tt.from

			e.SetTargetPosition(tt.to, tt.rpm)
			if !e.MovingToPosition || e.PositionReached {
				t.Fatal("move should be in progress")
			}

			runUntil(t, e, clk, func() bool { return !e.MovingToPosition })

			if e.Position != tt.to {
				t.Errorf("Position = %d, want %d", e.Position, tt.to)
			}
			if !e.PositionReached {
				t.Error("PositionReached should be set")
			}

			advance(e, clk)
			if e.Enabled() {
				t.Error("driver should be disabled after the move")
			}
			if e.Position != tt.to {
				t.Errorf("position drifted to %d after completion", e.Position)
			}
		})
	}
}

func TestSameTargetIsNoop(t *testing.T) {
	e, clk, step, _, _ := newTestEngine()
	e.Position = 1234

	e.SetTargetPosition(1234, 10)
	if e.MovingToPosition || !e.PositionReached {
		t.Fatal("move to current position should complete immediately")
	}

	for i := 0; i < 10; i++ {
		clk.Advance(1000)
		e.Step(clk.Now())
	}
	if step.Rises != 0 {
		t.Errorf("no steps expected, got %d", step.Rises)
	}
	if e.Position != 1234 {
		t.Errorf("Position = %d, want 1234", e.Position)
	}
}

func TestShortMoveExitsAtHalfway(t *testing.T) {
	e, clk, _, _, _ := newTestEngine()
	ClearTimingRing()

	// Reaching 20 RPM from rest takes over 1000 steps
	e.SetTargetPosition(1000, 20)
	runUntil(t, e, clk, func() bool { return !e.MovingToPosition })

	if countEvents(EvtHalfway) != 1 {
		t.Errorf("expected one halfway event, got %d", countEvents(EvtHalfway))
	}
	if countEvents(EvtCruise) != 0 {
		t.Error("short move must not reach rpm_max")
	}
	if e.Position != 1000 {
		t.Errorf("Position = %d, want 1000", e.Position)
	}
}

func TestLongMoveExitsAtMaxSpeed(t *testing.T) {
	e, clk, _, _, _ := newTestEngine()
	ClearTimingRing()

	e.SetTargetPosition(14000, 20)
	runUntil(t, e, clk, func() bool { return !e.MovingToPosition })

	if countEvents(EvtCruise) != 1 {
		t.Errorf("expected one cruise event, got %d", countEvents(EvtCruise))
	}
	if countEvents(EvtHalfway) != 0 {
		t.Error("long move must not brake at halfway")
	}
	if countEvents(EvtDecelerate) != 1 {
		t.Errorf("expected one decelerate event, got %d", countEvents(EvtDecelerate))
	}

	var cruise, decel TimingEvent
	for _, evt := range TimingEvents() {
		switch evt.EventType {
		case EvtCruise:
			cruise = evt
		case EvtDecelerate:
			decel = evt
		}
	}
	// Braking starts as far before the target as acceleration took
	accelSteps := int32(cruise.Value1)
	if got := int32(decel.Value1); got != 14000-accelSteps {
		t.Errorf("decelerate at %d, want %d", got, 14000-accelSteps)
	}
	if accelSteps >= 7000 {
		t.Errorf("cruise reached at %d, expected before halfway", accelSteps)
	}
}

func TestDelayMonotonicDuringRamps(t *testing.T) {
	for _, target := range []int32{800, 9000} {
		e, clk, _, _, _ := newTestEngine()
		e.SetTargetPosition(target, 20)

		prevPhase := e.Phase()
		prevDelay := math.Inf(1)
		for i := 0; i < maxTicks && e.MovingToPosition; i++ {
			advance(e, clk)
			phase, delay := e.Phase(), e.Delay()

			if phase == prevPhase {
				switch phase {
				case PhaseAccelerating:
					if delay > prevDelay {
						t.Fatalf("target %d: delay grew while accelerating: %v -> %v", target, prevDelay, delay)
					}
				case PhaseDecelerating:
					if delay < prevDelay {
						t.Fatalf("target %d: delay shrank while decelerating: %v -> %v", target, prevDelay, delay)
					}
				}
			}
			prevPhase, prevDelay = phase, delay
		}
		if e.Position != target {
			t.Errorf("Position = %d, want %d", e.Position, target)
		}
	}
}

func TestHalfStepDelay(t *testing.T) {
	e, _, _, _, _ := newTestEngine()

	// 1 RPM at 3200 microsteps per revolution
	if got := e.halfStepDelay(1); math.Abs(got-9375) > 1e-9 {
		t.Errorf("halfStepDelay(1) = %v, want 9375", got)
	}
	if got := e.halfStepDelay(20); math.Abs(got-468.75) > 1e-9 {
		t.Errorf("halfStepDelay(20) = %v, want 468.75", got)
	}
}

func TestReversalPausesBeforeFlip(t *testing.T) {
	e, clk, _, dir, _ := newTestEngine()
	e.Position = 5000

	e.SetTargetVelocity(10)
	runUntil(t, e, clk, func() bool { return e.Phase() == PhaseCruising })
	if e.Direction() != Forward || !dir.High {
		t.Fatal("expected forward motion")
	}

	e.SetTargetVelocity(-10)
	if e.Target().Kind != TargetReverse {
		t.Fatalf("Target().Kind = %d, want TargetReverse", e.Target().Kind)
	}

	paused := false
	for i := 0; i < maxTicks; i++ {
		before := e.NextStepAt()
		advance(e, clk)

		if e.Phase() == PhaseReversePause {
			gap := e.NextStepAt() - before
			if math.Abs(gap-300000) > 1e-6 {
				t.Errorf("pause = %v us, want 300000", gap)
			}
			if dir.High {
				t.Error("direction pin should flip when the pause begins")
			}
			if e.RPM() != 0 {
				t.Errorf("RPM() = %v during pause, want 0", e.RPM())
			}
			paused = true
			break
		}
		if !dir.High {
			t.Fatalf("direction pin changed before the pause (tick %d)", i)
		}
	}
	if !paused {
		t.Fatal("reverse pause never started")
	}

	flipAt := e.Position
	runUntil(t, e, clk, func() bool { return e.Phase() == PhaseCruising })
	if e.Direction() != Reverse {
		t.Error("expected reverse motion after the pause")
	}
	if e.Position >= flipAt {
		t.Errorf("position %d should be below %d after reversing", e.Position, flipAt)
	}
	if e.Target() != (Target{Kind: TargetCruise, RPM: 10}) {
		t.Errorf("Target() = %+v", e.Target())
	}
}

func TestReverseFromStandstillFlipsImmediately(t *testing.T) {
	e, _, _, dir, _ := newTestEngine()
	e.Position = 100

	e.SetTargetVelocity(-5)
	if e.Direction() != Reverse || dir.High {
		t.Error("direction should flip immediately at standstill")
	}
	if e.Target() != (Target{Kind: TargetCruise, RPM: 5}) {
		t.Errorf("Target() = %+v", e.Target())
	}
}

func TestVelocityClamped(t *testing.T) {
	e, _, _, _, en := newTestEngine()

	e.SetTargetVelocity(0.1)
	if got := e.Target().RPM; got != 1 {
		t.Errorf("low speed clamped to %v, want zero-rpm 1", got)
	}
	if !e.Enabled() || en.High {
		t.Error("driver should be enabled")
	}

	e.SetTargetVelocity(500)
	if got := e.Target().RPM; got != 20 {
		t.Errorf("high speed clamped to %v, want 20", got)
	}
}

func TestTravelLimits(t *testing.T) {
	tests := []struct {
		name  string
		start int32
		v     float64
		limit int32
	}{
		{"upper", 14263, 10, 14266},
		{"lower", 3, -10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, clk, _, _, en := newTestEngine()
			e.Position = tt.start
			ClearTimingRing()

			e.SetTargetVelocity(tt.v)
			runUntil(t, e, clk, func() bool { return e.Position == tt.limit })

			// The next due tick must stop the motor
			advance(e, clk)
			if e.RPM() != 0 || e.Target().RPM != 0 {
				t.Errorf("motor still running at limit: rpm=%v target=%+v", e.RPM(), e.Target())
			}
			if e.Enabled() || !en.High {
				t.Error("driver should be disabled at limit")
			}
			if e.Position != tt.limit {
				t.Errorf("Position = %d, want %d", e.Position, tt.limit)
			}
			if countEvents(EvtTravelLimit) != 1 {
				t.Errorf("expected one limit event, got %d", countEvents(EvtTravelLimit))
			}
		})
	}
}

func TestStopAbandonsMove(t *testing.T) {
	e, clk, _, _, _ := newTestEngine()

	e.SetTargetPosition(10000, 20)
	runUntil(t, e, clk, func() bool { return e.Position >= 500 })

	e.Stop()
	if e.MovingToPosition {
		t.Error("Stop should abandon the targeted move")
	}
	runUntil(t, e, clk, func() bool { return e.Phase() == PhaseIdle })

	if e.Position >= 10000 || e.Position <= 500 {
		t.Errorf("Position = %d, expected a soft stop past 500", e.Position)
	}
	if e.PositionReached {
		t.Error("PositionReached should stay false")
	}
}

func TestHardStopAndRelease(t *testing.T) {
	e, clk, _, _, en := newTestEngine()

	e.SetTargetPosition(3000, 0)
	runUntil(t, e, clk, func() bool { return e.Position >= 200 })

	at := e.Position
	e.Release()
	if e.RPM() != 0 || e.MovingToPosition || e.Enabled() || !en.High {
		t.Error("Release should stop, abandon and disable")
	}
	if e.Position != at {
		t.Errorf("Release changed position to %d", e.Position)
	}

	for i := 0; i < 5; i++ {
		clk.Advance(10000)
		e.Step(clk.Now())
	}
	if e.Position != at {
		t.Errorf("motor moved after Release: %d", e.Position)
	}
}

func TestHardStopHaltsTargetedMove(t *testing.T) {
	e, clk, step, _, en := newTestEngine()

	e.SetTargetPosition(3000, 0)
	runUntil(t, e, clk, func() bool { return e.Position >= 200 })

	at := e.Position
	e.HardStop()
	if e.RPM() != 0 {
		t.Errorf("RPM = %v after HardStop, want 0", e.RPM())
	}

	rises := step.Rises
	for i := 0; i < 2000; i++ {
		clk.Advance(10000)
		e.Step(clk.Now())
	}
	if e.Position != at {
		t.Errorf("motor kept moving after HardStop: %d -> %d", at, e.Position)
	}
	if step.Rises != rises {
		t.Errorf("step pulses after HardStop: %d", step.Rises-rises)
	}
	if e.Enabled() || !en.High {
		t.Error("driver should be disabled once idle")
	}
	if e.PositionReached {
		t.Error("PositionReached set by a halted move")
	}
}

func TestGoHomeAndResetPosition(t *testing.T) {
	e, clk, _, _, _ := newTestEngine()
	e.Position = 300

	e.GoHome()
	runUntil(t, e, clk, func() bool { return !e.MovingToPosition })
	if e.Position != 0 || !e.PositionReached {
		t.Errorf("GoHome ended at %d", e.Position)
	}

	e.Position = 42
	e.ResetPosition()
	if e.Position != 0 {
		t.Errorf("ResetPosition left %d", e.Position)
	}
}

func TestStepNotDue(t *testing.T) {
	e, clk, step, _, _ := newTestEngine()
	clk.Set(1000)

	e.SetTargetVelocity(10)
	e.Step(1000)
	if step.Rises != 1 {
		t.Fatalf("expected first edge immediately, got %d rises", step.Rises)
	}

	next := e.NextStepAt()
	e.Step(uint64(next) - 1)
	if step.Falls != 0 {
		t.Error("edge produced before it was due")
	}
}
