package core

import (
	"math"

	"turntable/config"
)

// Direction of rotation as seen on the direction pin
type Direction uint8

const (
	Forward Direction = iota // direction pin high
	Reverse
)

func (d Direction) sign() int32 {
	if d == Reverse {
		return -1
	}
	return 1
}

func (d Direction) opposite() Direction {
	if d == Reverse {
		return Forward
	}
	return Reverse
}

// TargetKind distinguishes a plain speed target from a pending reversal
type TargetKind uint8

const (
	// TargetCruise ramps towards RPM in the current direction
	TargetCruise TargetKind = iota
	// TargetReverse ramps down to zero, pauses, flips direction and then
	// becomes a TargetCruise at RPM
	TargetReverse
)

// Target is the speed the engine is ramping towards
type Target struct {
	Kind TargetKind
	RPM  float64
}

// Phase describes what the engine is doing right now
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseAccelerating
	PhaseCruising
	PhaseDecelerating
	PhaseReversing    // ramping down before a direction flip
	PhaseReversePause // direction flipped, waiting out the reverse delay
)

// Engine is the trapezoidal step generator. All methods must be called
// from the scheduler loop; the engine holds no locks.
type Engine struct {
	cfg   *config.Config
	pins  Pins
	clock Clock

	// Position in microsteps, within [0, PositionMax()]
	Position int32
	// MovingToPosition is set while a targeted move is in progress
	MovingToPosition bool
	// PositionReached is set when a targeted move completes
	PositionReached bool

	direction Direction
	enabled   bool
	stepHigh  bool
	paused    bool

	rpm    float64
	target Target
	rpmMax float64
	delay  float64 // half-step period in microseconds

	tNext     float64
	tPrevious float64

	acceleratingToTarget bool
	positionTarget       int32
	positionHalfway      int32
	positionDecelerate   int32

	positionMin int32
	positionMax int32
	stepsPerRev float64
}

// NewEngine creates an engine at position zero. No pins are touched until Init.
func NewEngine(cfg *config.Config, pins Pins, clock Clock) *Engine {
	return &Engine{
		cfg:         cfg,
		pins:        pins,
		clock:       clock,
		rpmMax:      cfg.DefaultRPM,
		positionMin: 0,
		positionMax: cfg.PositionMax(),
		stepsPerRev: float64(cfg.StepsPerRev()),
	}
}

// Init drives all outputs to their idle state with the driver disabled
func (e *Engine) Init() {
	e.pins.Step.Set(false)
	e.pins.Dir.Set(e.direction == Forward)
	e.disable()
}

// Step advances the profile if a half-step is due at now (microseconds).
// At most one step pin edge is produced per call.
func (e *Engine) Step(now uint64) {
	t := float64(now)
	if t < e.tNext {
		return
	}

	if e.rpm == 0 && e.target.RPM == 0 {
		e.disable()
		return
	}

	if (e.direction == Reverse && e.Position <= e.positionMin) ||
		(e.direction == Forward && e.Position >= e.positionMax) {
		e.HardStop()
		e.abandonMove()
		e.disable()
		RecordTiming(EvtTravelLimit, 0, uint32(now), uint32(e.Position), 0)
		return
	}

	e.paused = false
	e.stepHigh = !e.stepHigh
	e.pins.Step.Set(e.stepHigh)
	if e.stepHigh {
		e.Position += e.direction.sign()
		if e.MovingToPosition {
			e.trackTarget(now)
		}
	}

	if e.target.Kind == TargetCruise && e.rpm == e.target.RPM && e.rpm > 0 {
		e.tNext += e.delay
		return
	}

	dv := e.cfg.Acceleration * (t - e.tPrevious) / 1e6
	if e.target.Kind == TargetCruise && e.rpm < e.target.RPM {
		e.rpm = maxOf(e.cfg.ZeroRPM, minOf(e.rpm+dv, e.target.RPM))
	} else {
		goal := e.target.RPM
		if e.target.Kind == TargetReverse {
			goal = 0
		}
		e.rpm = maxOf(e.rpm-dv, goal)
	}

	if e.rpm >= e.cfg.ZeroRPM {
		e.schedule(e.rpm)
		return
	}

	switch {
	case e.target.Kind == TargetReverse:
		e.setDirection(e.direction.opposite())
		e.target.Kind = TargetCruise
		e.rpm = 0
		e.paused = true
		e.tNext += float64(e.cfg.ReverseDelay)
		e.tPrevious = e.tNext
		RecordTiming(EvtReversePause, uint8(e.direction), uint32(now), uint32(e.Position), 0)
	case e.MovingToPosition:
		// Creep at the minimum speed until the target is hit
		e.rpm = e.cfg.ZeroRPM
		e.schedule(e.rpm)
	default:
		e.rpm = 0
		e.target = Target{}
		e.disable()
	}
}

// trackTarget runs on each rising edge of a targeted move
func (e *Engine) trackTarget(now uint64) {
	if e.acceleratingToTarget {
		s := e.direction.sign()
		switch {
		case s*(e.Position-e.positionHalfway) >= 0:
			// Short move: start braking now
			e.acceleratingToTarget = false
			e.SetTargetVelocity(0)
			RecordTiming(EvtHalfway, 0, uint32(now), uint32(e.Position), uint32(e.rpm))
		case e.rpm >= e.rpmMax:
			// Steps spent accelerating are now known, so brake that far before the target
			e.acceleratingToTarget = false
			e.positionDecelerate -= e.Position
			RecordTiming(EvtCruise, 0, uint32(now), uint32(e.Position), uint32(e.positionDecelerate))
			return
		default:
			return
		}
	}

	if e.Position == e.positionTarget {
		e.MovingToPosition = false
		e.rpm = 0
		e.target = Target{}
		e.PositionReached = true
		RecordTiming(EvtTargetReached, 0, uint32(now), uint32(e.Position), 0)
		return
	}
	if e.Position == e.positionDecelerate {
		e.SetTargetVelocity(0)
		RecordTiming(EvtDecelerate, 0, uint32(now), uint32(e.Position), 0)
	}
}

// schedule computes the half-step delay for rpm and books the next edge
func (e *Engine) schedule(rpm float64) {
	e.delay = e.halfStepDelay(rpm)
	e.tPrevious = e.tNext
	e.tNext += e.delay
}

// halfStepDelay returns microseconds between pin toggles at rpm
func (e *Engine) halfStepDelay(rpm float64) float64 {
	return 1e6 / (rpm / 60 * e.stepsPerRev) / 2
}

// SetTargetVelocity ramps towards v RPM. The sign selects the direction;
// a flip while moving decelerates and pauses first.
func (e *Engine) SetTargetVelocity(v float64) {
	if e.rpm == 0 && e.target.RPM == 0 {
		now := float64(e.clock.Now())
		e.tNext = now
		e.tPrevious = now
	} else {
		e.tPrevious = e.tNext
	}

	if v == 0 {
		e.target = Target{}
		e.paused = false
		return
	}

	e.enable()
	speed := clamp(math.Abs(v), e.cfg.ZeroRPM, e.rpmMax)
	reverse := (e.direction == Forward) == (v < 0)
	switch {
	case !reverse:
		e.target = Target{Kind: TargetCruise, RPM: speed}
	case e.rpm == 0:
		e.setDirection(e.direction.opposite())
		e.target = Target{Kind: TargetCruise, RPM: speed}
	default:
		e.target = Target{Kind: TargetReverse, RPM: speed}
	}
}

// SetTargetPosition starts a targeted move to p at up to rpm (<= 0 selects
// the configured default). The motor is expected to be at standstill.
func (e *Engine) SetTargetPosition(p int32, rpm float64) {
	if !(rpm > 0) {
		rpm = e.cfg.DefaultRPM
	}
	e.rpmMax = clamp(rpm, e.cfg.ZeroRPM, e.cfg.MaxRPM)

	if p == e.Position {
		e.MovingToPosition = false
		e.PositionReached = true
		return
	}

	e.positionTarget = p
	e.positionHalfway = int32((int64(e.Position) + int64(p)) / 2)
	e.positionDecelerate = e.Position + p
	e.acceleratingToTarget = true
	e.MovingToPosition = true
	e.PositionReached = false

	if p > e.Position {
		e.SetTargetVelocity(e.rpmMax)
	} else {
		e.SetTargetVelocity(-e.rpmMax)
	}
}

// Stop decelerates to a standstill, abandoning any targeted move
func (e *Engine) Stop() {
	e.abandonMove()
	e.SetTargetVelocity(0)
}

// HardStop halts immediately without deceleration
func (e *Engine) HardStop() {
	e.rpm = 0
	e.target = Target{}
	e.paused = false
}

// GoHome moves to position zero at the default speed
func (e *Engine) GoHome() {
	e.SetTargetPosition(0, 0)
}

// ResetPosition declares the current position to be zero
func (e *Engine) ResetPosition() {
	e.Position = 0
}

// Release hard stops, abandons any targeted move and disables the driver.
// Position is kept.
func (e *Engine) Release() {
	e.HardStop()
	e.abandonMove()
	e.disable()
}

func (e *Engine) abandonMove() {
	e.MovingToPosition = false
	e.acceleratingToTarget = false
}

func (e *Engine) setDirection(d Direction) {
	e.direction = d
	e.pins.Dir.Set(d == Forward)
}

func (e *Engine) enable() {
	if !e.enabled {
		e.enabled = true
		e.pins.Enable.Set(false)
	}
}

func (e *Engine) disable() {
	e.enabled = false
	e.pins.Enable.Set(true)
}

// RPM returns the current motor speed
func (e *Engine) RPM() float64 { return e.rpm }

// Target returns the speed target
func (e *Engine) Target() Target { return e.target }

// Direction returns the current rotation direction
func (e *Engine) Direction() Direction { return e.direction }

// Enabled reports whether the driver is enabled
func (e *Engine) Enabled() bool { return e.enabled }

// NextStepAt returns the time in microseconds the next edge is due
func (e *Engine) NextStepAt() float64 { return e.tNext }

// Delay returns the current half-step period in microseconds
func (e *Engine) Delay() float64 { return e.delay }

// PositionMin returns the lower travel limit
func (e *Engine) PositionMin() int32 { return e.positionMin }

// PositionMax returns the upper travel limit
func (e *Engine) PositionMax() int32 { return e.positionMax }

// Phase reports the current stage of the profile
func (e *Engine) Phase() Phase {
	switch {
	case e.paused:
		return PhaseReversePause
	case e.rpm == 0 && e.target.RPM == 0:
		return PhaseIdle
	case e.target.Kind == TargetReverse:
		return PhaseReversing
	case e.rpm < e.target.RPM:
		return PhaseAccelerating
	case e.rpm > e.target.RPM:
		return PhaseDecelerating
	}
	return PhaseCruising
}
