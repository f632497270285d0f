// Package config holds the turntable's mechanical, motion and link settings.
package config

import "errors"

// Config describes the turntable hardware and timing. Zero values are
// replaced with defaults by ApplyDefaults.
type Config struct {
	// GPIO pin numbers (board specific)
	StepPin   int `yaml:"step_pin"`
	DirPin    int `yaml:"dir_pin"`
	EnablePin int `yaml:"enable_pin"`

	// Motor and gearing
	MotorSteps     int `yaml:"motor_steps"`     // full steps per motor revolution
	Microsteps     int `yaml:"microsteps"`      // microsteps per full step
	StepperTeeth   int `yaml:"stepper_teeth"`   // pinion on the motor shaft
	TurntableTeeth int `yaml:"turntable_teeth"` // ring gear on the table

	// Motion, speeds in motor RPM
	Acceleration float64 `yaml:"acceleration"` // RPM per second
	DefaultRPM   float64 `yaml:"default_rpm"`
	MaxRPM       float64 `yaml:"max_rpm"`
	ZeroRPM      float64 `yaml:"zero_rpm"`

	// Timing in microseconds
	ReverseDelay   uint64 `yaml:"reverse_delay_us"`
	StatusInterval uint64 `yaml:"status_interval_us"`
	ByteTimeout    uint64 `yaml:"byte_timeout_us"`

	Serial SerialConfig `yaml:"serial"`
}

// SerialConfig holds host-side link settings
type SerialConfig struct {
	Device      string `yaml:"device"`
	Baud        int    `yaml:"baud"`
	ReadTimeout int    `yaml:"read_timeout_ms"`
}

// Defaults matching the Arduino Uno + CNC shield build
const (
	DefaultStepPin   = 2
	DefaultDirPin    = 5
	DefaultEnablePin = 8

	DefaultMotorSteps     = 200
	DefaultMicrosteps     = 16
	DefaultStepperTeeth   = 24
	DefaultTurntableTeeth = 107

	DefaultAcceleration = 10.0
	DefaultRPMValue     = 20.0
	DefaultMaxRPM       = 60.0
	DefaultZeroRPM      = 1.0

	DefaultReverseDelay   = 300000
	DefaultStatusInterval = 2000000
	DefaultByteTimeout    = 1000

	DefaultDevice = "/dev/ttyACM0"
	DefaultBaud   = 115200
	// Host read timeout in milliseconds
	DefaultReadTimeout = 100
)

var (
	ErrInvalidGeometry = errors.New("motor steps, microsteps and gear teeth must be positive")
	ErrInvalidSpeed    = errors.New("speeds must satisfy 0 < zero_rpm <= default_rpm <= max_rpm")
	ErrInvalidAccel    = errors.New("acceleration must be positive")
)

// Default returns a fully populated configuration
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills every zero field with its default
func (c *Config) ApplyDefaults() {
	if c.StepPin == 0 {
		c.StepPin = DefaultStepPin
	}
	if c.DirPin == 0 {
		c.DirPin = DefaultDirPin
	}
	if c.EnablePin == 0 {
		c.EnablePin = DefaultEnablePin
	}
	if c.MotorSteps == 0 {
		c.MotorSteps = DefaultMotorSteps
	}
	if c.Microsteps == 0 {
		c.Microsteps = DefaultMicrosteps
	}
	if c.StepperTeeth == 0 {
		c.StepperTeeth = DefaultStepperTeeth
	}
	if c.TurntableTeeth == 0 {
		c.TurntableTeeth = DefaultTurntableTeeth
	}
	if c.Acceleration == 0 {
		c.Acceleration = DefaultAcceleration
	}
	if c.DefaultRPM == 0 {
		c.DefaultRPM = DefaultRPMValue
	}
	if c.MaxRPM == 0 {
		c.MaxRPM = DefaultMaxRPM
	}
	if c.ZeroRPM == 0 {
		c.ZeroRPM = DefaultZeroRPM
	}
	if c.ReverseDelay == 0 {
		c.ReverseDelay = DefaultReverseDelay
	}
	if c.StatusInterval == 0 {
		c.StatusInterval = DefaultStatusInterval
	}
	if c.ByteTimeout == 0 {
		c.ByteTimeout = DefaultByteTimeout
	}
	if c.Serial.Device == "" {
		c.Serial.Device = DefaultDevice
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = DefaultBaud
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = DefaultReadTimeout
	}
}

// Validate checks the configuration for values the motion engine cannot use
func (c *Config) Validate() error {
	if c.MotorSteps <= 0 || c.Microsteps <= 0 || c.StepperTeeth <= 0 || c.TurntableTeeth <= 0 {
		return ErrInvalidGeometry
	}
	if c.Acceleration <= 0 {
		return ErrInvalidAccel
	}
	if c.ZeroRPM <= 0 || c.DefaultRPM < c.ZeroRPM || c.MaxRPM < c.DefaultRPM {
		return ErrInvalidSpeed
	}
	return nil
}

// StepsPerRev returns microsteps per motor revolution
func (c *Config) StepsPerRev() int {
	return c.MotorSteps * c.Microsteps
}

// PositionMax returns the number of microsteps in one full table revolution
func (c *Config) PositionMax() int32 {
	return int32(c.StepsPerRev() * c.TurntableTeeth / c.StepperTeeth)
}
