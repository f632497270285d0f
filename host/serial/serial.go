package serial

import (
	"io"

	"turntable/config"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - In-memory pipes (for testing and simulation)
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns a default configuration for the turntable link
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        config.DefaultBaud,
		ReadTimeout: config.DefaultReadTimeout,
	}
}

// FromConfig builds a port configuration from the turntable config
func FromConfig(c config.SerialConfig) *Config {
	cfg := DefaultConfig(c.Device)
	if c.Baud != 0 {
		cfg.Baud = c.Baud
	}
	if c.ReadTimeout != 0 {
		cfg.ReadTimeout = c.ReadTimeout
	}
	return cfg
}
