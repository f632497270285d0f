package serial

import (
	"time"

	"github.com/pkg/errors"
	tarm "github.com/tarm/serial"
)

// ErrInvalidConfig is returned for a missing device or a non-positive baud rate
var ErrInvalidConfig = errors.New("invalid serial config")

// NativePort is a tarm/serial device running the turntable link (8N1)
type NativePort struct {
	port *tarm.Port
	cfg  *Config
}

// portSettings maps a link config onto tarm settings
func portSettings(cfg *Config) (*tarm.Config, error) {
	if cfg == nil || cfg.Device == "" {
		return nil, errors.Wrap(ErrInvalidConfig, "device is required")
	}
	if cfg.Baud <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "baud %d", cfg.Baud)
	}
	if cfg.ReadTimeout < 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "read timeout %dms", cfg.ReadTimeout)
	}
	return &tarm.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
		Size:        8,
		Parity:      tarm.ParityNone,
		StopBits:    tarm.Stop1,
	}, nil
}

// Open opens the device described by cfg
func Open(cfg *Config) (Port, error) {
	settings, err := portSettings(cfg)
	if err != nil {
		return nil, err
	}
	port, err := tarm.OpenPort(settings)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s at %d baud", cfg.Device, cfg.Baud)
	}
	return &NativePort{port: port, cfg: cfg}, nil
}

func (p *NativePort) Read(b []byte) (int, error)  { return p.port.Read(b) }
func (p *NativePort) Write(b []byte) (int, error) { return p.port.Write(b) }

// Close releases the device. Closing twice is a no-op.
func (p *NativePort) Close() error {
	if p.port == nil {
		return nil
	}
	err := p.port.Close()
	p.port = nil
	return errors.Wrapf(err, "close %s", p.cfg.Device)
}

// Flush discards unread input and unsent output
func (p *NativePort) Flush() error {
	if p.port == nil {
		return errors.Errorf("flush %s: port closed", p.cfg.Device)
	}
	return errors.Wrapf(p.port.Flush(), "flush %s", p.cfg.Device)
}
