package core

import "tinygo.org/x/drivers"

// ByteReader is the receive side of the serial link as seen by the channel.
// Neither method may block.
type ByteReader interface {
	// Buffered returns the number of bytes ready to read
	Buffered() int

	// ReadByte returns the next byte; only called when Buffered() > 0
	ReadByte() (byte, error)
}

// UARTPort adapts a TinyGo UART to ByteReader and io.Writer
type UARTPort struct {
	uart drivers.UART
	one  [1]byte
}

// NewUARTPort wraps uart
func NewUARTPort(uart drivers.UART) *UARTPort {
	return &UARTPort{uart: uart}
}

func (p *UARTPort) Buffered() int {
	return p.uart.Buffered()
}

func (p *UARTPort) ReadByte() (byte, error) {
	n, err := p.uart.Read(p.one[:])
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errNoData
	}
	return p.one[0], nil
}

func (p *UARTPort) Write(b []byte) (int, error) {
	return p.uart.Write(b)
}
