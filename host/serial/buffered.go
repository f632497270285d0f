package serial

import (
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"

	"turntable/protocol"
)

// BufferedPort pumps a blocking Port into a FIFO so that a polled
// firmware loop can check Buffered and ReadByte without blocking.
type BufferedPort struct {
	port Port

	mu   sync.Mutex
	fifo *protocol.FifoBuffer
	err  error

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewBufferedPort starts reading port in the background
func NewBufferedPort(port Port, size int) *BufferedPort {
	b := &BufferedPort{
		port: port,
		fifo: protocol.NewFifoBuffer(size),
		done: make(chan struct{}),
	}
	b.wg.Add(1)
	go b.readLoop()
	return b
}

func (b *BufferedPort) readLoop() {
	defer b.wg.Done()
	buf := make([]byte, 64)
	for {
		n, err := b.port.Read(buf)
		if n > 0 {
			b.store(buf[:n])
		}
		if err != nil {
			select {
			case <-b.done:
				return
			default:
			}
			// tarm/serial reports a read timeout as EOF
			if errors.Is(err, io.EOF) {
				continue
			}
			b.mu.Lock()
			b.err = errors.Wrap(err, "serial read failed")
			b.mu.Unlock()
			return
		}
	}
}

// store appends data, waiting for the consumer while the FIFO is full
func (b *BufferedPort) store(data []byte) {
	for len(data) > 0 {
		b.mu.Lock()
		n := b.fifo.Write(data)
		b.mu.Unlock()
		data = data[n:]
		if len(data) == 0 {
			return
		}
		select {
		case <-b.done:
			return
		default:
		}
		time.Sleep(100 * time.Microsecond)
	}
}

// Buffered returns the number of bytes ready to read
func (b *BufferedPort) Buffered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fifo.Buffered()
}

// ReadByte returns the oldest buffered byte
func (b *BufferedPort) ReadByte() (byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fifo.ReadByte()
}

// Write writes directly to the underlying port
func (b *BufferedPort) Write(p []byte) (int, error) {
	return b.port.Write(p)
}

// Err returns the error that stopped the reader, if any
func (b *BufferedPort) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Close stops the reader and closes the port
func (b *BufferedPort) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		err = b.port.Close()
		b.wg.Wait()
	})
	return err
}
