package link

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"turntable/protocol"
)

// DefaultTolerance is the longest gap allowed between heartbeats
const DefaultTolerance = protocol.StatusInterval*time.Microsecond + 200*time.Millisecond

var (
	// ErrHeartbeatLost is returned when no heartbeat arrived within the tolerance
	ErrHeartbeatLost = errors.New("turntable missed a heartbeat")
	// ErrCounterMismatch is returned when a heartbeat skips or repeats a counter value
	ErrCounterMismatch = errors.New("unexpected heartbeat counter")
)

// Monitor tracks heartbeat continuity after initialization
type Monitor struct {
	clock     clock.Clock
	tolerance time.Duration

	mu       sync.Mutex
	started  bool
	expected uint8
	last     time.Time
}

// NewMonitor creates a stopped monitor
func NewMonitor(clk clock.Clock, tolerance time.Duration) *Monitor {
	return &Monitor{clock: clk, tolerance: tolerance}
}

// Start begins tracking after the heartbeat carrying counter first
func (m *Monitor) Start(first uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = true
	m.expected = first + 1
	m.last = m.clock.Now()
}

// Stop ends tracking, e.g. after a reset
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = false
}

// Started reports whether the monitor is tracking heartbeats
func (m *Monitor) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// Observe records a heartbeat
func (m *Monitor) Observe(counter uint8) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return nil
	}
	if counter != m.expected {
		err := errors.Wrapf(ErrCounterMismatch, "expected %d, got %d", m.expected, counter)
		m.expected = counter + 1
		m.last = m.clock.Now()
		return err
	}
	m.expected++
	m.last = m.clock.Now()
	return nil
}

// Check returns an error if the last heartbeat is too old
func (m *Monitor) Check() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return nil
	}
	if gap := m.clock.Since(m.last); gap > m.tolerance {
		return errors.Wrapf(ErrHeartbeatLost, "last heartbeat %v ago", gap)
	}
	return nil
}
