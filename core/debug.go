package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TimingEvent captures a motion or protocol event for post-mortem analysis
type TimingEvent struct {
	EventType uint8  // Event type code
	Tag       uint8  // Command tag or direction, event dependent
	Clock     uint32 // Microsecond clock at event (truncated)
	Value1    uint32 // Context-dependent value, usually position
	Value2    uint32 // Context-dependent value
}

// Event type codes
const (
	EvtHalfway       = 1 // short move braking at the halfway point
	EvtCruise        = 2 // rpm_max reached, deceleration point fixed
	EvtDecelerate    = 3 // deceleration point reached
	EvtTargetReached = 4 // targeted move complete
	EvtReversePause  = 5 // direction flipped, pause inserted
	EvtTravelLimit   = 6 // hard stop at a travel limit
	EvtCommand       = 7 // command dispatched
	EvtCmdTimeout    = 8 // payload timed out
	EvtCmdError      = 9 // command rejected
)

const (
	TimingRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Timing capture ring buffer (non-blocking, for post-mortem)
	timingRing     [TimingRingSize]TimingEvent
	timingRingHead uint8        // Next write position
	timingEnabled  bool  = true // Always capture timing events
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output.
// Writing debug lines costs loop time and therefore step timing accuracy.
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordTiming captures a timing event in the ring buffer.
// This is always non-blocking.
func RecordTiming(eventType, tag uint8, clock, value1, value2 uint32) {
	if !timingEnabled {
		return
	}
	idx := timingRingHead
	timingRing[idx] = TimingEvent{
		EventType: eventType,
		Tag:       tag,
		Clock:     clock,
		Value1:    value1,
		Value2:    value2,
	}
	timingRingHead = (idx + 1) % TimingRingSize
}

// TimingEvents returns the recorded events, oldest first
func TimingEvents() []TimingEvent {
	events := make([]TimingEvent, 0, TimingRingSize)
	start := timingRingHead
	for i := uint8(0); i < TimingRingSize; i++ {
		evt := timingRing[(start+i)%TimingRingSize]
		if evt.EventType == 0 {
			continue // Empty slot
		}
		events = append(events, evt)
	}
	return events
}

// EventName returns a short label for an event type
func EventName(eventType uint8) string {
	switch eventType {
	case EvtHalfway:
		return "HALFWAY"
	case EvtCruise:
		return "CRUISE"
	case EvtDecelerate:
		return "DECELERATE"
	case EvtTargetReached:
		return "TARGET"
	case EvtReversePause:
		return "REVERSE"
	case EvtTravelLimit:
		return "LIMIT!"
	case EvtCommand:
		return "COMMAND"
	case EvtCmdTimeout:
		return "TIMEOUT!"
	case EvtCmdError:
		return "CMD_ERROR"
	}
	return "UNKNOWN"
}

// DumpTimingRing outputs the timing ring buffer (call on shutdown/error).
// Output goes to the debug writer regardless of SetDebugEnabled.
func DumpTimingRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TIMING] === Timing Ring Dump ===")
	for _, evt := range TimingEvents() {
		debugPrintln("[TIMING] " + EventName(evt.EventType) +
			" tag=" + itoa(int(evt.Tag)) +
			" clock=" + utoa(evt.Clock) +
			" v1=" + itoa(int(int32(evt.Value1))) +
			" v2=" + itoa(int(int32(evt.Value2))))
	}
	debugPrintln("[TIMING] === End Dump ===")
}

// ClearTimingRing clears the timing buffer
func ClearTimingRing() {
	for i := range timingRing {
		timingRing[i] = TimingEvent{}
	}
	timingRingHead = 0
}
