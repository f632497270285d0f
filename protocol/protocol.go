// Package protocol implements the turntable serial protocol
package protocol

// Version represents the turntable firmware version
const Version = "0.1.0"

// Command tags (host -> turntable)
const (
	CmdInitialize byte = 'I'
	CmdReset      byte = 'R'
	CmdVelocity   byte = 'V'
	CmdPosition   byte = 'P'
	CmdStopAll    byte = 'Y'
	CmdInfo       byte = 'Z'
)

// Response tags (turntable -> host)
const (
	RespStatus          byte = 'S'
	RespReset           byte = 'R'
	RespAck             byte = 'A'
	RespPositionReached byte = 'P'
	RespHomingFinished  byte = 'H'
	RespError           byte = 'E'
	RespPosition        byte = 'Z'
	RespComment         byte = '_'
)

// Payload sizes
const (
	VelocityPayload = 4 // float32 rpm
	PositionPayload = 8 // int32 position + float32 rpm
	PayloadMax      = 8

	StatusFrameLen   = 3 // 'S' counter '\n'
	PositionFrameLen = 6 // 'Z' int32 '\n'
)

// Frame terminator
const EOL byte = '\n'

// Protocol constants
const (
	MessageMax = 256 // Output scratch size, enough for one tick of frames plus debug lines
)

// Link timing in microseconds
const (
	StatusInterval = 2000000
	ByteTimeout    = 1000
	ReverseDelay   = 300000
)

// PayloadLen returns the fixed payload size for a command tag
func PayloadLen(tag byte) int {
	switch tag {
	case CmdVelocity:
		return VelocityPayload
	case CmdPosition:
		return PositionPayload
	}
	return 0
}
