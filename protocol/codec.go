package protocol

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrShortPayload is returned when a payload is smaller than its fixed size
var ErrShortPayload = errors.New("payload too short")

// Int32 decodes a little-endian signed 32-bit integer
func Int32(b []byte) int32 {
	return int32(binary.LittleEndian.Uint32(b))
}

// PutInt32 encodes a little-endian signed 32-bit integer
func PutInt32(b []byte, v int32) {
	binary.LittleEndian.PutUint32(b, uint32(v))
}

// Float32 decodes a little-endian IEEE-754 single
func Float32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// PutFloat32 encodes a little-endian IEEE-754 single
func PutFloat32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

// DecodeVelocity decodes the velocity command payload
func DecodeVelocity(payload []byte) (float32, error) {
	if len(payload) < VelocityPayload {
		return 0, ErrShortPayload
	}
	return Float32(payload[0:4]), nil
}

// DecodePosition decodes the position command payload.
// The speed field is 4 bytes wide, the size of a double on the AVR boards
// the protocol was first written for.
func DecodePosition(payload []byte) (int32, float32, error) {
	if len(payload) < PositionPayload {
		return 0, 0, ErrShortPayload
	}
	return Int32(payload[0:4]), Float32(payload[4:8]), nil
}
