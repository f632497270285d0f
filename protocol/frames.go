package protocol

// Encoders for frames sent by the turntable. Each writes into out.

// EncodeStatus writes a heartbeat frame
func EncodeStatus(out OutputBuffer, counter uint8) {
	out.Output([]byte{RespStatus, counter, EOL})
}

// EncodeReset writes a reset acknowledgement
func EncodeReset(out OutputBuffer) {
	out.Output([]byte{RespReset, EOL})
}

// EncodeAck writes a generic acknowledgement
func EncodeAck(out OutputBuffer) {
	out.Output([]byte{RespAck, EOL})
}

// EncodePositionReached writes a position-reached frame
func EncodePositionReached(out OutputBuffer) {
	out.Output([]byte{RespPositionReached, EOL})
}

// EncodeHomingFinished writes a homing-finished frame
func EncodeHomingFinished(out OutputBuffer) {
	out.Output([]byte{RespHomingFinished, EOL})
}

// EncodeError writes the generic error frame
func EncodeError(out OutputBuffer) {
	out.Output([]byte{RespError, EOL})
}

// EncodePosition writes the info response carrying the current position
func EncodePosition(out OutputBuffer, position int32) {
	var buf [PositionFrameLen]byte
	buf[0] = RespPosition
	PutInt32(buf[1:5], position)
	buf[5] = EOL
	out.Output(buf[:])
}

// EncodeComment writes a debug line the host treats as a comment.
// Newlines inside text are replaced so the frame stays on one line.
func EncodeComment(out OutputBuffer, text string) {
	buf := make([]byte, 0, len(text)+2)
	buf = append(buf, RespComment)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == EOL {
			c = ' '
		}
		buf = append(buf, c)
	}
	buf = append(buf, EOL)
	out.Output(buf)
}

// Encoders for commands sent by the host. Each returns the raw bytes.

// EncodeInitialize returns the initialize command
func EncodeInitialize() []byte { return []byte{CmdInitialize} }

// EncodeResetCommand returns the reset command
func EncodeResetCommand() []byte { return []byte{CmdReset} }

// EncodeStopAll returns the stop-all command
func EncodeStopAll() []byte { return []byte{CmdStopAll} }

// EncodeInfo returns the info request
func EncodeInfo() []byte { return []byte{CmdInfo} }

// EncodeVelocity returns a velocity command for rpm
func EncodeVelocity(rpm float32) []byte {
	buf := make([]byte, 1+VelocityPayload)
	buf[0] = CmdVelocity
	PutFloat32(buf[1:], rpm)
	return buf
}

// EncodeMoveTo returns a position command
func EncodeMoveTo(position int32, rpm float32) []byte {
	buf := make([]byte, 1+PositionPayload)
	buf[0] = CmdPosition
	PutInt32(buf[1:5], position)
	PutFloat32(buf[5:9], rpm)
	return buf
}
