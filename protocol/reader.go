package protocol

// Frame is one decoded turntable response
type Frame struct {
	Kind     byte
	Counter  uint8  // RespStatus only
	Position int32  // RespPosition only
	Text     string // RespComment only
}

// FrameReader splits the turntable's output stream into frames.
// It is fed arbitrary chunks and keeps partial frames between calls.
type FrameReader struct {
	pending []byte
}

// NewFrameReader creates an empty FrameReader
func NewFrameReader() *FrameReader {
	return &FrameReader{}
}

// Feed appends received bytes
func (r *FrameReader) Feed(data []byte) {
	r.pending = append(r.pending, data...)
}

// Next returns the next complete frame, if any
func (r *FrameReader) Next() (Frame, bool) {
	for len(r.pending) > 0 {
		tag := r.pending[0]
		switch tag {
		case EOL:
			// Stray terminator
			r.pending = r.pending[1:]
			continue

		case RespStatus:
			// Counter may itself be '\n', so the length is fixed
			if len(r.pending) < StatusFrameLen {
				return Frame{}, false
			}
			f := Frame{Kind: tag, Counter: r.pending[1]}
			r.pending = r.pending[StatusFrameLen:]
			return f, true

		case RespPosition:
			if len(r.pending) < PositionFrameLen {
				return Frame{}, false
			}
			f := Frame{Kind: tag, Position: Int32(r.pending[1:5])}
			r.pending = r.pending[PositionFrameLen:]
			return f, true
		}

		end := -1
		for i, b := range r.pending {
			if b == EOL {
				end = i
				break
			}
		}
		if end < 0 {
			return Frame{}, false
		}
		f := Frame{Kind: tag}
		if tag == RespComment {
			f.Text = string(r.pending[1:end])
		}
		r.pending = r.pending[end+1:]
		return f, true
	}
	return Frame{}, false
}

// Pending returns the number of unparsed bytes
func (r *FrameReader) Pending() int {
	return len(r.pending)
}
