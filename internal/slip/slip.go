// Package slip implements the byte-stuffing frame codec used on the serial
// link: a resumable decoder fed one byte at a time, plus a one-shot encoder.
package slip

import "fmt"

// Sentinel and escape octets, as used by the classic Serial Line Internet
// Protocol. CLEAR is a non-standard extension: an ESC immediately followed
// by CLEAR aborts whatever frame is in progress and resyncs the decoder.
const (
	END      byte = 0xC0
	ESC      byte = 0xDB
	ESCEND   byte = 0xDC
	ESCESC   byte = 0xDD
	ESCCLEAR byte = 0xDE
)

// MaxFrameLen bounds the accumulated payload of a single frame. Frames that
// would grow past this are rejected and the decoder is reset, so malformed
// or noisy input can never cause unbounded memory growth.
const MaxFrameLen = 1024

// Encode wraps data in a SLIP frame: a leading END, the payload with END and
// ESC bytes escaped, and a trailing END.
func Encode(data []byte) []byte {
	out := make([]byte, 0, len(data)+2)
	out = append(out, END)
	for _, b := range data {
		switch b {
		case END:
			out = append(out, ESC, ESCEND)
		case ESC:
			out = append(out, ESC, ESCESC)
		default:
			out = append(out, b)
		}
	}
	out = append(out, END)
	return out
}

// state is the decoder's internal position in a frame.
type state int

const (
	stateIdle state = iota
	stateReceiving
	stateEscaped
)

// Decoder is a resumable, byte-at-a-time SLIP frame decoder. It is not safe
// for concurrent use; callers that need serialized access should hold their
// own lock around Feed (the link package's transact does this as part of
// holding the port lock for the duration of a transaction).
type Decoder struct {
	state state
	buf   []byte
}

// NewDecoder returns a Decoder ready to receive its first frame.
func NewDecoder() *Decoder {
	return &Decoder{state: stateIdle, buf: make([]byte, 0, 256)}
}

// Reset returns the decoder to Idle and discards any partial frame. It is
// always safe to call, including after an error.
func (d *Decoder) Reset() {
	d.state = stateIdle
	d.buf = d.buf[:0]
}

// Feed processes a single byte. It returns a non-nil frame once a complete
// frame has been decoded (the returned slice is only valid until the next
// call to Feed — callers that need to retain it should copy). An error
// indicates a malformed escape sequence or an oversize frame; in both cases
// the decoder has already reset itself and is ready for the next frame.
func (d *Decoder) Feed(b byte) ([]byte, error) {
	switch d.state {
	case stateIdle:
		switch b {
		case END:
			d.state = stateReceiving
			d.buf = d.buf[:0]
		case ESC:
			// Defensive: tolerates noise that begins with a stray ESC,
			// allowing a CLEAR sequence to resync the decoder.
			d.state = stateEscaped
		}
		return nil, nil

	case stateReceiving:
		switch b {
		case END:
			if len(d.buf) == 0 {
				// Back-to-back END bytes are a keepalive, not a frame.
				return nil, nil
			}
			frame := d.buf
			d.Reset()
			return frame, nil
		case ESC:
			d.state = stateEscaped
			return nil, nil
		default:
			if len(d.buf) >= MaxFrameLen {
				d.Reset()
				return nil, fmt.Errorf("slip: frame exceeds %d bytes", MaxFrameLen)
			}
			d.buf = append(d.buf, b)
			return nil, nil
		}

	case stateEscaped:
		switch b {
		case ESCCLEAR:
			// Discards the in-flight frame but stays ready to receive the
			// next one, rather than waiting for a fresh leading END.
			d.buf = d.buf[:0]
			d.state = stateReceiving
			return nil, nil
		case ESCEND:
			if len(d.buf) >= MaxFrameLen {
				d.Reset()
				return nil, fmt.Errorf("slip: frame exceeds %d bytes", MaxFrameLen)
			}
			d.buf = append(d.buf, END)
			d.state = stateReceiving
			return nil, nil
		case ESCESC:
			if len(d.buf) >= MaxFrameLen {
				d.Reset()
				return nil, fmt.Errorf("slip: frame exceeds %d bytes", MaxFrameLen)
			}
			d.buf = append(d.buf, ESC)
			d.state = stateReceiving
			return nil, nil
		default:
			d.Reset()
			return nil, fmt.Errorf("slip: invalid escape sequence 0x%02X", b)
		}
	}

	// Unreachable: state is one of the three values above.
	return nil, nil
}
