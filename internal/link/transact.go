package link

import (
	"errors"
	"fmt"
	"time"

	"github.com/librescoot/arduino-mcp-adapter/internal/slip"
)

// DeviceError is returned when the device itself reports a protocol
// failure (CRC mismatch or unknown tag) rather than simply failing to
// respond.
type DeviceError struct {
	Code byte
}

func (e *DeviceError) Error() string {
	switch e.Code {
	case 0x01:
		return "device reported CRC mismatch"
	case 0x02:
		return "device reported unknown command tag"
	default:
		return fmt.Sprintf("device reported error code 0x%02x", e.Code)
	}
}

const (
	deviceErrorTag byte = 0xFF
)

// Transact performs exactly one SLIP request/response exchange: it holds
// portMu for the whole operation, so no other caller's frame can ever be
// interleaved with this one on the wire. Any failure other than a
// device-reported DeviceError closes the port and moves the supervisor to
// Error, so later calls fail fast until the next tick reconnects.
func (s *Supervisor) Transact(tag byte, args []byte) ([]byte, error) {
	payload, err := s.transact(tag, args)
	var devErr *DeviceError
	if err != nil && !errors.As(err, &devErr) {
		s.closePort()
		s.setState(State{Phase: PhaseError, Message: err.Error()})
	}
	return payload, err
}

func (s *Supervisor) transact(tag byte, args []byte) ([]byte, error) {
	s.portMu.Lock()
	defer s.portMu.Unlock()

	if s.port == nil {
		return nil, errors.New("link: serial port not open")
	}

	command := make([]byte, 0, len(args)+2)
	command = append(command, tag)
	command = append(command, args...)
	command = append(command, slip.CRC8(command))

	frame := slip.Encode(command)
	if _, err := s.port.Write(frame); err != nil {
		return nil, fmt.Errorf("link: writing command: %w", err)
	}
	if err := s.port.Drain(); err != nil {
		return nil, fmt.Errorf("link: flushing command: %w", err)
	}

	payload, err := s.readResponse()
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// readResponse reads bytes off the already-locked port, feeding them
// through a SLIP decoder until a complete frame arrives, a device-side
// error frame is recognized, or the aggregate deadline expires. Each
// individual read is bounded by the port's configured per-read timeout
// (go.bug.st/serial returns zero bytes, no error, on a read timeout,
// rather than failing outright), so a silent device is retried until the
// aggregate deadline, not treated as an immediate failure.
func (s *Supervisor) readResponse() ([]byte, error) {
	deadline := time.Now().Add(aggregateTimeout)
	decoder := slip.NewDecoder()
	buf := make([]byte, maxReadChunk)

	for time.Now().Before(deadline) {
		n, err := s.port.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("link: reading response: %w", err)
		}
		for i := 0; i < n; i++ {
			frame, ferr := decoder.Feed(buf[i])
			if ferr != nil {
				decoder.Reset()
				return nil, fmt.Errorf("link: decoding response: %w", ferr)
			}
			if frame == nil {
				continue
			}
			return decodeFrame(frame)
		}
	}
	return nil, errors.New("link: timed out waiting for device response")
}

// decodeFrame validates the trailing CRC-8 byte, strips it, and
// distinguishes a void-success frame (payload length zero after
// stripping) from a protocol error (an empty frame, without even a CRC
// byte) and a device-reported error frame.
func decodeFrame(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, errors.New("link: received empty frame")
	}
	if slip.CRC8(frame) != 0 {
		return nil, errors.New("link: response failed CRC-8 check")
	}

	payload := frame[:len(frame)-1]
	if len(payload) >= 2 && payload[0] == deviceErrorTag {
		return nil, &DeviceError{Code: payload[1]}
	}
	return payload, nil
}
