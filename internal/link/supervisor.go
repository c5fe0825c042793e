// Package link owns the serial device lifecycle state machine and the
// single-in-flight command/response transactor built on top of it.
package link

import (
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"github.com/librescoot/arduino-mcp-adapter/internal/slip"
)

const (
	tickInterval     = 5 * time.Second
	bootDelay        = 3 * time.Second
	perReadTimeout   = 1 * time.Second
	aggregateTimeout = 10 * time.Second
	maxReadChunk     = 256

	identityTag byte = 0x00
)

// Supervisor owns exactly one serial endpoint and drives it through
// Disconnected -> Connecting -> Connected -> Initializing -> Ready, with
// Error reachable (and retried) from any state. All link transactions are
// serialized through portMu, which is held for the full duration of a
// transaction (write, flush, read-until-frame) so that concurrent callers
// can never interleave frames on the wire.
type Supervisor struct {
	path string
	baud int
	log  *log.Logger

	state atomic.Pointer[State]

	portMu sync.Mutex
	port   serial.Port

	stopCh chan struct{}
	wg     sync.WaitGroup

	onTransition func(State)
}

// New returns a Supervisor for the serial device at path, starting in the
// Disconnected state. onTransition, if non-nil, is invoked (outside any
// lock) after every state change, letting callers publish telemetry.
func New(path string, baud int, logger *log.Logger, onTransition func(State)) *Supervisor {
	if logger == nil {
		logger = log.New(os.Stderr, "[link] ", log.LstdFlags|log.Lmicroseconds)
	}
	s := &Supervisor{
		path:         path,
		baud:         baud,
		log:          logger,
		stopCh:       make(chan struct{}),
		onTransition: onTransition,
	}
	s.setState(State{Phase: PhaseDisconnected})
	return s
}

// State returns a snapshot of the current connection state. Safe for
// concurrent use; never blocks on portMu.
func (s *Supervisor) State() State {
	return *s.state.Load()
}

func (s *Supervisor) setState(next State) {
	s.state.Store(&next)
	s.log.Printf("state -> %s", next.Phase)
	if s.onTransition != nil {
		s.onTransition(next)
	}
}

// Start launches the background tick goroutine that polls for device
// presence and drives the state machine every 5 seconds.
func (s *Supervisor) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop halts the tick goroutine and closes the serial port, if open.
func (s *Supervisor) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	s.portMu.Lock()
	defer s.portMu.Unlock()
	if s.port != nil {
		_ = s.port.Close()
		s.port = nil
	}
}

// tick implements the supervisor tick algorithm of spec.md §4.3: stat the
// device path, reconcile state, and probe liveness with a zero-length
// write if a port is currently open.
func (s *Supervisor) tick() {
	_, err := os.Stat(s.path)
	nodePresent := err == nil

	current := s.State()

	if !nodePresent {
		if current.Phase != PhaseDisconnected {
			s.log.Printf("device node %s vanished", s.path)
			s.closePort()
			s.setState(State{Phase: PhaseDisconnected})
		}
		return
	}

	switch current.Phase {
	case PhaseDisconnected, PhaseError:
		s.setState(State{Phase: PhaseConnecting})
		s.connectAndInitialize()
	default:
		if s.probeLiveness() {
			return
		}
		s.log.Printf("liveness probe failed, marking disconnected")
		s.closePort()
		s.setState(State{Phase: PhaseDisconnected})
	}
}

// probeLiveness issues a zero-length write as a cheap check that the port
// handle is still valid.
func (s *Supervisor) probeLiveness() bool {
	s.portMu.Lock()
	defer s.portMu.Unlock()
	if s.port == nil {
		return false
	}
	_, err := s.port.Write(nil)
	return err == nil
}

func (s *Supervisor) closePort() {
	s.portMu.Lock()
	defer s.portMu.Unlock()
	if s.port != nil {
		_ = s.port.Close()
		s.port = nil
	}
}

// connectAndInitialize opens the serial port, waits out the MCU's boot
// delay, and issues the tag-0 identity query, transitioning through
// Connected -> Initializing -> Ready(identity) or Error on any failure.
func (s *Supervisor) connectAndInitialize() {
	mode := &serial.Mode{BaudRate: s.baud}
	port, err := serial.Open(s.path, mode)
	if err != nil {
		s.setState(State{Phase: PhaseError, Message: describeOpenError(err)})
		return
	}
	if err := port.SetReadTimeout(perReadTimeout); err != nil {
		_ = port.Close()
		s.setState(State{Phase: PhaseError, Message: fmt.Sprintf("failed to configure read timeout: %v", err)})
		return
	}

	s.portMu.Lock()
	s.port = port
	s.portMu.Unlock()

	s.setState(State{Phase: PhaseConnected})
	s.setState(State{Phase: PhaseInitializing})

	s.log.Printf("waiting %s for device boot", bootDelay)
	time.Sleep(bootDelay)

	payload, err := s.transact(identityTag, nil)
	if err != nil {
		s.closePort()
		s.setState(State{Phase: PhaseError, Message: fmt.Sprintf("failed to get device identity: %v", err)})
		return
	}

	identity := decodeCString(payload)
	s.setState(State{Phase: PhaseReady, DeviceID: identity})
}

func describeOpenError(err error) string {
	if portErr, ok := err.(*serial.PortError); ok {
		switch portErr.Code() {
		case serial.PortNotFound:
			return "device not found"
		case serial.InvalidSerialPort:
			return "invalid device path"
		case serial.PermissionDenied:
			return "permission denied opening device"
		}
	}
	return fmt.Sprintf("failed to open serial port: %v", err)
}

func decodeCString(data []byte) string {
	for i, b := range data {
		if b == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}
