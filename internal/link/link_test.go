package link

import (
	"testing"

	"github.com/librescoot/arduino-mcp-adapter/internal/slip"
)

func frameFor(payload []byte) []byte {
	data := append(append([]byte{}, payload...), slip.CRC8(payload))
	return data
}

func TestDecodeFrameVoidSuccess(t *testing.T) {
	payload, err := decodeFrame(frameFor(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payload) != 0 {
		t.Fatalf("expected empty payload, got %v", payload)
	}
}

func TestDecodeFrameEmptyIsError(t *testing.T) {
	if _, err := decodeFrame(nil); err == nil {
		t.Fatal("expected error for empty frame")
	}
}

func TestDecodeFrameBadCRC(t *testing.T) {
	frame := frameFor([]byte{0x01, 0x02})
	frame[len(frame)-1] ^= 0xFF
	if _, err := decodeFrame(frame); err == nil {
		t.Fatal("expected CRC mismatch to be rejected")
	}
}

func TestDecodeFrameDeviceError(t *testing.T) {
	frame := frameFor([]byte{0xFF, 0x02})
	payload, err := decodeFrame(frame)
	if payload != nil {
		t.Fatalf("expected nil payload on device error, got %v", payload)
	}
	devErr, ok := err.(*DeviceError)
	if !ok {
		t.Fatalf("expected *DeviceError, got %T: %v", err, err)
	}
	if devErr.Code != 0x02 {
		t.Fatalf("unexpected code: %v", devErr.Code)
	}
}

func TestDecodeFramePayload(t *testing.T) {
	payload, err := decodeFrame(frameFor([]byte{0xE8, 0x03, 0x00, 0x00}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payload) != 4 || payload[0] != 0xE8 {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestStateIsReady(t *testing.T) {
	ready := State{Phase: PhaseReady, DeviceID: "rover-1"}
	if !ready.IsReady() {
		t.Fatal("expected ready state to report IsReady")
	}
	disconnected := State{Phase: PhaseDisconnected}
	if disconnected.IsReady() {
		t.Fatal("disconnected state must not report IsReady")
	}
}

func TestStateErrorMessage(t *testing.T) {
	s := State{Phase: PhaseError, Message: "boom"}
	if got := s.ErrorMessage(); got != "device error: boom" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestNewSupervisorStartsDisconnected(t *testing.T) {
	sup := New("/dev/null-not-a-real-port", 115200, nil, nil)
	if sup.State().Phase != PhaseDisconnected {
		t.Fatalf("expected initial phase Disconnected, got %v", sup.State().Phase)
	}
}
