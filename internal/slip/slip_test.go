package slip

import (
	"bytes"
	"testing"
)

func TestEncodeSimple(t *testing.T) {
	got := Encode([]byte{0x01, 0x02, 0x03})
	want := []byte{END, 0x01, 0x02, 0x03, END}
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode() = % X, want % X", got, want)
	}
}

func TestEncodeWithEscaping(t *testing.T) {
	got := Encode([]byte{0x01, 0xC0, 0x03, 0xDB, 0x05})
	want := []byte{0xC0, 0x01, 0xDB, 0xDC, 0x03, 0xDB, 0xDD, 0x05, 0xC0}
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode() = % X, want % X", got, want)
	}
}

func feedAll(t *testing.T, d *Decoder, data []byte) [][]byte {
	t.Helper()
	var frames [][]byte
	for _, b := range data {
		frame, err := d.Feed(b)
		if err != nil {
			t.Fatalf("Feed(0x%02X) returned error: %v", b, err)
		}
		if frame != nil {
			cp := append([]byte(nil), frame...)
			frames = append(frames, cp)
		}
	}
	return frames
}

func TestDecodeSimple(t *testing.T) {
	d := NewDecoder()
	frames := feedAll(t, d, []byte{END, 0x01, 0x02, 0x03, END})
	if len(frames) != 1 || !bytes.Equal(frames[0], []byte{0x01, 0x02, 0x03}) {
		t.Fatalf("unexpected frames: %v", frames)
	}
}

func TestDecodeWithEscaping(t *testing.T) {
	d := NewDecoder()
	input := []byte{END, 0x01, ESC, ESCEND, 0x03, ESC, ESCESC, 0x05, END}
	frames := feedAll(t, d, input)
	want := []byte{0x01, END, 0x03, ESC, 0x05}
	if len(frames) != 1 || !bytes.Equal(frames[0], want) {
		t.Fatalf("unexpected frames: %v", frames)
	}
}

func TestRoundTrip(t *testing.T) {
	original := []byte{0x01, END, 0x03, ESC, 0x05, 0x42}
	encoded := Encode(original)

	d := NewDecoder()
	frames := feedAll(t, d, encoded)
	if len(frames) != 1 || !bytes.Equal(frames[0], original) {
		t.Fatalf("round trip failed: got %v, want %v", frames, original)
	}
}

func TestBackToBackEndIsHeartbeat(t *testing.T) {
	d := NewDecoder()
	frames := feedAll(t, d, []byte{END, END, 0x01, 0x02, END})
	if len(frames) != 1 || !bytes.Equal(frames[0], []byte{0x01, 0x02}) {
		t.Fatalf("unexpected frames: %v", frames)
	}
}

func TestInvalidEscapeResetsDecoder(t *testing.T) {
	d := NewDecoder()
	// ESC followed by a byte that is neither ESC_END, ESC_ESC nor CLEAR.
	_, err := d.Feed(END)
	if err != nil {
		t.Fatal(err)
	}
	_, err = d.Feed(0x01)
	if err != nil {
		t.Fatal(err)
	}
	_, err = d.Feed(ESC)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.Feed(0x99); err == nil {
		t.Fatal("expected error for invalid escape sequence")
	}
	// Decoder must be ready to accept a fresh frame immediately after.
	frames := feedAll(t, d, []byte{END, 0x07, END})
	if len(frames) != 1 || !bytes.Equal(frames[0], []byte{0x07}) {
		t.Fatalf("decoder did not resync after error: %v", frames)
	}
}

func TestClearAbortsFrame(t *testing.T) {
	d := NewDecoder()
	feedAll(t, d, []byte{END, 0x01, 0x02, ESC, ESCCLEAR})
	frames := feedAll(t, d, []byte{END, 0x09, END})
	if len(frames) != 1 || !bytes.Equal(frames[0], []byte{0x09}) {
		t.Fatalf("CLEAR did not abort in-flight frame: %v", frames)
	}
}

func TestClearResyncsToReceivingNotIdle(t *testing.T) {
	d := NewDecoder()
	// Abort an in-flight frame with CLEAR, then feed payload bytes with no
	// leading END. Under Receiving semantics these bytes accumulate into the
	// next frame; under Idle semantics they would be silently dropped until
	// a fresh END arrived.
	feedAll(t, d, []byte{END, 0x01, 0x02, ESC, ESCCLEAR})
	frames := feedAll(t, d, []byte{0x0A, 0x0B, END})
	if len(frames) != 1 || !bytes.Equal(frames[0], []byte{0x0A, 0x0B}) {
		t.Fatalf("CLEAR did not resync decoder to Receiving: %v", frames)
	}
}

func TestOversizeFrameRejected(t *testing.T) {
	d := NewDecoder()
	if _, err := d.Feed(END); err != nil {
		t.Fatal(err)
	}
	var lastErr error
	for i := 0; i < MaxFrameLen+1; i++ {
		_, err := d.Feed(byte(i % 0xC0))
		if err != nil {
			lastErr = err
			break
		}
	}
	if lastErr == nil {
		t.Fatal("expected oversize frame to be rejected")
	}
}

func TestCRC8KnownVector(t *testing.T) {
	got := CRC8([]byte{0x01, 0x02, 0x03})
	if got != 0x48 {
		t.Fatalf("CRC8() = 0x%02X, want 0x48", got)
	}
}

func TestCRC8SelfCheck(t *testing.T) {
	for _, payload := range [][]byte{
		{},
		{0x00},
		{0x01, 0x02, 0x03},
		{0xFF, 0xFF, 0xFF, 0xFF},
	} {
		crc := CRC8(payload)
		checked := append(append([]byte(nil), payload...), crc)
		if CRC8(checked) != 0 {
			t.Fatalf("CRC8(payload ++ CRC8(payload)) != 0 for %v", payload)
		}
	}
}

func TestEscapeCompletenessNoInteriorEnd(t *testing.T) {
	data := []byte{0x01, END, END, ESC, 0x03, 0xFF, 0x00}
	encoded := Encode(data)
	for i, b := range encoded {
		if b == END && i != 0 && i != len(encoded)-1 {
			t.Fatalf("END byte found at interior position %d", i)
		}
	}
}
