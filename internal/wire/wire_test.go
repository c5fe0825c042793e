package wire

import "testing"

func TestDecodeReturnVoid(t *testing.T) {
	got, err := DecodeReturn(nil, TypeI32)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Command executed successfully" {
		t.Fatalf("got %q", got)
	}
}

func TestDecodeReturnI32(t *testing.T) {
	// getPosition()->i32 returning 1000 as little-endian bytes.
	got, err := DecodeReturn([]byte{0xE8, 0x03, 0x00, 0x00}, TypeI32)
	if err != nil {
		t.Fatal(err)
	}
	if got != "1000" {
		t.Fatalf("got %q, want 1000", got)
	}
}

func TestDecodeReturnCStr(t *testing.T) {
	got, err := DecodeReturn([]byte("hello\x00"), TypeCStr)
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	e := NewEncoder()
	e.WriteI16(150)
	want := []byte{0x96, 0x00}
	if string(e.Bytes()) != string(want) {
		t.Fatalf("encoded i16(150) = % X, want % X", e.Bytes(), want)
	}

	d := NewDecoder(e.Bytes())
	got, err := d.ReadI16()
	if err != nil {
		t.Fatal(err)
	}
	if got != 150 {
		t.Fatalf("got %d, want 150", got)
	}
}

func TestWriteCStrNullTerminates(t *testing.T) {
	e := NewEncoder()
	e.WriteCStr("hi")
	if string(e.Bytes()) != "hi\x00" {
		t.Fatalf("got %q", e.Bytes())
	}
}
