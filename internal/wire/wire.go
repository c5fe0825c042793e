// Package wire implements the length-free, manifest-driven argument and
// return-value codec used inside a command/response frame payload.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ParamType is one of the closed set of types a manifest parameter or
// function return value may declare.
type ParamType string

const (
	TypeI16  ParamType = "i16"
	TypeI32  ParamType = "i32"
	TypeCStr ParamType = "CStr"
	TypeBool ParamType = "bool"
	TypeF32  ParamType = "f32"
	TypeF64  ParamType = "f64"
)

// Encoder appends typed fields to a growing byte buffer in manifest-declared
// parameter order. There is no length prefix: the receiver demultiplexes
// purely by position and declared type.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) WriteI16(v int16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(v))
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) WriteI32(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) WriteF32(v float32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) WriteF64(v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	e.buf = append(e.buf, b[:]...)
}

func (e *Encoder) WriteBool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

// WriteCStr appends the UTF-8 bytes of s followed by a single zero
// terminator. Unrecognized parameter types are conservatively encoded this
// way by the caller (the manifest layer treats them as strings).
func (e *Encoder) WriteCStr(s string) {
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, 0)
}

// Bytes returns the accumulated argument bytes.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Decoder reads typed fields sequentially out of a response payload.
type Decoder struct {
	data []byte
	pos  int
}

// NewDecoder wraps data (the payload with its trailing CRC byte already
// stripped) for sequential typed reads.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

func (d *Decoder) ReadI16() (int16, error) {
	if d.pos+2 > len(d.data) {
		return 0, fmt.Errorf("wire: not enough data for i16")
	}
	v := int16(binary.LittleEndian.Uint16(d.data[d.pos : d.pos+2]))
	d.pos += 2
	return v, nil
}

func (d *Decoder) ReadI32() (int32, error) {
	if d.pos+4 > len(d.data) {
		return 0, fmt.Errorf("wire: not enough data for i32")
	}
	v := int32(binary.LittleEndian.Uint32(d.data[d.pos : d.pos+4]))
	d.pos += 4
	return v, nil
}

func (d *Decoder) ReadF32() (float32, error) {
	if d.pos+4 > len(d.data) {
		return 0, fmt.Errorf("wire: not enough data for f32")
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(d.data[d.pos : d.pos+4]))
	d.pos += 4
	return v, nil
}

func (d *Decoder) ReadF64() (float64, error) {
	if d.pos+8 > len(d.data) {
		return 0, fmt.Errorf("wire: not enough data for f64")
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(d.data[d.pos : d.pos+8]))
	d.pos += 8
	return v, nil
}

func (d *Decoder) ReadBool() (bool, error) {
	if d.pos+1 > len(d.data) {
		return false, fmt.Errorf("wire: not enough data for bool")
	}
	v := d.data[d.pos] != 0
	d.pos++
	return v, nil
}

// ReadCStr reads until a zero byte or end-of-buffer, whichever comes first.
func (d *Decoder) ReadCStr() (string, error) {
	remaining := d.data[d.pos:]
	end := len(remaining)
	for i, b := range remaining {
		if b == 0 {
			end = i
			break
		}
	}
	s := string(remaining[:end])
	d.pos += end
	if d.pos < len(d.data) && d.data[d.pos] == 0 {
		d.pos++
	}
	return s, nil
}

// DecodeReturn decodes data (CRC already stripped) as returnType, producing
// the text representation returned to the MCP caller. An empty payload
// always denotes a successful void call, regardless of returnType.
func DecodeReturn(data []byte, returnType ParamType) (string, error) {
	if len(data) == 0 {
		return "Command executed successfully", nil
	}

	d := NewDecoder(data)
	switch returnType {
	case TypeI16:
		v, err := d.ReadI16()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", v), nil
	case TypeI32:
		v, err := d.ReadI32()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d", v), nil
	case TypeF32:
		v, err := d.ReadF32()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%g", v), nil
	case TypeF64:
		v, err := d.ReadF64()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%g", v), nil
	case TypeBool:
		v, err := d.ReadBool()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%t", v), nil
	case TypeCStr:
		return d.ReadCStr()
	default:
		// Unknown return type: conservatively treated as a string.
		return d.ReadCStr()
	}
}
