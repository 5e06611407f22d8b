// internal/element/codec.go
package element

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Encode renders v as wire bytes.
//
// Registers are big-endian internally; for multi-word numbers the word sequence
// follows order. Bool encodes as one packed coil byte (bit 0). Str is padded with
// NUL up to length words and truncated beyond it.
func Encode(t Type, order WordOrder, length int, v Value) ([]byte, error) {
	var out []byte

	switch t {
	case U16, I16:
		out = make([]byte, 2)
		binary.BigEndian.PutUint16(out, uint16(v.Int))
	case U32, I32:
		out = make([]byte, 4)
		binary.BigEndian.PutUint32(out, uint32(v.Int))
	case F32:
		out = make([]byte, 4)
		binary.BigEndian.PutUint32(out, math.Float32bits(float32(v.Float)))
	case U64, I64:
		out = make([]byte, 8)
		binary.BigEndian.PutUint64(out, uint64(v.Int))
	case F64:
		out = make([]byte, 8)
		binary.BigEndian.PutUint64(out, math.Float64bits(v.Float))
	case Bool:
		if v.Bool {
			return []byte{0x01}, nil
		}
		return []byte{0x00}, nil
	case Str:
		if length <= 0 {
			return nil, fmt.Errorf("element: string length %d must be > 0", length)
		}
		out = make([]byte, 2*length)
		copy(out, v.Text)
		return out, nil
	default:
		return nil, fmt.Errorf("element: unknown type %d", t)
	}

	if order == LowWordFirst {
		swapWords(out)
	}
	return out, nil
}

// Decode parses wire bytes produced by a read of t.
// Str drops trailing NUL padding; everything else is kept verbatim.
func Decode(t Type, order WordOrder, data []byte) (Value, error) {
	if t == Bool {
		if len(data) < 1 {
			return Value{}, fmt.Errorf("element: coil payload empty")
		}
		return Value{Bool: data[0]&0x01 != 0}, nil
	}
	if t == Str {
		if len(data)%2 != 0 {
			return Value{}, fmt.Errorf("element: string payload of %d bytes is not whole registers", len(data))
		}
		return Value{Text: string(bytes.TrimRight(data, "\x00"))}, nil
	}
	if !t.Valid() {
		return Value{}, fmt.Errorf("element: unknown type %d", t)
	}

	want := 2 * t.Words(0)
	if len(data) != want {
		return Value{}, fmt.Errorf("element: %s needs %d bytes, got %d", t, want, len(data))
	}

	b := data
	if order == LowWordFirst && want > 2 {
		b = append([]byte(nil), data...)
		swapWords(b)
	}

	switch t {
	case U16:
		return Value{Int: int64(binary.BigEndian.Uint16(b))}, nil
	case I16:
		return Value{Int: int64(int16(binary.BigEndian.Uint16(b)))}, nil
	case U32:
		return Value{Int: int64(binary.BigEndian.Uint32(b))}, nil
	case I32:
		return Value{Int: int64(int32(binary.BigEndian.Uint32(b)))}, nil
	case F32:
		return Value{Float: float64(math.Float32frombits(binary.BigEndian.Uint32(b)))}, nil
	case U64, I64:
		return Value{Int: int64(binary.BigEndian.Uint64(b))}, nil
	default: // F64
		return Value{Float: math.Float64frombits(binary.BigEndian.Uint64(b))}, nil
	}
}

// swapWords reverses the register sequence in place, keeping byte order inside each register.
func swapWords(b []byte) {
	n := len(b) / 2
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		b[2*i], b[2*j] = b[2*j], b[2*i]
		b[2*i+1], b[2*j+1] = b[2*j+1], b[2*i+1]
	}
}
