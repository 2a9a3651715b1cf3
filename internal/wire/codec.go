package wire

import (
	"encoding/binary"
	"math"
)

// ReadValue decodes a single scalar element of base type t from buf at
// offset off, matching IEEE 754 binary32/binary64 and two's-complement
// little-endian integers (§4.5). Callers are responsible for bounds
// checking; ReadValue never advances past off+t.Size().
func ReadValue(buf []byte, off int, t BaseType) any {
	b := buf[off : off+t.Size()]
	switch t {
	case Int8:
		return int8(b[0])
	case Uint8:
		return b[0]
	case Int16:
		return int16(binary.LittleEndian.Uint16(b))
	case Uint16:
		return binary.LittleEndian.Uint16(b)
	case Int32:
		return int32(binary.LittleEndian.Uint32(b))
	case Uint32:
		return binary.LittleEndian.Uint32(b)
	case Int64:
		return int64(binary.LittleEndian.Uint64(b))
	case Uint64:
		return binary.LittleEndian.Uint64(b)
	case Char:
		return b[0]
	case Float:
		return math.Float32frombits(binary.LittleEndian.Uint32(b))
	case Double:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	default:
		panic("wire: unreachable base type")
	}
}

// WriteValue encodes a single scalar element of base type t into buf
// at offset off. v must already be the Go type ReadValue would have
// produced for t (numericValue widens common numeric kinds for
// builder convenience — see numericValue below).
func WriteValue(buf []byte, off int, t BaseType, v any) {
	b := buf[off : off+t.Size()]
	switch t {
	case Int8:
		b[0] = byte(int8(numericValue(v)))
	case Uint8, Char:
		b[0] = byte(numericValue(v))
	case Int16:
		binary.LittleEndian.PutUint16(b, uint16(int16(numericValue(v))))
	case Uint16:
		binary.LittleEndian.PutUint16(b, uint16(numericValue(v)))
	case Int32:
		binary.LittleEndian.PutUint32(b, uint32(int32(numericValue(v))))
	case Uint32:
		binary.LittleEndian.PutUint32(b, uint32(numericValue(v)))
	case Int64:
		binary.LittleEndian.PutUint64(b, uint64(int64(numericValue(v))))
	case Uint64:
		binary.LittleEndian.PutUint64(b, uint64(numericValue(v)))
	case Float:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(floatValue(v))))
	case Double:
		binary.LittleEndian.PutUint64(b, math.Float64bits(floatValue(v)))
	default:
		panic("wire: unreachable base type")
	}
}

// numericValue widens the common Go integer kinds a caller might
// plausibly hand a builder (int, int64, uint64, byte, ...) to int64.
func numericValue(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case int64:
		return n
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	default:
		panic("wire: value is not a numeric type")
	}
}

// floatValue widens float32/float64 (and, leniently, integers) to float64.
func floatValue(v any) float64 {
	switch n := v.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		return float64(numericValue(v))
	}
}

// TrimCharArray locates the last non-zero byte and returns the
// preceding bytes (inclusive) decoded as a string (§4.5). An
// all-zero (or empty) input yields the empty string.
func TrimCharArray(b []byte) string {
	last := -1
	for i, c := range b {
		if c != 0x00 {
			last = i
		}
	}
	if last < 0 {
		return ""
	}
	return string(b[:last+1])
}
