package gatt

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ValueKind tells how a Value was supplied.
type ValueKind int

const (
	KindEmpty ValueKind = iota
	KindBytes
	KindText
	KindScalar
)

func (k ValueKind) String() string {
	switch k {
	case KindBytes:
		return "bytes"
	case KindText:
		return "text"
	case KindScalar:
		return "scalar"
	default:
		return "empty"
	}
}

// Value is an attribute value: raw bytes, UTF-8 text or a native scalar.
// The zero Value is empty.
type Value struct {
	kind   ValueKind
	data   []byte
	scalar any
}

// EncodeValue converts v to a Value.
//
// []byte is copied, string is kept as UTF-8 text, bool and numeric scalars are kept
// native. Nil, aggregates and any other type fail with InvalidValueKind.
func EncodeValue(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		return x, nil
	case []byte:
		return Value{kind: KindBytes, data: append([]byte{}, x...)}, nil
	case string:
		return Value{kind: KindText, data: []byte(x)}, nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return Value{kind: KindScalar, scalar: x}, nil
	case nil:
		return Value{}, &Error{Kind: InvalidValueKind, Msg: "nil value"}
	default:
		return Value{}, &Error{Kind: InvalidValueKind, Msg: fmt.Sprintf("unsupported value type %T", v)}
	}
}

// Kind returns how the value was supplied.
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsEmpty reports whether no value was supplied.
func (v Value) IsEmpty() bool {
	return v.kind == KindEmpty
}

// Native returns the value in the form it was supplied: []byte, string or the scalar.
// Returns nil for an empty value.
func (v Value) Native() any {
	switch v.kind {
	case KindBytes:
		return append([]byte{}, v.data...)
	case KindText:
		return string(v.data)
	case KindScalar:
		return v.scalar
	default:
		return nil
	}
}

// Bytes renders the platform byte form of the value.
// Integers are little-endian at their natural width, floats IEEE-754 little-endian,
// bool a single 0/1 byte. The returned slice is a copy.
func (v Value) Bytes() []byte {
	switch v.kind {
	case KindBytes, KindText:
		return append([]byte{}, v.data...)
	case KindScalar:
		return scalarBytes(v.scalar)
	default:
		return []byte{}
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindText:
		return string(v.data)
	case KindBytes:
		return fmt.Sprintf("%X", v.data)
	case KindScalar:
		return fmt.Sprint(v.scalar)
	default:
		return ""
	}
}

func scalarBytes(s any) []byte {
	switch x := s.(type) {
	case bool:
		if x {
			return []byte{1}
		}
		return []byte{0}
	case int8:
		return []byte{byte(x)}
	case uint8:
		return []byte{x}
	case int16:
		return binary.LittleEndian.AppendUint16(nil, uint16(x))
	case uint16:
		return binary.LittleEndian.AppendUint16(nil, x)
	case int32:
		return binary.LittleEndian.AppendUint32(nil, uint32(x))
	case uint32:
		return binary.LittleEndian.AppendUint32(nil, x)
	case int:
		return binary.LittleEndian.AppendUint64(nil, uint64(x))
	case int64:
		return binary.LittleEndian.AppendUint64(nil, uint64(x))
	case uint:
		return binary.LittleEndian.AppendUint64(nil, uint64(x))
	case uint64:
		return binary.LittleEndian.AppendUint64(nil, x)
	case float32:
		return binary.LittleEndian.AppendUint32(nil, math.Float32bits(x))
	case float64:
		return binary.LittleEndian.AppendUint64(nil, math.Float64bits(x))
	default:
		return []byte{}
	}
}
