package gatt_test

import (
	"testing"

	"github.com/srg/blimp/internal/gatt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeValue(t *testing.T) {
	tests := []struct {
		name      string
		input     any
		kind      gatt.ValueKind
		native    any
		wireBytes []byte
	}{
		{"bytes", []byte{0x01, 0x02}, gatt.KindBytes, []byte{0x01, 0x02}, []byte{0x01, 0x02}},
		{"empty bytes", []byte{}, gatt.KindBytes, []byte{}, []byte{}},
		{"text", "hello", gatt.KindText, "hello", []byte("hello")},
		{"empty text", "", gatt.KindText, "", []byte{}},
		{"bool", true, gatt.KindScalar, true, []byte{1}},
		{"uint8", uint8(80), gatt.KindScalar, uint8(80), []byte{80}},
		{"int16", int16(-2), gatt.KindScalar, int16(-2), []byte{0xFE, 0xFF}},
		{"uint32", uint32(0x01020304), gatt.KindScalar, uint32(0x01020304), []byte{0x04, 0x03, 0x02, 0x01}},
		{"int64", int64(1), gatt.KindScalar, int64(1), []byte{1, 0, 0, 0, 0, 0, 0, 0}},
		{"float32", float32(1), gatt.KindScalar, float32(1), []byte{0x00, 0x00, 0x80, 0x3F}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := gatt.EncodeValue(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.native, v.Native())
			assert.Equal(t, tt.wireBytes, v.Bytes())
			assert.False(t, v.IsEmpty())
		})
	}
}

func TestEncodeValue_Rejects(t *testing.T) {
	for name, input := range map[string]any{
		"nil":    nil,
		"map":    map[string]int{"a": 1},
		"slice":  []int{1, 2},
		"struct": struct{}{},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := gatt.EncodeValue(input)
			assert.ErrorIs(t, err, gatt.ErrInvalidValueKind)
		})
	}
}

func TestEncodeValue_CopiesBytes(t *testing.T) {
	src := []byte{1, 2, 3}
	v, err := gatt.EncodeValue(src)
	require.NoError(t, err)

	src[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, v.Bytes(), "value must not alias caller memory")

	out := v.Bytes()
	out[1] = 9
	assert.Equal(t, []byte{1, 2, 3}, v.Bytes())
}

func TestValue_ZeroIsEmpty(t *testing.T) {
	var v gatt.Value
	assert.True(t, v.IsEmpty())
	assert.Equal(t, gatt.KindEmpty, v.Kind())
	assert.Nil(t, v.Native())
	assert.Equal(t, []byte{}, v.Bytes())
	assert.Equal(t, "empty", v.Kind().String())
}

func TestValue_String(t *testing.T) {
	bytesVal, _ := gatt.EncodeValue([]byte{0xAB, 0x01})
	textVal, _ := gatt.EncodeValue("Blimp")
	scalarVal, _ := gatt.EncodeValue(42)

	assert.Equal(t, "AB01", bytesVal.String())
	assert.Equal(t, "Blimp", textVal.String())
	assert.Equal(t, "42", scalarVal.String())
}
