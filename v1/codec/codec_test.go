package codec

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awa-ai/awadb/v1/errs"
	"github.com/awa-ai/awadb/v1/fieldtype"
)

func TestEncodeLayouts(t *testing.T) {
	v, err := Encode(fieldtype.Int32, -2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xfe, 0xff, 0xff, 0xff}, v.Raw)

	v, err = Encode(fieldtype.Int64, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0}, v.Raw)

	v, err = Encode(fieldtype.Float32, 1.0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, v.Raw)

	v, err = Encode(fieldtype.Utf8String, "héllo")
	require.NoError(t, err)
	assert.Equal(t, []byte("héllo"), v.Raw)

	v, err = Encode(fieldtype.Vector, []any{1, 2.5, float32(-1)})
	require.NoError(t, err)
	assert.Len(t, v.Raw, 12)

	v, err = Encode(fieldtype.MultiString, []any{"a", "bc"})
	require.NoError(t, err)
	assert.Nil(t, v.Raw)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("bc")}, v.Multi)
}

func TestEncodeWidensStringIntoMultiString(t *testing.T) {
	v, err := Encode(fieldtype.MultiString, "solo")
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("solo")}, v.Multi)
}

func TestEncodeRejectsShapeMismatch(t *testing.T) {
	tests := []struct {
		name  string
		ft    fieldtype.FieldType
		value any
	}{
		{"empty vector", fieldtype.Vector, []any{}},
		{"nan vector", fieldtype.Vector, []float64{1, math.NaN()}},
		{"inf float", fieldtype.Float32, math.Inf(1)},
		{"float overflow", fieldtype.Float32, math.MaxFloat64},
		{"int32 overflow", fieldtype.Int32, int64(math.MaxInt32) + 1},
		{"fractional int", fieldtype.Int32, 1.5},
		{"string as int", fieldtype.Int64, "7"},
		{"int as string", fieldtype.Utf8String, 7},
		{"mixed multi", fieldtype.MultiString, []any{"a", 1}},
		{"string vector", fieldtype.Vector, []any{"a"}},
		{"error type", fieldtype.Error, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.ft, tt.value)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errs.ErrEncoding), "got %v", err)
		})
	}
}

func TestDecodeInverse(t *testing.T) {
	cases := []struct {
		ft    fieldtype.FieldType
		value any
		want  any
	}{
		{fieldtype.Int32, 42, int32(42)},
		{fieldtype.Int64, int64(-1) << 40, int64(-1) << 40},
		{fieldtype.Float32, 4.25, float32(4.25)},
		{fieldtype.Utf8String, "abc", "abc"},
		{fieldtype.MultiString, []string{"x", ""}, []string{"x", ""}},
		{fieldtype.Vector, []float32{0.5, -2}, []float32{0.5, -2}},
	}
	for _, c := range cases {
		t.Run(c.ft.String(), func(t *testing.T) {
			enc, err := Encode(c.ft, c.value)
			require.NoError(t, err)
			got, err := Decode(c.ft, enc)
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	_, err := Decode(fieldtype.Int64, Value{Raw: []byte{1, 2, 3, 4}})
	assert.Error(t, err)
	_, err = Decode(fieldtype.Vector, Value{Raw: []byte{1, 2, 3}})
	assert.Error(t, err)
}

func TestZero(t *testing.T) {
	for ft, want := range map[fieldtype.FieldType]any{
		fieldtype.Int32:       int32(0),
		fieldtype.Int64:       int64(0),
		fieldtype.Float32:     float32(0),
		fieldtype.Utf8String:  "",
		fieldtype.MultiString: []string{""},
	} {
		got, ok := Zero(ft)
		require.True(t, ok, ft.String())
		assert.Equal(t, want, got)

		_, err := Encode(ft, got)
		assert.NoError(t, err, ft.String())
	}

	_, ok := Zero(fieldtype.Vector)
	assert.False(t, ok)
}

func TestDecodeNumber(t *testing.T) {
	f, err := DecodeNumber(fieldtype.Int32, EncodeInt32(-5))
	require.NoError(t, err)
	assert.Equal(t, -5.0, f)

	f, err = DecodeNumber(fieldtype.Float32, EncodeFloat32(2.5))
	require.NoError(t, err)
	assert.Equal(t, 2.5, f)

	_, err = DecodeNumber(fieldtype.Utf8String, []byte("x"))
	assert.Error(t, err)
}
