package encode

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btoon-io/btoon/decode"
	"github.com/btoon-io/btoon/errs"
	"github.com/btoon-io/btoon/format"
	"github.com/btoon-io/btoon/value"
)

func encodeValue(t *testing.T, v value.Value, opts ...Option) []byte {
	t.Helper()
	o, err := Apply(opts...)
	require.NoError(t, err)
	b, err := Encode(v, o)
	require.NoError(t, err)
	return b
}

func TestEncode_Nil(t *testing.T) {
	assert.Equal(t, []byte{0xc0}, encodeValue(t, value.Nil))
}

func TestEncode_Bool(t *testing.T) {
	assert.Equal(t, []byte{0xc2}, encodeValue(t, value.Bool(false)))
	assert.Equal(t, []byte{0xc3}, encodeValue(t, value.Bool(true)))
}

func TestEncode_IntSelectsSmallestFamily(t *testing.T) {
	tests := []struct {
		name string
		v    int64
		want []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"pos fixint max", 127, []byte{0x7f}},
		{"uint8", 128, []byte{0xcc, 0x80}},
		{"uint16", 256, []byte{0xcd, 0x01, 0x00}},
		{"uint32", 65536, []byte{0xce, 0x00, 0x01, 0x00, 0x00}},
		{"neg fixint", -1, []byte{0xff}},
		{"neg fixint min", -32, []byte{0xe0}},
		{"int8", -33, []byte{0xd0, 0xdf}},
		{"int16", -129, []byte{0xd1, 0xff, 0x7f}},
		{"int32", -32769, []byte{0xd2, 0xff, 0xff, 0x7f, 0xff}},
		{"int64", math.MinInt64, []byte{0xd3, 0x80, 0, 0, 0, 0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, encodeValue(t, value.Int(tt.v)))
		})
	}
}

func TestEncode_UintSelectsSmallestFamily(t *testing.T) {
	assert.Equal(t, []byte{0x05}, encodeValue(t, value.Uint(5)))
	assert.Equal(t, []byte{0xcc, 0xff}, encodeValue(t, value.Uint(255)))
	assert.Equal(t, []byte{0xcf, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		encodeValue(t, value.Uint(math.MaxUint64)))
}

func TestEncode_Float(t *testing.T) {
	assert.Equal(t, []byte{0xcb, 0x3f, 0xf8, 0, 0, 0, 0, 0, 0}, encodeValue(t, value.Float(1.5)))
}

func TestEncode_Fixstr(t *testing.T) {
	// fixstr marker 0xb5 then 21 ASCII bytes.
	b := encodeValue(t, value.String("Hello, Unified BTOON!"))
	assert.Equal(t, byte(0xb5), b[0])
	assert.Equal(t, "Hello, Unified BTOON!", string(b[1:]))
}

func TestEncode_Str8(t *testing.T) {
	s := string(make([]byte, 32))
	b := encodeValue(t, value.String(s))
	assert.Equal(t, byte(0xd9), b[0])
	assert.Equal(t, byte(32), b[1])
}

func TestEncode_Binary(t *testing.T) {
	b := encodeValue(t, value.Binary([]byte{1, 2, 3}))
	assert.Equal(t, []byte{0xc4, 0x03, 1, 2, 3}, b)
}

func TestEncode_Map(t *testing.T) {
	// {"a": 1, "b": true}: 82 a1 61 01 a1 62 c3
	v := value.Map([]value.Field{
		{Key: "a", Val: value.Int(1)},
		{Key: "b", Val: value.Bool(true)},
	})
	assert.Equal(t, []byte{0x82, 0xa1, 'a', 0x01, 0xa1, 'b', 0xc3}, encodeValue(t, v))
}

func TestEncode_Date(t *testing.T) {
	b := encodeValue(t, value.Date(1000))
	assert.Equal(t, []byte{0xd7, 0x00, 0, 0, 0, 0, 0, 0, 0x03, 0xe8}, b)
}

func TestEncode_BigInt(t *testing.T) {
	b := encodeValue(t, value.BigIntBytes([]byte{0x01, 0x00}))
	assert.Equal(t, []byte{0xd5, 0x01, 0x01, 0x00}, b)
}

func TestEncode_ExtensionLengthBands(t *testing.T) {
	// 3-byte payload is not a fixext size, so it needs ext8.
	b := encodeValue(t, value.Extension(5, []byte{1, 2, 3}))
	assert.Equal(t, []byte{0xc7, 0x03, 0x05, 1, 2, 3}, b)

	b = encodeValue(t, value.Extension(5, make([]byte, 16)))
	assert.Equal(t, byte(0xd8), b[0])
}

func TestEncode_Array16Band(t *testing.T) {
	elems := make([]value.Value, 16)
	for i := range elems {
		elems[i] = value.Nil
	}
	b := encodeValue(t, value.Array(elems))
	assert.Equal(t, []byte{0xdc, 0x00, 0x10}, b[:3])
}

func TestEncode_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		v    value.Value
	}{
		{"nil", value.Nil},
		{"bool", value.Bool(true)},
		{"int", value.Int(-123456789)},
		{"large uint", value.Uint(math.MaxUint64)},
		{"float", value.Float(3.14159)},
		{"string", value.String("héllo wörld")},
		{"binary", value.Binary([]byte{0xde, 0xad, 0xbe, 0xef})},
		{"date", value.Date(1712345678901)},
		{"bigint", value.BigIntBytes([]byte{0x7f, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})},
		{"extension", value.Extension(42, []byte{1, 2, 3, 4, 5})},
		{"nested", value.Array([]value.Value{
			value.Int(-1),
			value.Map([]value.Field{{Key: "k", Val: value.String("v")}}),
			value.Array([]value.Value{value.Nil, value.Bool(false)}),
		})},
		{"array of empty maps", value.Array([]value.Value{value.Map(nil), value.Map(nil)})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, auto := range []bool{true, false} {
				b := encodeValue(t, tt.v, WithAutoTabular(auto))
				back, err := decode.Decode(b, nil)
				require.NoError(t, err)
				assert.True(t, value.Equal(tt.v, back), "auto_tabular=%v: round trip changed the value", auto)
			}
		})
	}
}

func TestEncode_Float32WidensOnDecode(t *testing.T) {
	// The encoder always emits float64, but a foreign float32 must widen
	// exactly.
	b := []byte{0xca, 0x3f, 0xc0, 0x00, 0x00} // 1.5f
	v, err := decode.Decode(b, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.5, v.AsFloat())
}

func TestEncode_CompressionRoundTrip(t *testing.T) {
	v := value.Array([]value.Value{
		value.String("the same string repeated"),
		value.String("the same string repeated"),
		value.String("the same string repeated"),
		value.String("the same string repeated"),
	})

	for _, ct := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZlib,
		format.CompressionLZ4,
		format.CompressionZstd,
	} {
		t.Run(ct.String(), func(t *testing.T) {
			b := encodeValue(t, v, WithCompression(true), WithCompressionType(ct))
			assert.Equal(t, byte(ct), b[0])

			opts, err := decode.Apply(decode.WithDecompress(true))
			require.NoError(t, err)
			back, err := decode.Decode(b, opts)
			require.NoError(t, err)
			assert.True(t, value.Equal(v, back))
		})
	}
}

func TestEncode_CompressionLevel(t *testing.T) {
	v := value.String("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	b := encodeValue(t, v,
		WithCompression(true),
		WithCompressionType(format.CompressionZlib),
		WithCompressionLevel(9))

	opts, err := decode.Apply(decode.WithDecompress(true))
	require.NoError(t, err)
	back, err := decode.Decode(b, opts)
	require.NoError(t, err)
	assert.True(t, value.Equal(v, back))
}

func TestEncode_InvalidCompressionType(t *testing.T) {
	_, err := Apply(WithCompressionType(format.CompressionType(0x7e)))
	assert.Error(t, err)
}

func TestEncode_CorruptCompressedFrame(t *testing.T) {
	b := encodeValue(t, value.String("payload"),
		WithCompression(true), WithCompressionType(format.CompressionZlib))
	b[len(b)-1] ^= 0xff

	opts, err := decode.Apply(decode.WithDecompress(true))
	require.NoError(t, err)
	_, err = decode.Decode(b, opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrCompressionError)
}
