// Package encode writes BTOON values in their shortest valid wire form,
// optionally rewriting uniform arrays-of-maps into the tabular extension
// block and wrapping the result in the compression frame.
package encode

import (
	"math"

	"github.com/btoon-io/btoon/compress"
	"github.com/btoon-io/btoon/endian"
	"github.com/btoon-io/btoon/errs"
	"github.com/btoon-io/btoon/format"
	"github.com/btoon-io/btoon/internal/marker"
	"github.com/btoon-io/btoon/internal/pool"
	"github.com/btoon-io/btoon/value"
)

var engine = endian.GetBigEndianEngine()

// Encode serializes v into a newly allocated byte slice owned by the
// caller. The encoder fails only on values outside representable ranges,
// or, with compression on, when the codec fails; partial output is
// discarded on failure.
func Encode(v value.Value, opts *Options) ([]byte, error) {
	if opts == nil {
		opts = NewOptions()
	}

	bb := pool.GetValueBuffer()
	defer pool.PutValueBuffer(bb)

	b, err := appendValue(bb.Bytes(), v, opts)
	if err != nil {
		return nil, err
	}
	bb.B = b

	if !opts.compress {
		out := make([]byte, len(bb.B))
		copy(out, bb.B)
		return out, nil
	}

	return compressFrame(bb.B, opts)
}

// compressFrame wraps encoded in <algo_tag:u8><original_len:u32 BE><data>.
func compressFrame(encoded []byte, opts *Options) ([]byte, error) {
	if uint64(len(encoded)) > math.MaxUint32 {
		return nil, errs.New(errs.EncodeOverflow, -1, "encoded size %d exceeds compression frame limit", len(encoded))
	}

	codec, err := compress.CreateCodecWithLevel(opts.compressionType, opts.compressionLevel)
	if err != nil {
		return nil, errs.Wrap(errs.CompressionError, -1, err)
	}

	compressed, err := codec.Compress(encoded)
	if err != nil {
		return nil, errs.Wrap(errs.CompressionError, -1, err)
	}

	// Block codecs signal incompressible input with an empty result; fall
	// back to a raw frame so the decoder still finds the payload.
	tag := opts.compressionType
	if len(compressed) == 0 && len(encoded) > 0 {
		tag = format.CompressionNone
		compressed = encoded
	}

	out := make([]byte, 0, 5+len(compressed))
	out = append(out, byte(tag))
	out = engine.AppendUint32(out, uint32(len(encoded)))
	out = append(out, compressed...)
	return out, nil
}

func appendValue(b []byte, v value.Value, opts *Options) ([]byte, error) {
	switch v.Kind() {
	case value.KindNil:
		return append(b, marker.Nil), nil
	case value.KindBool:
		if v.AsBool() {
			return append(b, marker.True), nil
		}
		return append(b, marker.False), nil
	case value.KindInt:
		return appendInt(b, v.AsInt()), nil
	case value.KindUint:
		return appendUint(b, v.AsUint()), nil
	case value.KindFloat:
		b = append(b, marker.Float64)
		return engine.AppendUint64(b, math.Float64bits(v.AsFloat())), nil
	case value.KindString:
		return appendString(b, v.AsString())
	case value.KindBinary:
		return appendBinary(b, v.AsBinary())
	case value.KindArray:
		if opts.autoTabular && IsTabular(v) {
			return appendTabular(b, v, opts)
		}
		return appendArray(b, v.AsArray(), opts)
	case value.KindMap:
		return appendMap(b, v.AsMap(), opts)
	case value.KindExtension:
		return appendExtension(b, v.ExtensionType(), v.ExtensionData())
	case value.KindDate:
		b = append(b, marker.Fixext8, byte(marker.ExtDate))
		return engine.AppendUint64(b, uint64(v.AsDateMillis())), nil
	case value.KindBigInt:
		payload := v.AsBigIntBytes()
		if len(payload) == 0 {
			payload = []byte{0x00}
		}
		return appendExtension(b, marker.ExtBigInt, payload)
	default:
		return nil, errs.New(errs.EncodeOverflow, -1, "cannot encode value of kind %s", v.Kind())
	}
}

// appendInt emits the shortest family containing i. Non-negative values use
// the uint families per the smallest-marker rule (128 encodes as
// uint8 cc 80, not int16).
func appendInt(b []byte, i int64) []byte {
	if i >= 0 {
		return appendUint(b, uint64(i))
	}
	switch {
	case i >= -32:
		return append(b, byte(i))
	case i >= math.MinInt8:
		return append(b, marker.Int8, byte(int8(i)))
	case i >= math.MinInt16:
		return engine.AppendUint16(append(b, marker.Int16), uint16(int16(i)))
	case i >= math.MinInt32:
		return engine.AppendUint32(append(b, marker.Int32), uint32(int32(i)))
	default:
		return engine.AppendUint64(append(b, marker.Int64), uint64(i))
	}
}

func appendUint(b []byte, u uint64) []byte {
	switch {
	case u <= 0x7f:
		return append(b, byte(u))
	case u <= math.MaxUint8:
		return append(b, marker.Uint8, byte(u))
	case u <= math.MaxUint16:
		return engine.AppendUint16(append(b, marker.Uint16), uint16(u))
	case u <= math.MaxUint32:
		return engine.AppendUint32(append(b, marker.Uint32), uint32(u))
	default:
		return engine.AppendUint64(append(b, marker.Uint64), u)
	}
}

func appendString(b []byte, s string) ([]byte, error) {
	n := len(s)
	switch {
	case n <= 31:
		b = append(b, 0xa0|byte(n))
	case n <= math.MaxUint8:
		b = append(b, marker.Str8, byte(n))
	case n <= math.MaxUint16:
		b = engine.AppendUint16(append(b, marker.Str16), uint16(n))
	case uint64(n) <= math.MaxUint32:
		b = engine.AppendUint32(append(b, marker.Str32), uint32(n))
	default:
		return nil, errs.New(errs.EncodeOverflow, -1, "string length %d exceeds wire format limit", n)
	}
	return append(b, s...), nil
}

func appendBinary(b []byte, data []byte) ([]byte, error) {
	n := len(data)
	switch {
	case n <= math.MaxUint8:
		b = append(b, marker.Bin8, byte(n))
	case n <= math.MaxUint16:
		b = engine.AppendUint16(append(b, marker.Bin16), uint16(n))
	case uint64(n) <= math.MaxUint32:
		b = engine.AppendUint32(append(b, marker.Bin32), uint32(n))
	default:
		return nil, errs.New(errs.EncodeOverflow, -1, "binary length %d exceeds wire format limit", n)
	}
	return append(b, data...), nil
}

func appendArrayHeader(b []byte, n int) ([]byte, error) {
	switch {
	case n <= 15:
		return append(b, 0x90|byte(n)), nil
	case n <= math.MaxUint16:
		return engine.AppendUint16(append(b, marker.Array16), uint16(n)), nil
	case uint64(n) <= math.MaxUint32:
		return engine.AppendUint32(append(b, marker.Array32), uint32(n)), nil
	default:
		return nil, errs.New(errs.EncodeOverflow, -1, "array count %d exceeds wire format limit", n)
	}
}

func appendArray(b []byte, elems []value.Value, opts *Options) ([]byte, error) {
	b, err := appendArrayHeader(b, len(elems))
	if err != nil {
		return nil, err
	}
	for _, e := range elems {
		b, err = appendValue(b, e, opts)
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}

func appendMap(b []byte, fields []value.Field, opts *Options) ([]byte, error) {
	n := len(fields)
	switch {
	case n <= 15:
		b = append(b, 0x80|byte(n))
	case n <= math.MaxUint16:
		b = engine.AppendUint16(append(b, marker.Map16), uint16(n))
	case uint64(n) <= math.MaxUint32:
		b = engine.AppendUint32(append(b, marker.Map32), uint32(n))
	default:
		return nil, errs.New(errs.EncodeOverflow, -1, "map count %d exceeds wire format limit", n)
	}

	var err error
	for _, f := range fields {
		b, err = appendString(b, f.Key)
		if err != nil {
			return nil, err
		}
		b, err = appendValue(b, f.Val, opts)
		if err != nil {
			return nil, err
		}
	}
	return b, nil
}

func appendExtension(b []byte, typ int8, data []byte) ([]byte, error) {
	n := len(data)
	switch n {
	case 1:
		return append(append(b, marker.Fixext1, byte(typ)), data...), nil
	case 2:
		return append(append(b, marker.Fixext2, byte(typ)), data...), nil
	case 4:
		return append(append(b, marker.Fixext4, byte(typ)), data...), nil
	case 8:
		return append(append(b, marker.Fixext8, byte(typ)), data...), nil
	case 16:
		return append(append(b, marker.Fixext16, byte(typ)), data...), nil
	}

	switch {
	case n <= math.MaxUint8:
		b = append(b, marker.Ext8, byte(n))
	case n <= math.MaxUint16:
		b = engine.AppendUint16(append(b, marker.Ext16), uint16(n))
	case uint64(n) <= math.MaxUint32:
		b = engine.AppendUint32(append(b, marker.Ext32), uint32(n))
	default:
		return nil, errs.New(errs.EncodeOverflow, -1, "extension length %d exceeds wire format limit", n)
	}
	return append(append(b, byte(typ)), data...), nil
}
