package decode

import (
	"math"
	"unicode/utf8"

	"github.com/btoon-io/btoon/endian"
	"github.com/btoon-io/btoon/errs"
	"github.com/btoon-io/btoon/internal/cursor"
	"github.com/btoon-io/btoon/internal/marker"
	"github.com/btoon-io/btoon/value"
)

var engine = endian.GetBigEndianEngine()

// Decode parses a single BTOON value from data. Trailing bytes
// after a well-formed value are not an error; use DecodeAt, which returns
// the offset past the value, or the stream package, to find the next value
// boundary.
func Decode(data []byte, opts *Options) (value.Value, error) {
	if opts == nil {
		opts = NewOptions()
	}

	if opts.maxTotalSize > 0 && len(data) > opts.maxTotalSize {
		return value.Nil, errs.New(errs.SizeExceeded, 0, "input size %d exceeds max %d", len(data), opts.maxTotalSize)
	}

	data, err := maybeDecompress(data, opts)
	if err != nil {
		return value.Nil, err
	}

	d := &decoder{cur: cursor.New(data), opts: opts}
	return d.decodeValue(0)
}

// DecodeAt is like Decode but decodes the value starting at offset pos in
// data and returns the offset immediately past the decoded value, letting
// a caller walk successive values without re-slicing.
func DecodeAt(data []byte, pos int, opts *Options) (value.Value, int, error) {
	if opts == nil {
		opts = NewOptions()
	}
	c := cursor.New(data)
	if err := c.Skip(pos); err != nil {
		return value.Nil, pos, err
	}
	d := &decoder{cur: c, opts: opts}
	v, err := d.decodeValue(0)
	if err != nil {
		return value.Nil, pos, err
	}
	return v, c.Position(), nil
}

type decoder struct {
	cur  *cursor.Cursor
	opts *Options
}

func (d *decoder) decodeValue(depth int) (value.Value, error) {
	if depth > d.opts.maxDepth {
		return value.Nil, errs.New(errs.DepthExceeded, d.cur.Position(), "nesting depth exceeds max %d", d.opts.maxDepth)
	}

	b, err := d.cur.ReadByte()
	if err != nil {
		return value.Nil, err
	}

	kind := marker.Classify(b)

	switch kind {
	case marker.KindReserved:
		return value.Nil, errs.New(errs.InvalidMarker, d.cur.Position()-1, "reserved marker 0x%02x", b)
	case marker.KindPosFixint:
		return value.Int(int64(b)), nil
	case marker.KindNegFixint:
		return value.Int(int64(marker.FixintValue(b))), nil
	case marker.KindNil:
		return value.Nil, nil
	case marker.KindFalse:
		return value.Bool(false), nil
	case marker.KindTrue:
		return value.Bool(true), nil
	case marker.KindUint8:
		v, err := d.cur.ReadUint8()
		return value.Uint(uint64(v)), err
	case marker.KindUint16:
		v, err := d.cur.ReadUint16()
		return value.Uint(uint64(v)), err
	case marker.KindUint32:
		v, err := d.cur.ReadUint32()
		return value.Uint(uint64(v)), err
	case marker.KindUint64:
		v, err := d.cur.ReadUint64()
		return value.Uint(v), err
	case marker.KindInt8:
		v, err := d.cur.ReadUint8()
		return value.Int(int64(int8(v))), err
	case marker.KindInt16:
		v, err := d.cur.ReadUint16()
		return value.Int(int64(int16(v))), err
	case marker.KindInt32:
		v, err := d.cur.ReadUint32()
		return value.Int(int64(int32(v))), err
	case marker.KindInt64:
		v, err := d.cur.ReadUint64()
		return value.Int(int64(v)), err
	case marker.KindFloat32:
		v, err := d.cur.ReadUint32()
		if err != nil {
			return value.Nil, err
		}
		return value.Float(float64(math.Float32frombits(v))), nil
	case marker.KindFloat64:
		v, err := d.cur.ReadUint64()
		if err != nil {
			return value.Nil, err
		}
		return value.Float(math.Float64frombits(v)), nil
	case marker.KindFixstr:
		return d.decodeString(marker.FixstrLen(b))
	case marker.KindStr8:
		n, err := d.readLen(1)
		if err != nil {
			return value.Nil, err
		}
		return d.decodeString(n)
	case marker.KindStr16:
		n, err := d.readLen(2)
		if err != nil {
			return value.Nil, err
		}
		return d.decodeString(n)
	case marker.KindStr32:
		n, err := d.readLen(4)
		if err != nil {
			return value.Nil, err
		}
		return d.decodeString(n)
	case marker.KindBin8:
		n, err := d.readLen(1)
		if err != nil {
			return value.Nil, err
		}
		return d.decodeBinary(n)
	case marker.KindBin16:
		n, err := d.readLen(2)
		if err != nil {
			return value.Nil, err
		}
		return d.decodeBinary(n)
	case marker.KindBin32:
		n, err := d.readLen(4)
		if err != nil {
			return value.Nil, err
		}
		return d.decodeBinary(n)
	case marker.KindFixarray:
		return d.decodeArray(marker.FixCount(b), depth)
	case marker.KindArray16:
		n, err := d.readLen(2)
		if err != nil {
			return value.Nil, err
		}
		return d.decodeArray(n, depth)
	case marker.KindArray32:
		n, err := d.readLen(4)
		if err != nil {
			return value.Nil, err
		}
		return d.decodeArray(n, depth)
	case marker.KindFixmap:
		return d.decodeMap(marker.FixCount(b), depth)
	case marker.KindMap16:
		n, err := d.readLen(2)
		if err != nil {
			return value.Nil, err
		}
		return d.decodeMap(n, depth)
	case marker.KindMap32:
		n, err := d.readLen(4)
		if err != nil {
			return value.Nil, err
		}
		return d.decodeMap(n, depth)
	case marker.KindFixext1:
		return d.decodeExtension(1, depth)
	case marker.KindFixext2:
		return d.decodeExtension(2, depth)
	case marker.KindFixext4:
		return d.decodeExtension(4, depth)
	case marker.KindFixext8:
		return d.decodeExtension(8, depth)
	case marker.KindFixext16:
		return d.decodeExtension(16, depth)
	case marker.KindExt8:
		n, err := d.readLen(1)
		if err != nil {
			return value.Nil, err
		}
		return d.decodeExtension(n, depth)
	case marker.KindExt16:
		n, err := d.readLen(2)
		if err != nil {
			return value.Nil, err
		}
		return d.decodeExtension(n, depth)
	case marker.KindExt32:
		n, err := d.readLen(4)
		if err != nil {
			return value.Nil, err
		}
		return d.decodeExtension(n, depth)
	default:
		return value.Nil, errs.New(errs.InvalidMarker, d.cur.Position()-1, "unhandled marker 0x%02x", b)
	}
}

// readLen reads a length/count field and rejects declarations the input
// cannot possibly satisfy, so a 5-byte buffer claiming 2^32-1 elements
// fails before any allocation. Every declared unit costs at least one
// input byte, whether it is a payload byte or a child value's marker.
func (d *decoder) readLen(width int) (int, error) {
	var n uint64
	switch width {
	case 1:
		v, err := d.cur.ReadUint8()
		if err != nil {
			return 0, err
		}
		n = uint64(v)
	case 2:
		v, err := d.cur.ReadUint16()
		if err != nil {
			return 0, err
		}
		n = uint64(v)
	case 4:
		v, err := d.cur.ReadUint32()
		if err != nil {
			return 0, err
		}
		n = uint64(v)
	}

	if n > uint64(d.cur.Remaining()) {
		return 0, errs.New(errs.Truncated, d.cur.Position(), "declared length %d exceeds remaining %d bytes", n, d.cur.Remaining())
	}

	return int(n), nil
}

func (d *decoder) decodeString(n int) (value.Value, error) {
	if d.opts.maxStringLength > 0 && n > d.opts.maxStringLength {
		return value.Nil, errs.New(errs.SizeExceeded, d.cur.Position(), "string length %d exceeds max %d", n, d.opts.maxStringLength)
	}

	b, err := d.cur.ReadBytes(n)
	if err != nil {
		return value.Nil, err
	}

	if d.opts.strict && !d.opts.fastMode {
		if !utf8.Valid(b) {
			return value.Nil, errs.New(errs.InvalidUtf8, d.cur.Position()-n, "invalid utf-8 sequence")
		}
	} else if !d.opts.strict && !utf8.Valid(b) {
		return value.Binary(append([]byte(nil), b...)), nil
	}

	return value.String(string(b)), nil
}

func (d *decoder) decodeBinary(n int) (value.Value, error) {
	if d.opts.maxBinaryLength > 0 && n > d.opts.maxBinaryLength {
		return value.Nil, errs.New(errs.SizeExceeded, d.cur.Position(), "binary length %d exceeds max %d", n, d.opts.maxBinaryLength)
	}

	b, err := d.cur.ReadBytes(n)
	if err != nil {
		return value.Nil, err
	}
	return value.Binary(append([]byte(nil), b...)), nil
}

func (d *decoder) decodeArray(n int, depth int) (value.Value, error) {
	// Each element needs at least one marker byte, so a count beyond the
	// remaining input is a truncation regardless of limits. Rejecting here
	// keeps the allocation below bounded by the input size.
	if n > d.cur.Remaining() {
		return value.Nil, errs.New(errs.Truncated, d.cur.Position(), "array count %d exceeds remaining %d bytes", n, d.cur.Remaining())
	}
	if d.opts.maxArrayCount > 0 && n > d.opts.maxArrayCount {
		return value.Nil, errs.New(errs.CountExceeded, d.cur.Position(), "array count %d exceeds max %d", n, d.opts.maxArrayCount)
	}

	elems := make([]value.Value, n)
	for i := 0; i < n; i++ {
		v, err := d.decodeValue(depth + 1)
		if err != nil {
			return value.Nil, err
		}
		elems[i] = v
	}
	return value.Array(elems), nil
}

func (d *decoder) decodeMap(n int, depth int) (value.Value, error) {
	// A map entry is at least two marker bytes, so n beyond the remaining
	// input is a truncation before any allocation happens.
	if n > d.cur.Remaining() {
		return value.Nil, errs.New(errs.Truncated, d.cur.Position(), "map count %d exceeds remaining %d bytes", n, d.cur.Remaining())
	}
	if d.opts.maxMapCount > 0 && n > d.opts.maxMapCount {
		return value.Nil, errs.New(errs.CountExceeded, d.cur.Position(), "map count %d exceeds max %d", n, d.opts.maxMapCount)
	}

	fields := make([]value.Field, n)
	for i := 0; i < n; i++ {
		keyMarker, err := d.cur.PeekByte()
		if err != nil {
			return value.Nil, err
		}
		switch marker.Classify(keyMarker) {
		case marker.KindFixstr, marker.KindStr8, marker.KindStr16, marker.KindStr32:
		default:
			return value.Nil, errs.New(errs.InvalidMarker, d.cur.Position(), "map key must be a string, got marker 0x%02x", keyMarker)
		}

		k, err := d.decodeValue(depth + 1)
		if err != nil {
			return value.Nil, err
		}
		v, err := d.decodeValue(depth + 1)
		if err != nil {
			return value.Nil, err
		}
		fields[i] = value.Field{Key: k.AsString(), Val: v}
	}
	return value.Map(fields), nil
}

func (d *decoder) decodeExtension(payloadLen int, depth int) (value.Value, error) {
	typeByte, err := d.cur.ReadByte()
	if err != nil {
		return value.Nil, err
	}
	extType := int8(typeByte)

	data, err := d.cur.ReadBytes(payloadLen)
	if err != nil {
		return value.Nil, err
	}

	switch extType {
	case marker.ExtDate:
		if len(data) != 8 {
			return value.Nil, errs.New(errs.InvalidExtension, d.cur.Position()-payloadLen, "date extension payload must be 8 bytes, got %d", len(data))
		}
		return value.Date(int64(engine.Uint64(data))), nil
	case marker.ExtBigInt:
		if len(data) == 0 {
			return value.Nil, errs.New(errs.InvalidExtension, d.cur.Position()-payloadLen, "bigint extension payload must be non-empty")
		}
		return value.BigIntBytes(append([]byte(nil), data...)), nil
	case marker.ExtTabular:
		return decodeTabularExtension(data, d.opts, depth)
	default:
		return value.Extension(extType, append([]byte(nil), data...)), nil
	}
}
