package decode

import (
	"unicode/utf8"

	"github.com/btoon-io/btoon/errs"
	"github.com/btoon-io/btoon/internal/cursor"
	"github.com/btoon-io/btoon/internal/marker"
)

// ValidationResult is the outcome of Validate: whether the
// input is structurally sound, and if not, where and why it failed.
type ValidationResult struct {
	Valid     bool
	ErrorKind errs.Kind
	Position  int
}

// Validate walks the encoded form of data without materializing a Value,
// enforcing the resource limits in opts. If Validate reports Valid under
// opts, Decode under options implying the same bounds cannot fail with a
// structural error.
func Validate(data []byte, opts *Options) ValidationResult {
	if opts == nil {
		opts = NewOptions()
	}

	if opts.maxTotalSize > 0 && len(data) > opts.maxTotalSize {
		return ValidationResult{ErrorKind: errs.SizeExceeded, Position: 0}
	}

	data, err := maybeDecompress(data, opts)
	if err != nil {
		if be, ok := err.(*errs.Error); ok {
			return ValidationResult{ErrorKind: be.Kind, Position: be.Pos}
		}
		return ValidationResult{ErrorKind: errs.CompressionError, Position: 0}
	}

	c := cursor.New(data)
	v := &validator{cur: c, opts: opts}
	if err := v.walkValue(0); err != nil {
		if be, ok := err.(*errs.Error); ok {
			return ValidationResult{ErrorKind: be.Kind, Position: be.Pos}
		}
		return ValidationResult{ErrorKind: errs.Truncated, Position: c.Position()}
	}

	return ValidationResult{Valid: true}
}

type validator struct {
	cur  *cursor.Cursor
	opts *Options
}

func (v *validator) walkValue(depth int) error {
	if depth > v.opts.maxDepth {
		return errs.New(errs.DepthExceeded, v.cur.Position(), "nesting depth exceeds max %d", v.opts.maxDepth)
	}

	b, err := v.cur.ReadByte()
	if err != nil {
		return err
	}

	kind := marker.Classify(b)

	switch kind {
	case marker.KindReserved:
		return errs.New(errs.InvalidMarker, v.cur.Position()-1, "reserved marker 0x%02x", b)
	case marker.KindPosFixint, marker.KindNegFixint, marker.KindNil, marker.KindFalse, marker.KindTrue:
		return nil
	case marker.KindUint8, marker.KindInt8:
		return v.skip(1)
	case marker.KindUint16, marker.KindInt16:
		return v.skip(2)
	case marker.KindUint32, marker.KindInt32, marker.KindFloat32:
		return v.skip(4)
	case marker.KindUint64, marker.KindInt64, marker.KindFloat64:
		return v.skip(8)
	case marker.KindFixstr:
		return v.walkString(marker.FixstrLen(b))
	case marker.KindStr8:
		n, err := v.readLen(1)
		if err != nil {
			return err
		}
		return v.walkString(n)
	case marker.KindStr16:
		n, err := v.readLen(2)
		if err != nil {
			return err
		}
		return v.walkString(n)
	case marker.KindStr32:
		n, err := v.readLen(4)
		if err != nil {
			return err
		}
		return v.walkString(n)
	case marker.KindBin8:
		n, err := v.readLen(1)
		if err != nil {
			return err
		}
		return v.walkBinary(n)
	case marker.KindBin16:
		n, err := v.readLen(2)
		if err != nil {
			return err
		}
		return v.walkBinary(n)
	case marker.KindBin32:
		n, err := v.readLen(4)
		if err != nil {
			return err
		}
		return v.walkBinary(n)
	case marker.KindFixarray:
		return v.walkArray(marker.FixCount(b), depth)
	case marker.KindArray16:
		n, err := v.readLen(2)
		if err != nil {
			return err
		}
		return v.walkArray(n, depth)
	case marker.KindArray32:
		n, err := v.readLen(4)
		if err != nil {
			return err
		}
		return v.walkArray(n, depth)
	case marker.KindFixmap:
		return v.walkMap(marker.FixCount(b), depth)
	case marker.KindMap16:
		n, err := v.readLen(2)
		if err != nil {
			return err
		}
		return v.walkMap(n, depth)
	case marker.KindMap32:
		n, err := v.readLen(4)
		if err != nil {
			return err
		}
		return v.walkMap(n, depth)
	case marker.KindFixext1:
		return v.walkExtension(1, depth)
	case marker.KindFixext2:
		return v.walkExtension(2, depth)
	case marker.KindFixext4:
		return v.walkExtension(4, depth)
	case marker.KindFixext8:
		return v.walkExtension(8, depth)
	case marker.KindFixext16:
		return v.walkExtension(16, depth)
	case marker.KindExt8:
		n, err := v.readLen(1)
		if err != nil {
			return err
		}
		return v.walkExtension(n, depth)
	case marker.KindExt16:
		n, err := v.readLen(2)
		if err != nil {
			return err
		}
		return v.walkExtension(n, depth)
	case marker.KindExt32:
		n, err := v.readLen(4)
		if err != nil {
			return err
		}
		return v.walkExtension(n, depth)
	default:
		return errs.New(errs.InvalidMarker, v.cur.Position()-1, "unhandled marker 0x%02x", b)
	}
}

// readLen reads an n-byte big-endian length field and bounds-checks it
// against the cursor's remaining bytes before the caller consumes the
// payload, rejecting zip-bomb style claims early.
func (v *validator) readLen(width int) (int, error) {
	var n uint64
	switch width {
	case 1:
		b, err := v.cur.ReadUint8()
		if err != nil {
			return 0, err
		}
		n = uint64(b)
	case 2:
		b, err := v.cur.ReadUint16()
		if err != nil {
			return 0, err
		}
		n = uint64(b)
	case 4:
		b, err := v.cur.ReadUint32()
		if err != nil {
			return 0, err
		}
		n = uint64(b)
	}

	if n > uint64(v.cur.Remaining()) {
		return 0, errs.New(errs.InvalidLength, v.cur.Position(), "declared length %d exceeds remaining %d bytes", n, v.cur.Remaining())
	}

	return int(n), nil
}

func (v *validator) skip(n int) error {
	return v.cur.Skip(n)
}

func (v *validator) walkString(n int) error {
	if v.opts.maxStringLength > 0 && n > v.opts.maxStringLength {
		return errs.New(errs.SizeExceeded, v.cur.Position(), "string length %d exceeds max %d", n, v.opts.maxStringLength)
	}

	b, err := v.cur.ReadBytes(n)
	if err != nil {
		return err
	}

	if v.opts.strict && !v.opts.fastMode && !utf8.Valid(b) {
		return errs.New(errs.InvalidUtf8, v.cur.Position()-n, "invalid utf-8 sequence")
	}

	return nil
}

func (v *validator) walkBinary(n int) error {
	if v.opts.maxBinaryLength > 0 && n > v.opts.maxBinaryLength {
		return errs.New(errs.SizeExceeded, v.cur.Position(), "binary length %d exceeds max %d", n, v.opts.maxBinaryLength)
	}
	return v.cur.Skip(n)
}

func (v *validator) walkArray(n int, depth int) error {
	if v.opts.maxArrayCount > 0 && n > v.opts.maxArrayCount {
		return errs.New(errs.CountExceeded, v.cur.Position(), "array count %d exceeds max %d", n, v.opts.maxArrayCount)
	}

	for i := 0; i < n; i++ {
		if err := v.walkValue(depth + 1); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) walkMap(n int, depth int) error {
	if v.opts.maxMapCount > 0 && n > v.opts.maxMapCount {
		return errs.New(errs.CountExceeded, v.cur.Position(), "map count %d exceeds max %d", n, v.opts.maxMapCount)
	}

	for i := 0; i < n; i++ {
		keyMarker, err := v.cur.PeekByte()
		if err != nil {
			return err
		}
		switch marker.Classify(keyMarker) {
		case marker.KindFixstr, marker.KindStr8, marker.KindStr16, marker.KindStr32:
		default:
			return errs.New(errs.InvalidMarker, v.cur.Position(), "map key must be a string, got marker 0x%02x", keyMarker)
		}

		if err := v.walkValue(depth + 1); err != nil {
			return err
		}
		if err := v.walkValue(depth + 1); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) walkExtension(payloadLen int, depth int) error {
	typeByte, err := v.cur.ReadByte()
	if err != nil {
		return err
	}
	extType := int8(typeByte)

	data, err := v.cur.ReadBytes(payloadLen)
	if err != nil {
		return err
	}

	switch extType {
	case marker.ExtDate:
		if len(data) != 8 {
			return errs.New(errs.InvalidExtension, v.cur.Position()-payloadLen, "date extension payload must be 8 bytes, got %d", len(data))
		}
	case marker.ExtBigInt:
		if len(data) == 0 {
			return errs.New(errs.InvalidExtension, v.cur.Position(), "bigint extension payload must be non-empty")
		}
	case marker.ExtTabular:
		return validateTabularHeader(data, v.opts, depth)
	}

	return nil
}
