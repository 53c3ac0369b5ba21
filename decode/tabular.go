package decode

import (
	"math"

	"github.com/btoon-io/btoon/errs"
	"github.com/btoon-io/btoon/internal/cursor"
	"github.com/btoon-io/btoon/internal/marker"
	"github.com/btoon-io/btoon/value"
)

// Tabular block layout, payload of an Ext with type -1:
//
//	[ row_count      : varuint ]  // standard BTOON uint value encoding
//	[ column_count   : varuint ]
//	[ column headers : column_count x str ]
//	[ columns        : column_count x array(row_count) ]
//
// Both row_count/column_count and the headers are encoded with the same
// marker families the core value encoder uses, so decoding them only
// requires the ordinary decode path typed to the expected Kind.

// validateTabularHeader walks the payload of an Ext(-1) to confirm it has
// the tabular shape (two uints, column_count strings, column_count
// arrays of exactly row_count elements each) without materializing a
// Value, and bounds row_count and column_count against the array and map
// limits so a huge declared row_count with zero columns cannot validate
// and then blow up the decoder's row allocation. depth is the nesting depth
// of the extension itself, so values inside the block count against the
// same cap the decoder will apply.
func validateTabularHeader(data []byte, opts *Options, depth int) error {
	sub := &validator{cur: cursor.New(data), opts: opts}

	rowCount, err := sub.expectUintValueCounted(depth + 1)
	if err != nil {
		return wrapExtensionErr(err)
	}
	if opts.maxArrayCount > 0 && rowCount > opts.maxArrayCount {
		return errs.New(errs.CountExceeded, 0, "tabular row count %d exceeds max %d", rowCount, opts.maxArrayCount)
	}

	colCount, err := sub.expectUintValueCounted(depth + 1)
	if err != nil {
		return wrapExtensionErr(err)
	}
	if opts.maxMapCount > 0 && colCount > opts.maxMapCount {
		return errs.New(errs.CountExceeded, 0, "tabular column count %d exceeds max %d", colCount, opts.maxMapCount)
	}

	// With no columns there is no column array to cross-check row_count
	// against, so the only defensible row count is zero. With columns, each
	// declared row costs at least one payload byte per column, so a row
	// count past the remaining payload is malformed regardless of limits.
	if colCount == 0 && rowCount != 0 {
		return errs.New(errs.InvalidExtension, sub.cur.Position(), "tabular block declares %d rows but no columns", rowCount)
	}
	if rowCount > sub.cur.Remaining() {
		return errs.New(errs.InvalidExtension, sub.cur.Position(), "tabular row count %d exceeds remaining %d bytes", rowCount, sub.cur.Remaining())
	}

	for i := 0; i < colCount; i++ {
		if err := sub.expectStringValue(depth + 1); err != nil {
			return wrapExtensionErr(err)
		}
	}

	for i := 0; i < colCount; i++ {
		n, err := sub.expectArrayValueCounted(depth + 1)
		if err != nil {
			return wrapExtensionErr(err)
		}
		if n != rowCount {
			return errs.New(errs.InvalidExtension, sub.cur.Position(), "tabular column %d has %d rows, header says %d", i, n, rowCount)
		}
	}

	return nil
}

// expectUintValueCounted is like walkValue restricted to uint markers,
// additionally returning the numeric value so the caller knows how many
// headers and columns follow.
func (v *validator) expectUintValueCounted(depth int) (int, error) {
	b, err := v.cur.PeekByte()
	if err != nil {
		return 0, err
	}
	if !isUintMarker(b) {
		return 0, errs.New(errs.InvalidExtension, v.cur.Position(), "expected uint marker, got 0x%02x", b)
	}

	n, err := peekUintValue(v.cur)
	if err != nil {
		return 0, err
	}

	if err := v.walkValue(depth); err != nil {
		return 0, err
	}

	return n, nil
}

func (v *validator) expectStringValue(depth int) error {
	b, err := v.cur.PeekByte()
	if err != nil {
		return err
	}
	switch marker.Classify(b) {
	case marker.KindFixstr, marker.KindStr8, marker.KindStr16, marker.KindStr32:
	default:
		return errs.New(errs.InvalidExtension, v.cur.Position(), "expected string marker, got 0x%02x", b)
	}
	return v.walkValue(depth)
}

// expectArrayValueCounted walks one array value and returns its declared
// element count so the caller can cross-check it against row_count.
func (v *validator) expectArrayValueCounted(depth int) (int, error) {
	b, err := v.cur.PeekByte()
	if err != nil {
		return 0, err
	}
	switch marker.Classify(b) {
	case marker.KindFixarray, marker.KindArray16, marker.KindArray32:
	default:
		return 0, errs.New(errs.InvalidExtension, v.cur.Position(), "expected array marker, got 0x%02x", b)
	}

	n, err := peekArrayCount(v.cur)
	if err != nil {
		return 0, err
	}

	if err := v.walkValue(depth); err != nil {
		return 0, err
	}

	return n, nil
}

// peekArrayCount reads the element count of an array-family marker at the
// cursor's current position without consuming it.
func peekArrayCount(c *cursor.Cursor) (int, error) {
	save := *c
	defer func() { *c = save }()

	b, err := c.ReadByte()
	if err != nil {
		return 0, err
	}

	switch marker.Classify(b) {
	case marker.KindFixarray:
		return marker.FixCount(b), nil
	case marker.KindArray16:
		v, err := c.ReadUint16()
		if err != nil {
			return 0, err
		}
		return int(v), nil
	case marker.KindArray32:
		v, err := c.ReadUint32()
		if err != nil {
			return 0, err
		}
		return int(v), nil
	default:
		return 0, errs.New(errs.InvalidExtension, save.Position(), "expected array marker, got 0x%02x", b)
	}
}

func isUintMarker(b byte) bool {
	switch marker.Classify(b) {
	case marker.KindPosFixint, marker.KindUint8, marker.KindUint16, marker.KindUint32, marker.KindUint64:
		return true
	default:
		return false
	}
}

// peekUintValue reads the numeric value of a uint-family marker at the
// cursor's current position without consuming it.
func peekUintValue(c *cursor.Cursor) (int, error) {
	save := *c
	b, err := c.ReadByte()
	if err != nil {
		*c = save
		return 0, err
	}

	var n uint64
	switch marker.Classify(b) {
	case marker.KindPosFixint:
		n = uint64(b)
	case marker.KindUint8:
		v, err := c.ReadUint8()
		if err != nil {
			*c = save
			return 0, err
		}
		n = uint64(v)
	case marker.KindUint16:
		v, err := c.ReadUint16()
		if err != nil {
			*c = save
			return 0, err
		}
		n = uint64(v)
	case marker.KindUint32:
		v, err := c.ReadUint32()
		if err != nil {
			*c = save
			return 0, err
		}
		n = uint64(v)
	case marker.KindUint64:
		v, err := c.ReadUint64()
		if err != nil {
			*c = save
			return 0, err
		}
		n = v
	}

	*c = save
	if n > math.MaxInt32 {
		return 0, errs.New(errs.InvalidExtension, save.Position(), "tabular count %d exceeds wire format limit", n)
	}
	return int(n), nil
}

// decodeTabularExtension parses an Ext(-1) payload and materializes the
// reconstructed Array of Maps, zipping column headers with the i-th
// element of each column.
func decodeTabularExtension(data []byte, opts *Options, depth int) (value.Value, error) {
	d := &decoder{cur: cursor.New(data), opts: opts}

	rowCountVal, err := d.decodeValue(depth + 1)
	if err != nil {
		return value.Nil, wrapExtensionErr(err)
	}
	rowCount, err := asNonNegativeInt(rowCountVal)
	if err != nil {
		return value.Nil, err
	}
	if opts.maxArrayCount > 0 && rowCount > opts.maxArrayCount {
		return value.Nil, errs.New(errs.CountExceeded, d.cur.Position(), "tabular row count %d exceeds max %d", rowCount, opts.maxArrayCount)
	}

	colCountVal, err := d.decodeValue(depth + 1)
	if err != nil {
		return value.Nil, wrapExtensionErr(err)
	}
	colCount, err := asNonNegativeInt(colCountVal)
	if err != nil {
		return value.Nil, err
	}
	if opts.maxMapCount > 0 && colCount > opts.maxMapCount {
		return value.Nil, errs.New(errs.CountExceeded, d.cur.Position(), "tabular column count %d exceeds max %d", colCount, opts.maxMapCount)
	}
	// A zero-column block carries no wire evidence for any row count, so
	// the row allocation below would be bounded by nothing but the count
	// limit; reject unless it declares zero rows too. With columns, every
	// declared row costs at least one payload byte per column, and every
	// header at least one marker byte, so counts past the remaining
	// payload are malformed regardless of limits.
	if colCount == 0 && rowCount != 0 {
		return value.Nil, errs.New(errs.InvalidExtension, d.cur.Position(), "tabular block declares %d rows but no columns", rowCount)
	}
	if rowCount > d.cur.Remaining() {
		return value.Nil, errs.New(errs.InvalidExtension, d.cur.Position(), "tabular row count %d exceeds remaining %d bytes", rowCount, d.cur.Remaining())
	}
	if colCount > d.cur.Remaining() {
		return value.Nil, errs.New(errs.InvalidExtension, d.cur.Position(), "tabular column count %d exceeds remaining %d bytes", colCount, d.cur.Remaining())
	}

	headers := make([]string, colCount)
	for i := 0; i < colCount; i++ {
		v, err := d.decodeValue(depth + 1)
		if err != nil {
			return value.Nil, wrapExtensionErr(err)
		}
		if v.Kind() != value.KindString {
			return value.Nil, errs.New(errs.InvalidExtension, d.cur.Position(), "tabular column header %d is not a string", i)
		}
		headers[i] = v.AsString()
	}

	columns := make([][]value.Value, colCount)
	for i := 0; i < colCount; i++ {
		colVal, err := d.decodeValue(depth + 1)
		if err != nil {
			return value.Nil, wrapExtensionErr(err)
		}
		if colVal.Kind() != value.KindArray {
			return value.Nil, errs.New(errs.InvalidExtension, d.cur.Position(), "tabular column %d is not an array", i)
		}
		col := colVal.AsArray()
		if len(col) != rowCount {
			return value.Nil, errs.New(errs.InvalidExtension, d.cur.Position(), "tabular column %d has %d rows, header says %d", i, len(col), rowCount)
		}
		columns[i] = col
	}

	rows := make([]value.Value, rowCount)
	for r := 0; r < rowCount; r++ {
		fields := make([]value.Field, colCount)
		for c := 0; c < colCount; c++ {
			fields[c] = value.Field{Key: headers[c], Val: columns[c][r]}
		}
		rows[r] = value.Map(fields)
	}

	return value.Array(rows), nil
}

func asNonNegativeInt(v value.Value) (int, error) {
	var n uint64
	switch v.Kind() {
	case value.KindUint:
		n = v.AsUint()
	case value.KindInt:
		if v.AsInt() < 0 {
			return 0, errs.New(errs.InvalidExtension, -1, "tabular count must be non-negative")
		}
		n = uint64(v.AsInt())
	default:
		return 0, errs.New(errs.InvalidExtension, -1, "expected uint value in tabular header, got %s", v.Kind())
	}

	if n > math.MaxInt32 {
		return 0, errs.New(errs.InvalidExtension, -1, "tabular count %d exceeds wire format limit", n)
	}
	return int(n), nil
}

// wrapExtensionErr folds structural failures inside an Ext(-1) payload
// into InvalidExtension (a malformed tabular header), while letting
// resource-limit kinds keep their identity so callers can still branch on
// DepthExceeded and friends.
func wrapExtensionErr(err error) error {
	be, ok := err.(*errs.Error)
	if !ok {
		return err
	}
	switch be.Kind {
	case errs.InvalidExtension, errs.DepthExceeded, errs.SizeExceeded, errs.CountExceeded:
		return err
	default:
		return errs.New(errs.InvalidExtension, be.Pos, "malformed tabular header: %s", be.Error())
	}
}
