package encode

import (
	"github.com/btoon-io/btoon/internal/hash"
	"github.com/btoon-io/btoon/internal/marker"
	"github.com/btoon-io/btoon/internal/pool"
	"github.com/btoon-io/btoon/value"
)

// IsTabular reports whether the auto-tabular pass would rewrite v as a
// columnar block: an array of length
// >= 2 whose elements are all maps sharing the same non-empty set of keys
// in the same insertion order, where no column value is itself a map or a
// nested tabular array.
//
// Row key sets are compared by xxHash64 fingerprint of the ordered key
// list first; only rows whose fingerprints match the first row's are
// confirmed with a direct string comparison, so non-uniform arrays are
// rejected after one hash per row.
func IsTabular(v value.Value) bool {
	if v.Kind() != value.KindArray {
		return false
	}
	rows := v.AsArray()
	if len(rows) < 2 {
		return false
	}

	first := rows[0]
	if first.Kind() != value.KindMap {
		return false
	}
	firstFields := first.AsMap()
	// A zero-column block elides nothing and carries no wire evidence of
	// its row count; empty maps are left to the naive encoder.
	if len(firstFields) == 0 {
		return false
	}
	firstKeys := make([]string, len(firstFields))
	for i, f := range firstFields {
		firstKeys[i] = f.Key
	}
	firstPrint := hash.KeyList(firstKeys)

	rowKeys := make([]string, len(firstFields))
	for _, row := range rows {
		if row.Kind() != value.KindMap {
			return false
		}
		fields := row.AsMap()
		if len(fields) != len(firstFields) {
			return false
		}
		for i, f := range fields {
			rowKeys[i] = f.Key
		}
		if hash.KeyList(rowKeys) != firstPrint {
			return false
		}
		// Fingerprints match; confirm the keys really are identical so a
		// hash collision can never corrupt the rewrite.
		for i := range rowKeys {
			if rowKeys[i] != firstKeys[i] {
				return false
			}
		}
		for _, f := range fields {
			if !columnValueAllowed(f.Val) {
				return false
			}
		}
	}

	return true
}

// columnValueAllowed enforces clause (d) of the uniformity predicate:
// columns may hold scalars, strings, binary, nil, extensions, dates,
// bigints and non-uniform arrays, but never maps or nested tabular arrays.
func columnValueAllowed(v value.Value) bool {
	switch v.Kind() {
	case value.KindMap:
		return false
	case value.KindArray:
		return !IsTabular(v)
	default:
		return true
	}
}

// appendTabular emits v, a tabular array per IsTabular, as an Ext(-1)
// whose payload is the columnar block layout:
//
//	[ row_count      : uint value ]
//	[ column_count   : uint value ]
//	[ column headers : column_count x str ]
//	[ columns        : column_count x array(row_count) ]
//
// The payload is built in a pooled scratch buffer because the extension
// header needs the payload length before the payload bytes.
func appendTabular(b []byte, v value.Value, opts *Options) ([]byte, error) {
	rows := v.AsArray()
	headerFields := rows[0].AsMap()
	rowCount := len(rows)
	colCount := len(headerFields)

	bb := pool.GetValueBuffer()
	defer pool.PutValueBuffer(bb)

	payload := appendUint(bb.Bytes(), uint64(rowCount))
	payload = appendUint(payload, uint64(colCount))

	var err error
	for _, f := range headerFields {
		payload, err = appendString(payload, f.Key)
		if err != nil {
			return nil, err
		}
	}

	for c := 0; c < colCount; c++ {
		payload, err = appendArrayHeader(payload, rowCount)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			// The predicate guarantees every row has the column at the
			// same index, so no key lookup is needed here.
			payload, err = appendValue(payload, row.AsMap()[c].Val, opts)
			if err != nil {
				return nil, err
			}
		}
	}
	bb.B = payload

	return appendExtension(b, marker.ExtTabular, payload)
}
