// Package btoon implements BTOON, a binary serialization format and codec
// wire-compatible with MessagePack, extended with a private extension type
// (tag -1) that re-encodes homogeneous arrays-of-maps as a column-oriented
// block for 20-40% size reduction on uniform tabular datasets.
//
// # Core Features
//
//   - Full MessagePack marker coverage: fixints, strings, binary, arrays,
//     string-keyed maps, floats, extensions
//   - Date (ext type 0) and arbitrary-precision BigInt (ext type 1) values
//   - Automatic tabular rewriting of uniform arrays-of-maps (ext type -1)
//   - Pre-decode validation bounding depth, sizes and counts before any
//     allocation happens
//   - Optional compression framing (Zlib, LZ4, Zstd)
//   - Stream framing of successive values over any io.Writer/io.Reader
//
// # Basic Usage
//
// Encoding and decoding a value:
//
//	import (
//	    "github.com/btoon-io/btoon"
//	    "github.com/btoon-io/btoon/value"
//	)
//
//	v := value.Map([]value.Field{
//	    {Key: "id", Val: value.Int(1)},
//	    {Key: "name", Val: value.String("alice")},
//	})
//
//	data, _ := btoon.Encode(v)
//	back, _ := btoon.Decode(data)
//
// Validating untrusted input before decoding:
//
//	if res := btoon.Validate(data); !res.Valid {
//	    return fmt.Errorf("rejected at offset %d: %s", res.Position, res.ErrorKind)
//	}
//
// Streaming successive values:
//
//	enc, _ := btoon.NewStreamEncoder(&buf)
//	enc.Write(v1)
//	enc.Write(v2)
//	enc.Close()
//
//	dec, _ := btoon.NewStreamDecoder(&buf)
//	for {
//	    v, err := dec.Read()
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the encode,
// decode and stream packages, simplifying the most common use cases. For
// fine-grained control, use those packages directly.
package btoon

import (
	"io"

	"github.com/btoon-io/btoon/decode"
	"github.com/btoon-io/btoon/encode"
	"github.com/btoon-io/btoon/stream"
	"github.com/btoon-io/btoon/value"
)

// Encode serializes v into its shortest wire form. With no options the
// auto-tabular pass is on and compression is off.
func Encode(v value.Value, opts ...encode.Option) ([]byte, error) {
	o, err := encode.Apply(opts...)
	if err != nil {
		return nil, err
	}
	return encode.Encode(v, o)
}

// Decode parses a single value from data. Trailing bytes after a
// well-formed value are not an error. With no options strict UTF-8
// checking is on and the default resource limits apply.
func Decode(data []byte, opts ...decode.Option) (value.Value, error) {
	o, err := decode.Apply(opts...)
	if err != nil {
		return value.Nil, err
	}
	return decode.Decode(data, o)
}

// Validate walks data without materializing a value, enforcing the
// configured resource limits. If it reports Valid, Decode under the same
// options cannot fail with a structural error.
func Validate(data []byte, opts ...decode.Option) decode.ValidationResult {
	o, err := decode.Apply(opts...)
	if err != nil {
		return decode.ValidationResult{}
	}
	return decode.Validate(data, o)
}

// NewStreamEncoder creates a stream encoder writing successive values
// to w.
func NewStreamEncoder(w io.Writer, opts ...encode.Option) (*stream.Encoder, error) {
	return stream.NewEncoder(w, opts...)
}

// NewStreamDecoder creates a stream decoder reading successive values
// from r. Pass a nil reader to build a feed-driven decoder.
func NewStreamDecoder(r io.Reader, opts ...decode.Option) (*stream.Decoder, error) {
	return stream.NewDecoder(r, opts...)
}

// IsTabular reports whether the auto-tabular pass would rewrite v as a
// columnar block.
func IsTabular(v value.Value) bool {
	return encode.IsTabular(v)
}
