// Package endian provides the byte-order engine BTOON's encoder and decoder
// use to read and write the multi-byte integer and float fields of the wire
// format.
//
// The wire format is big-endian for every multi-byte field, regardless of
// host architecture, so this package exists purely to
// avoid sprinkling raw encoding/binary.BigEndian calls (and the temptation
// to memcpy host-native bytes) throughout the codec.
//
//	import "github.com/btoon-io/btoon/endian"
//
//	engine := endian.GetBigEndianEngine()
//	buf = engine.AppendUint32(buf, length)
//
// EndianEngine combines ByteOrder and AppendByteOrder from the standard
// library into one interface; using AppendUint* instead of PutUint* into a
// scratch buffer avoids an extra allocation and copy per field.
//
// All functions in this package are safe for concurrent use; the returned
// EndianEngine is immutable and stateless.
package endian

import "encoding/binary"

// EndianEngine combines ByteOrder and AppendByteOrder interfaces from
// encoding/binary into a single interface for convenient byte order
// operations. binary.BigEndian satisfies it directly.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetBigEndianEngine returns the engine used for all BTOON wire fields.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}
