// Package format defines the small shared value types threaded through the
// encoder, decoder, and compression packages: the wire algorithm tag used
// in the compression frame.
package format

// CompressionType identifies the algorithm used to compress an encoded
// BTOON payload before it is written to a sink. The value is carried as
// the first byte of the compression frame: <algo_tag><original_len><data>.
type CompressionType uint8

const (
	CompressionNone CompressionType = 0x0 // CompressionNone disables compression.
	CompressionZlib CompressionType = 0x1 // CompressionZlib uses DEFLATE/zlib framing.
	CompressionLZ4  CompressionType = 0x2 // CompressionLZ4 uses LZ4 block compression.
	CompressionZstd CompressionType = 0x3 // CompressionZstd uses Zstandard compression.
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZlib:
		return "zlib"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}
