package compress

import (
	"fmt"

	"github.com/btoon-io/btoon/format"
)

// Compressor compresses a span of bytes.
//
// Memory management:
//   - Returned slice is newly allocated and owned by the caller
//   - Input slice is not modified
//   - Internal buffers may be reused for efficiency
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor decompresses a span of bytes previously produced by the
// matching Compressor.
//
// Error conditions:
//   - Returns error if input data is corrupted or invalid
//   - Returns error if data was compressed with an incompatible algorithm
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities. This is
// the trait the encoder and decoder consume over byte
// spans.
type Codec interface {
	Compressor
	Decompressor
}

// SizedDecompressor is implemented by the Zlib, LZ4 and Zstd codecs. The
// compression frame carries original_len, so the decode path prefers this
// entry point when a codec offers it: for LZ4, whose blocks do not record
// the decompressed size, it sizes the destination exactly instead of
// guessing; for Zlib and Zstd it refuses output past the declared size.
type SizedDecompressor interface {
	DecompressLen(data []byte, originalLen int) ([]byte, error)
}

// CreateCodec is a factory function that creates a Codec for the given
// compression type.
//
// Parameters:
//   - compressionType: None, Zlib, LZ4, or Zstd
//   - target: description of target usage (for error messages)
func CreateCodec(compressionType format.CompressionType, target string) (Codec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	case format.CompressionZlib:
		return NewZlibCompressor(), nil
	case format.CompressionLZ4:
		return NewLZ4Compressor(), nil
	case format.CompressionZstd:
		return NewZstdCompressor(), nil
	default:
		return nil, fmt.Errorf("invalid %s compression: %s", target, compressionType)
	}
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCompressor(),
	format.CompressionZlib: NewZlibCompressor(),
	format.CompressionLZ4:  NewLZ4Compressor(),
	format.CompressionZstd: NewZstdCompressor(),
}

// GetCodec retrieves a built-in Codec for the specified compression type.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
}
