package compress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// ZstdCompressor implements the Codec trait using pure-Go Zstandard
// (format.CompressionZstd).
//
// BTOON compresses one whole encoded buffer per frame, so the stateless
// EncodeAll/DecodeAll entry points fit exactly; both are safe for
// concurrent use on a shared instance, so a single lazily-built encoder
// and decoder serve every ZstdCompressor rather than a pool of them.
//
// A frame's declared content size is attacker-controlled, so DecodeAll on
// untrusted input can allocate far past the input size. DecompressLen caps
// the output at the frame's declared original_len; the decode path prefers
// it whenever a frame is present.
type ZstdCompressor struct{}

var (
	_ Codec             = (*ZstdCompressor)(nil)
	_ SizedDecompressor = (*ZstdCompressor)(nil)
)

// NewZstdCompressor creates a new Zstd compressor with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}

var sharedZstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
	// CRC is off: the frame already cross-checks the decompressed length
	// against original_len, and corrupt input still fails zstd's own
	// structural checks.
	return zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderCRC(false),
	)
})

var sharedZstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
	return zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(0),
		zstd.WithDecoderLowmem(false),
	)
})

// Compress compresses one frame payload.
func (c ZstdCompressor) Compress(data []byte) ([]byte, error) {
	enc, err := sharedZstdEncoder()
	if err != nil {
		return nil, fmt.Errorf("zstd compression failed: %w", err)
	}
	return enc.EncodeAll(data, nil), nil
}

// DecompressLen decompresses a frame whose original size is known from
// the compression frame header, refusing to expand past it. The shared
// DecodeAll decoder sizes its output from the zstd frame's own (possibly
// lying) content size, so this path streams through a per-call reader
// instead, reading one byte beyond the declared size to detect an
// over-long frame without inflating it to the end.
func (c ZstdCompressor) DecompressLen(data []byte, originalLen int) ([]byte, error) {
	if originalLen == 0 {
		return nil, nil
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("zstd: empty frame, expected %d bytes", originalLen)
	}

	dec, err := zstd.NewReader(bytes.NewReader(data), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}
	defer dec.Close()

	out, err := io.ReadAll(io.LimitReader(dec, int64(originalLen)+1))
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}
	if len(out) > originalLen {
		return nil, fmt.Errorf("zstd: frame expands past declared %d bytes", originalLen)
	}

	return out, nil
}

// Decompress reverses Compress, failing if data is corrupt or was not
// produced by a Zstd compressor.
func (c ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	dec, err := sharedZstdDecoder()
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}
	return out, nil
}
