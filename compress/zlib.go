package compress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// zlibWriterPool pools zlib.Writer instances; (*zlib.Writer).Reset lets a
// pooled writer be rebound to a new destination without reallocating its
// internal DEFLATE tables.
var zlibWriterPool = sync.Pool{
	New: func() any {
		w, _ := zlib.NewWriterLevel(io.Discard, zlib.DefaultCompression)
		return w
	},
}

// ZlibCompressor implements the Codec trait using DEFLATE/zlib framing
// (format.CompressionZlib).
//
// DEFLATE expands up to ~1032:1, so Decompress on untrusted input can
// allocate far past the input size before any caller-side check runs.
// DecompressLen caps the output at the frame's declared original_len; the
// decode path prefers it whenever a frame is present.
type ZlibCompressor struct{}

var (
	_ Codec             = (*ZlibCompressor)(nil)
	_ SizedDecompressor = (*ZlibCompressor)(nil)
)

// NewZlibCompressor creates a new zlib compressor with default settings.
func NewZlibCompressor() ZlibCompressor {
	return ZlibCompressor{}
}

// Compress compresses data using zlib.
func (c ZlibCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w, _ := zlibWriterPool.Get().(*zlib.Writer)
	defer zlibWriterPool.Put(w)

	w.Reset(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("zlib compression failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib compression failed: %w", err)
	}

	return buf.Bytes(), nil
}

// DecompressLen decompresses a stream whose original size is known from
// the frame header, refusing to expand past it. Reading one byte beyond
// the declared size detects an over-long stream without inflating it to
// the end.
func (c ZlibCompressor) DecompressLen(data []byte, originalLen int) ([]byte, error) {
	if originalLen == 0 {
		return nil, nil
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("zlib: empty stream, expected %d bytes", originalLen)
	}

	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib decompression failed: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, int64(originalLen)+1))
	if err != nil {
		return nil, fmt.Errorf("zlib decompression failed: %w", err)
	}
	if len(out) > originalLen {
		return nil, fmt.Errorf("zlib: stream expands past declared %d bytes", originalLen)
	}

	return out, nil
}

// Decompress decompresses zlib-compressed data.
func (c ZlibCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib decompression failed: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("zlib decompression failed: %w", err)
	}

	return out, nil
}
