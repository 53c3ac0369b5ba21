package compress

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/btoon-io/btoon/format"
)

// CreateCodecWithLevel creates a Codec for the given compression type at
// the given level. Level 0 means the algorithm's default and returns the
// same pooled codecs as GetCodec; non-zero levels build a leveled variant.
// Level is ignored for CompressionNone.
func CreateCodecWithLevel(compressionType format.CompressionType, level int) (Codec, error) {
	if level == 0 || compressionType == format.CompressionNone {
		return GetCodec(compressionType)
	}

	switch compressionType {
	case format.CompressionZlib:
		if level < zlib.HuffmanOnly || level > zlib.BestCompression {
			return nil, fmt.Errorf("invalid zlib compression level: %d", level)
		}
		return zlibLevelCompressor{level: level}, nil
	case format.CompressionLZ4:
		lvl, err := lz4Level(level)
		if err != nil {
			return nil, err
		}
		return newLZ4LevelCompressor(lvl), nil
	case format.CompressionZstd:
		enc, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
			zstd.WithEncoderConcurrency(1),
			zstd.WithEncoderCRC(false),
		)
		if err != nil {
			return nil, fmt.Errorf("invalid zstd compression level %d: %w", level, err)
		}
		return zstdLevelCompressor{enc: enc}, nil
	default:
		return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}

// zlibLevelCompressor is ZlibCompressor at an explicit DEFLATE level. The
// writer is built per call rather than pooled; leveled codecs are created
// per encode call, so pooling per level would retain one pool per level.
type zlibLevelCompressor struct {
	level int
}

var _ Codec = zlibLevelCompressor{}

func (c zlibLevelCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("zlib compression failed: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("zlib compression failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib compression failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (c zlibLevelCompressor) Decompress(data []byte) ([]byte, error) {
	return ZlibCompressor{}.Decompress(data)
}

func (c zlibLevelCompressor) DecompressLen(data []byte, originalLen int) ([]byte, error) {
	return ZlibCompressor{}.DecompressLen(data, originalLen)
}

// zstdLevelCompressor wraps a leveled zstd encoder. EncodeAll on a single
// encoder is safe for concurrent use.
type zstdLevelCompressor struct {
	enc *zstd.Encoder
}

var _ Codec = zstdLevelCompressor{}

func (c zstdLevelCompressor) Compress(data []byte) ([]byte, error) {
	return c.enc.EncodeAll(data, nil), nil
}

func (c zstdLevelCompressor) Decompress(data []byte) ([]byte, error) {
	return ZstdCompressor{}.Decompress(data)
}

func (c zstdLevelCompressor) DecompressLen(data []byte, originalLen int) ([]byte, error) {
	return ZstdCompressor{}.DecompressLen(data, originalLen)
}

// lz4Level maps the 1-9 compression level scale
// onto the lz4 library's named levels.
func lz4Level(level int) (lz4.CompressionLevel, error) {
	switch level {
	case 1:
		return lz4.Level1, nil
	case 2:
		return lz4.Level2, nil
	case 3:
		return lz4.Level3, nil
	case 4:
		return lz4.Level4, nil
	case 5:
		return lz4.Level5, nil
	case 6:
		return lz4.Level6, nil
	case 7:
		return lz4.Level7, nil
	case 8:
		return lz4.Level8, nil
	case 9:
		return lz4.Level9, nil
	default:
		return 0, fmt.Errorf("invalid lz4 compression level: %d", level)
	}
}

// lz4LevelCompressor uses the high-compression block mode at an explicit
// level. lz4.CompressorHC keeps internal state, so instances are pooled
// per codec rather than shared.
type lz4LevelCompressor struct {
	pool *sync.Pool
}

var _ Codec = lz4LevelCompressor{}

func newLZ4LevelCompressor(level lz4.CompressionLevel) lz4LevelCompressor {
	return lz4LevelCompressor{
		pool: &sync.Pool{
			New: func() any {
				return &lz4.CompressorHC{Level: level}
			},
		},
	}
}

func (c lz4LevelCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(data)))

	hc, _ := c.pool.Get().(*lz4.CompressorHC)
	defer c.pool.Put(hc)

	n, err := hc.CompressBlock(data, dst)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}

func (c lz4LevelCompressor) Decompress(data []byte) ([]byte, error) {
	return LZ4Compressor{}.Decompress(data)
}

func (c lz4LevelCompressor) DecompressLen(data []byte, originalLen int) ([]byte, error) {
	return LZ4Compressor{}.DecompressLen(data, originalLen)
}
