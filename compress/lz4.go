package compress

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// lz4CompressorPool pools lz4.Compressor instances; a compressor carries a
// hash table that is worth reusing across frames.
var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// LZ4Compressor implements the Codec trait using block-mode LZ4
// (format.CompressionLZ4).
//
// LZ4 blocks do not record their decompressed size, which is why the
// compression frame carries original_len: DecompressLen uses it to size
// the destination exactly. Decompress exists for callers holding a bare
// block with no frame around it and has to guess, growing a trial buffer
// until the block fits.
type LZ4Compressor struct{}

var (
	_ Codec             = (*LZ4Compressor)(nil)
	_ SizedDecompressor = (*LZ4Compressor)(nil)
)

// NewLZ4Compressor creates a new LZ4 compressor.
func NewLZ4Compressor() LZ4Compressor {
	return LZ4Compressor{}
}

// Compress compresses one frame payload as a single LZ4 block. An empty
// result means the input was incompressible; the frame writer falls back
// to a raw frame in that case.
func (c LZ4Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(data)))

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(data, dst)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}

// DecompressLen decompresses a block whose original size is known from
// the frame header, into a buffer of exactly that size.
func (c LZ4Compressor) DecompressLen(data []byte, originalLen int) ([]byte, error) {
	if originalLen == 0 {
		return nil, nil
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("lz4: empty block, expected %d bytes", originalLen)
	}

	dst := make([]byte, originalLen)
	n, err := lz4.UncompressBlock(data, dst)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}

// lz4MaxGuessSize caps Decompress's trial buffer. A block expanding past
// this without a frame header to vouch for it is treated as corrupt.
const lz4MaxGuessSize = 128 * 1024 * 1024

// Decompress decompresses a bare block with no recorded original size,
// retrying with a doubled buffer while the block does not fit.
func (c LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	for size := len(data) * 4; size <= lz4MaxGuessSize; size *= 2 {
		dst := make([]byte, size)
		n, err := lz4.UncompressBlock(data, dst)
		if err != nil {
			if errors.Is(err, lz4.ErrInvalidSourceShortBuffer) {
				continue
			}
			return nil, err
		}
		return dst[:n], nil
	}

	return nil, lz4.ErrInvalidSourceShortBuffer
}
