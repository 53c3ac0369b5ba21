// Package compress provides the compression trait BTOON's encode options and
// stream framing consume, plus three real-world implementations.
//
// BTOON treats the compression algorithms themselves as external
// collaborators: the core codec never compresses a Value. An
// encoder configured with encode.WithCompression(true) wraps its output bytes in the
// frame:
//
//	<algo_tag:u8><original_len:u32 BE><compressed bytes>
//
// and a decoder configured with decode.WithDecompress(true) detects and reverses it.
// This package supplies the Codec consumed on both ends.
//
// # Supported Algorithms
//
//   - None: passthrough, for callers that compress out-of-band or not at all.
//   - Zlib: github.com/klauspost/compress/zlib, a drop-in DEFLATE/zlib codec.
//   - LZ4: github.com/pierrec/lz4/v4, block-mode LZ4.
//   - Zstd: github.com/klauspost/compress/zstd, pure-Go Zstandard.
//
// Zlib pools its writers and LZ4 its block compressors in a sync.Pool; Zstd
// shares one lazily-built encoder and decoder. Compress and Decompress are
// safe for concurrent use.
package compress
