package decode

import (
	"github.com/btoon-io/btoon/compress"
	"github.com/btoon-io/btoon/errs"
	"github.com/btoon-io/btoon/format"
	"github.com/btoon-io/btoon/internal/cursor"
)

// maybeDecompress strips the <algo_tag:u8><original_len:u32 BE><compressed
// bytes> frame when the decompress option is set, returning
// the decoded payload ready for validation or parsing. Without the option
// it returns data unchanged.
func maybeDecompress(data []byte, opts *Options) ([]byte, error) {
	if !opts.decompress {
		return data, nil
	}

	c := cursor.New(data)
	tag, err := c.ReadByte()
	if err != nil {
		return nil, err
	}
	originalLen, err := c.ReadUint32()
	if err != nil {
		return nil, err
	}

	if opts.maxTotalSize > 0 && uint64(originalLen) > uint64(opts.maxTotalSize) {
		return nil, errs.New(errs.SizeExceeded, 1, "declared uncompressed size %d exceeds max %d", originalLen, opts.maxTotalSize)
	}

	codec, err := compress.GetCodec(format.CompressionType(tag))
	if err != nil {
		return nil, errs.Wrap(errs.CompressionError, 0, err)
	}

	payload, err := c.ReadBytes(c.Remaining())
	if err != nil {
		return nil, err
	}

	var decompressed []byte
	if sized, ok := codec.(compress.SizedDecompressor); ok {
		// The frame's original_len bounds the destination exactly: it
		// sizes the output for codecs whose blocks don't record it, and
		// caps expansion before the length cross-check below for codecs
		// whose streams could claim otherwise.
		decompressed, err = sized.DecompressLen(payload, int(originalLen))
	} else {
		decompressed, err = codec.Decompress(payload)
	}
	if err != nil {
		return nil, errs.Wrap(errs.CompressionError, 5, err)
	}
	if len(decompressed) != int(originalLen) {
		return nil, errs.New(errs.CompressionError, 5, "decompressed to %d bytes, frame declared %d", len(decompressed), originalLen)
	}

	return decompressed, nil
}
