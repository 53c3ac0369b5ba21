package encode

import (
	"fmt"

	"github.com/btoon-io/btoon/format"
	"github.com/btoon-io/btoon/internal/options"
)

// Options holds the encode-time configuration: the
// auto-tabular rewrite toggle and the optional compression framing.
type Options struct {
	autoTabular bool

	compress         bool
	compressionType  format.CompressionType
	compressionLevel int
}

// NewOptions returns the default encode configuration: auto-tabular on,
// compression off. When compression is later enabled without naming an
// algorithm, Zstd is used.
func NewOptions() *Options {
	return &Options{
		autoTabular:     true,
		compressionType: format.CompressionZstd,
	}
}

// Option configures an Options via the functional-options pattern.
type Option = options.Option[*Options]

// WithAutoTabular toggles the auto-tabular rewrite pass. On by
// default; turning it off encodes every array naively.
func WithAutoTabular(auto bool) Option {
	return options.NoError(func(o *Options) {
		o.autoTabular = auto
	})
}

// WithCompression wraps the encoded output in the
// <algo_tag><original_len><compressed bytes> frame.
func WithCompression(compress bool) Option {
	return options.NoError(func(o *Options) {
		o.compress = compress
	})
}

// WithCompressionType selects the compression algorithm used when
// compression is enabled.
func WithCompressionType(t format.CompressionType) Option {
	return options.New(func(o *Options) error {
		switch t {
		case format.CompressionNone, format.CompressionZlib, format.CompressionLZ4, format.CompressionZstd:
			o.compressionType = t
			return nil
		default:
			return fmt.Errorf("invalid compression type: %d", t)
		}
	})
}

// WithCompressionLevel sets the compression level passed to the underlying
// codec. Zero means the codec's default. The meaning of non-zero values is
// algorithm-specific.
func WithCompressionLevel(level int) Option {
	return options.NoError(func(o *Options) {
		o.compressionLevel = level
	})
}

// Apply applies opts in order on top of NewOptions' defaults.
func Apply(opts ...Option) (*Options, error) {
	o := NewOptions()
	if err := options.Apply(o, opts...); err != nil {
		return nil, err
	}
	return o, nil
}
