package decode

import "github.com/btoon-io/btoon/internal/options"

// Default resource limits applied when an Option does not override them.
// These bound the validator and decoder against adversarial input;
// DefaultMaxDepth is the format's default nesting cap.
const (
	DefaultMaxDepth        = 100
	DefaultMaxTotalSize    = 64 * 1024 * 1024
	DefaultMaxStringLength = 16 * 1024 * 1024
	DefaultMaxBinaryLength = 16 * 1024 * 1024
	DefaultMaxArrayCount   = 1 << 20
	DefaultMaxMapCount     = 1 << 20
)

// Options holds the decode-time configuration: a strictness toggle, a
// fast-mode toggle, the resource limits the validator and decoder
// enforce, and whether the input carries the compression framing.
type Options struct {
	strict     bool
	fastMode   bool
	decompress bool

	maxDepth        int
	maxTotalSize    int
	maxStringLength int
	maxBinaryLength int
	maxArrayCount   int
	maxMapCount     int
}

// NewOptions returns the default decode configuration: strict UTF-8
// checking on, fast mode off, decompression off, and the package's default
// resource limits.
func NewOptions() *Options {
	return &Options{
		strict:          true,
		maxDepth:        DefaultMaxDepth,
		maxTotalSize:    DefaultMaxTotalSize,
		maxStringLength: DefaultMaxStringLength,
		maxBinaryLength: DefaultMaxBinaryLength,
		maxArrayCount:   DefaultMaxArrayCount,
		maxMapCount:     DefaultMaxMapCount,
	}
}

// Option configures an Options via the functional-options pattern.
type Option = options.Option[*Options]

// WithStrict toggles strict UTF-8 validation of string payloads. Strict is
// on by default.
func WithStrict(strict bool) Option {
	return options.NoError(func(o *Options) {
		o.strict = strict
	})
}

// WithFastMode skips UTF-8 checking while still enforcing counts and depth.
func WithFastMode(fast bool) Option {
	return options.NoError(func(o *Options) {
		o.fastMode = fast
	})
}

// WithDecompress tells the decoder the input carries the
// <algo_tag><original_len><compressed bytes> framing and must
// be decompressed before parsing.
func WithDecompress(decompress bool) Option {
	return options.NoError(func(o *Options) {
		o.decompress = decompress
	})
}

// WithMaxDepth caps nesting depth.
func WithMaxDepth(n int) Option {
	return options.NoError(func(o *Options) {
		o.maxDepth = n
	})
}

// WithMaxTotalSize rejects input buffers larger than n bytes outright.
func WithMaxTotalSize(n int) Option {
	return options.NoError(func(o *Options) {
		o.maxTotalSize = n
	})
}

// WithMaxStringLength caps the byte length of any single string payload.
func WithMaxStringLength(n int) Option {
	return options.NoError(func(o *Options) {
		o.maxStringLength = n
	})
}

// WithMaxBinaryLength caps the byte length of any single binary payload.
func WithMaxBinaryLength(n int) Option {
	return options.NoError(func(o *Options) {
		o.maxBinaryLength = n
	})
}

// WithMaxArrayCount caps the element count of any single array.
func WithMaxArrayCount(n int) Option {
	return options.NoError(func(o *Options) {
		o.maxArrayCount = n
	})
}

// WithMaxMapCount caps the entry count of any single map.
func WithMaxMapCount(n int) Option {
	return options.NoError(func(o *Options) {
		o.maxMapCount = n
	})
}

// MaxTotalSize returns the configured whole-buffer size limit. The stream
// package uses it to bound how many bytes it will buffer while waiting for
// a value to complete.
func (o *Options) MaxTotalSize() int {
	return o.maxTotalSize
}

// Decompress reports whether the compression framing option is set.
func (o *Options) Decompress() bool {
	return o.decompress
}

// Apply applies opts in order on top of NewOptions' defaults.
func Apply(opts ...Option) (*Options, error) {
	o := NewOptions()
	if err := options.Apply(o, opts...); err != nil {
		return nil, err
	}
	return o, nil
}
