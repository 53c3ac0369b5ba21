package stream

import (
	"errors"
	"io"

	"github.com/btoon-io/btoon/decode"
	"github.com/btoon-io/btoon/errs"
	"github.com/btoon-io/btoon/internal/pool"
	"github.com/btoon-io/btoon/value"
)

// ErrPending is returned by Read when the buffered bytes end mid-value and
// the source has no more bytes available right now. The partial prefix is
// retained; feed more bytes (or let the source produce them) and call Read
// again.
var ErrPending = errors.New("btoon/stream: need more bytes")

// readChunkSize is how much Read pulls from the source per attempt.
const readChunkSize = 4096

// Decoder reads values one at a time from a byte source. It is not safe
// for concurrent use.
//
// End-of-stream is signalled by source exhaustion between values: Read
// returns io.EOF. Exhaustion mid-value is a Truncated error. Partial state
// is preserved across ErrPending returns and cleared on any other error.
type Decoder struct {
	src  io.Reader // nil when the decoder is fed manually
	opts *decode.Options

	buf *pool.ByteBuffer
	err error // sticky terminal error
}

// NewDecoder creates a Decoder pulling from src. A nil src builds a
// feed-driven decoder: supply bytes with Feed and poll Read, which returns
// ErrPending until a whole value is buffered.
func NewDecoder(src io.Reader, opts ...decode.Option) (*Decoder, error) {
	o, err := decode.Apply(opts...)
	if err != nil {
		return nil, err
	}
	if o.Decompress() {
		return nil, errs.New(errs.CompressionError, -1, "compression framing is not supported on streams")
	}
	return &Decoder{src: src, opts: o, buf: pool.GetStreamBuffer()}, nil
}

// Feed appends bytes for the next Read attempts. It is how a caller drives
// a decoder with no source; with a source attached it can still be used to
// inject an already-buffered prefix.
func (d *Decoder) Feed(p []byte) {
	if d.err != nil {
		return
	}
	d.buf.MustWrite(p)
}

// Buffered returns how many unconsumed bytes the decoder is holding.
func (d *Decoder) Buffered() int {
	return d.buf.Len()
}

// Close releases the retained buffer. The source is not closed; it is
// owned by the caller. After Close, Read returns io.EOF.
func (d *Decoder) Close() {
	d.release()
	if d.err == nil {
		d.err = io.EOF
	}
}

// Read returns the next value from the stream. It returns ErrPending when
// more bytes are needed, io.EOF at a clean end-of-stream, or a terminal
// error. After a terminal error every subsequent Read returns it again.
func (d *Decoder) Read() (value.Value, error) {
	if d.err != nil {
		return value.Nil, d.err
	}

	for {
		if d.buf.Len() > 0 {
			v, consumed, err := decode.DecodeAt(d.buf.Bytes(), 0, d.opts)
			if err == nil {
				d.consume(consumed)
				return v, nil
			}
			if !needsMoreBytes(err) {
				return value.Nil, d.fail(err)
			}
			if max := d.opts.MaxTotalSize(); max > 0 && d.buf.Len() > max {
				return value.Nil, d.fail(errs.New(errs.SizeExceeded, 0, "buffered %d bytes without completing a value, max %d", d.buf.Len(), max))
			}
		}

		if d.src == nil {
			return value.Nil, ErrPending
		}

		n, err := d.fill()
		switch {
		case err == nil && n == 0:
			// The source had nothing for us right now.
			return value.Nil, ErrPending
		case errors.Is(err, io.EOF):
			if d.buf.Len() == 0 {
				d.release()
				d.err = io.EOF
				return value.Nil, io.EOF
			}
			// One more decode attempt: the final read may have completed
			// the value.
			v, consumed, derr := decode.DecodeAt(d.buf.Bytes(), 0, d.opts)
			if derr == nil {
				d.consume(consumed)
				return v, nil
			}
			if needsMoreBytes(derr) {
				derr = errs.New(errs.Truncated, d.buf.Len(), "stream ended mid-value with %d bytes buffered", d.buf.Len())
			}
			return value.Nil, d.fail(derr)
		case err != nil:
			return value.Nil, d.fail(errs.Wrap(errs.Truncated, -1, err))
		}
	}
}

// fill reads one chunk from the source into the retained buffer.
func (d *Decoder) fill() (int, error) {
	d.buf.Grow(readChunkSize)
	start := d.buf.Len()
	b := d.buf.B[start : start+readChunkSize]
	n, err := d.src.Read(b)
	d.buf.B = d.buf.B[: start+n : cap(d.buf.B)]
	return n, err
}

// consume drops n decoded bytes off the front, sliding the unread suffix
// down so the next value starts at offset zero.
func (d *Decoder) consume(n int) {
	remaining := copy(d.buf.B, d.buf.B[n:])
	d.buf.B = d.buf.B[:remaining]
}

// needsMoreBytes reports whether err could be cured by more input. In a
// partial buffer a declared length running past the end is
// indistinguishable from bytes that simply have not arrived yet, so both
// Truncated and InvalidLength count; every other kind is terminal.
func needsMoreBytes(err error) bool {
	return errors.Is(err, errs.ErrTruncated) || errors.Is(err, errs.ErrInvalidLength)
}

func (d *Decoder) fail(err error) error {
	d.release()
	d.err = err
	return err
}

func (d *Decoder) release() {
	if d.buf != nil {
		pool.PutStreamBuffer(d.buf)
		d.buf = pool.NewByteBuffer(0)
	}
}
