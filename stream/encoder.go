// Package stream frames successive BTOON values over a byte sink or
// source. Values carry their own lengths on the wire, so the stream
// needs no delimiter: the encoder concatenates encodings, and the decoder
// splits them back apart one value at a time, cooperating with sources
// that yield bytes on demand.
package stream

import (
	"fmt"
	"io"

	"github.com/btoon-io/btoon/encode"
	"github.com/btoon-io/btoon/value"
)

// Encoder writes successive values to a byte sink. It is not safe for
// concurrent use.
//
// The compression options from the encode package apply to whole buffers,
// not streams; a compression frame hides the value boundaries the decoder
// splits on, so stream encoding always writes uncompressed values. Wrap
// the sink itself in a compressing writer to compress a whole stream.
type Encoder struct {
	w      io.Writer
	opts   *encode.Options
	closed bool
}

// NewEncoder creates an Encoder writing to w.
func NewEncoder(w io.Writer, opts ...encode.Option) (*Encoder, error) {
	o, err := encode.Apply(append(opts, encode.WithCompression(false))...)
	if err != nil {
		return nil, err
	}
	return &Encoder{w: w, opts: o}, nil
}

// Write encodes v and appends its bytes to the sink. On an encode failure
// nothing is written; on a sink failure a prefix of the value may have
// been written and the stream should be abandoned.
func (e *Encoder) Write(v value.Value) error {
	if e.closed {
		return io.ErrClosedPipe
	}

	b, err := encode.Encode(v, e.opts)
	if err != nil {
		return err
	}

	if _, err := e.w.Write(b); err != nil {
		return fmt.Errorf("stream: write failed: %w", err)
	}
	return nil
}

// Close marks the encoder closed and flushes the sink if it supports it.
// The sink itself is not closed; it is owned by the caller.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	if f, ok := e.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}
