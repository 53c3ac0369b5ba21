// Package cursor implements the length-checked cursor the validator and
// decoder read through. It never allocates and never copies;
// every returned slice borrows from the input for the lifetime of the
// decode call.
package cursor

import (
	"github.com/btoon-io/btoon/endian"
	"github.com/btoon-io/btoon/errs"
)

var engine = endian.GetBigEndianEngine()

// Cursor is a read-only, bounds-checked view over an immutable byte span.
// It is not safe for concurrent use by multiple goroutines, but distinct
// Cursors over distinct inputs are fully independent.
type Cursor struct {
	data []byte
	pos  int
}

// New creates a Cursor positioned at the start of data. data is not copied;
// the caller must not mutate it while the Cursor is in use.
func New(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Position returns the current byte offset.
func (c *Cursor) Position() int {
	return c.pos
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.data) - c.pos
}

// Len returns the total length of the underlying span.
func (c *Cursor) Len() int {
	return len(c.data)
}

// PeekByte returns the next byte without advancing the cursor.
func (c *Cursor) PeekByte() (byte, error) {
	if c.pos >= len(c.data) {
		return 0, errs.New(errs.Truncated, c.pos, "need 1 more byte, have 0")
	}
	return c.data[c.pos], nil
}

// ReadByte reads and consumes one byte.
func (c *Cursor) ReadByte() (byte, error) {
	b, err := c.PeekByte()
	if err != nil {
		return 0, err
	}
	c.pos++
	return b, nil
}

// ReadBytes reads and consumes n bytes, returning a slice that borrows from
// the underlying span. The returned slice is valid only until the input
// byte slice is discarded by the caller.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, errs.New(errs.InvalidLength, c.pos, "negative length %d", n)
	}
	if n > c.Remaining() {
		return nil, errs.New(errs.InvalidLength, c.pos, "declared length %d exceeds remaining %d bytes", n, c.Remaining())
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Skip advances the cursor by n bytes without returning them.
func (c *Cursor) Skip(n int) error {
	if n < 0 {
		return errs.New(errs.InvalidLength, c.pos, "negative skip %d", n)
	}
	if n > c.Remaining() {
		return errs.New(errs.InvalidLength, c.pos, "skip of %d exceeds remaining %d bytes", n, c.Remaining())
	}
	c.pos += n
	return nil
}

// ReadUint8 reads one byte as an unsigned 8-bit integer.
func (c *Cursor) ReadUint8() (uint8, error) {
	b, err := c.ReadByte()
	return b, err
}

// ReadUint16 reads two big-endian bytes as an unsigned 16-bit integer.
func (c *Cursor) ReadUint16() (uint16, error) {
	b, err := c.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return engine.Uint16(b), nil
}

// ReadUint32 reads four big-endian bytes as an unsigned 32-bit integer.
func (c *Cursor) ReadUint32() (uint32, error) {
	b, err := c.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return engine.Uint32(b), nil
}

// ReadUint64 reads eight big-endian bytes as an unsigned 64-bit integer.
func (c *Cursor) ReadUint64() (uint64, error) {
	b, err := c.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return engine.Uint64(b), nil
}
