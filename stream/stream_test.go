package stream

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btoon-io/btoon/decode"
	"github.com/btoon-io/btoon/errs"
	"github.com/btoon-io/btoon/value"
)

func TestStream_RoundTrip(t *testing.T) {
	var buf bytes.Buffer

	enc, err := NewEncoder(&buf)
	require.NoError(t, err)

	vals := []value.Value{
		value.Nil,
		value.Int(-42),
		value.String("hello"),
		value.Array([]value.Value{value.Bool(true), value.Float(2.5)}),
		value.Map([]value.Field{{Key: "k", Val: value.Int(1)}}),
	}
	for _, v := range vals {
		require.NoError(t, enc.Write(v))
	}
	require.NoError(t, enc.Close())

	dec, err := NewDecoder(&buf)
	require.NoError(t, err)

	for i, want := range vals {
		got, err := dec.Read()
		require.NoErrorf(t, err, "value %d", i)
		assert.Truef(t, value.Equal(want, got), "value %d changed across the stream", i)
	}

	_, err = dec.Read()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStream_EmptySourceIsEOF(t *testing.T) {
	dec, err := NewDecoder(bytes.NewReader(nil))
	require.NoError(t, err)

	_, err = dec.Read()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStream_MidValueExhaustionIsTruncated(t *testing.T) {
	// fixstr len=5 but only 2 payload bytes arrive before EOF.
	dec, err := NewDecoder(bytes.NewReader([]byte{0xa5, 'H', 'e'}))
	require.NoError(t, err)

	_, err = dec.Read()
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrTruncated)

	// Terminal errors are sticky and clear the partial state.
	_, err2 := dec.Read()
	assert.ErrorIs(t, err2, errs.ErrTruncated)
	assert.Equal(t, 0, dec.Buffered())
}

func TestStream_FeedDrivenPending(t *testing.T) {
	dec, err := NewDecoder(nil)
	require.NoError(t, err)

	full := []byte{0xa5, 'H', 'e', 'l', 'l', 'o'}

	_, err = dec.Read()
	assert.ErrorIs(t, err, ErrPending)

	dec.Feed(full[:2])
	_, err = dec.Read()
	assert.ErrorIs(t, err, ErrPending, "partial value must stay pending")
	assert.Equal(t, 2, dec.Buffered(), "pending must retain the prefix")

	dec.Feed(full[2:])
	v, err := dec.Read()
	require.NoError(t, err)
	assert.Equal(t, "Hello", v.AsString())

	_, err = dec.Read()
	assert.ErrorIs(t, err, ErrPending)
}

func TestStream_FeedMultipleValuesAtOnce(t *testing.T) {
	dec, err := NewDecoder(nil)
	require.NoError(t, err)

	dec.Feed([]byte{0xc0, 0xc2, 0xc3})

	v, err := dec.Read()
	require.NoError(t, err)
	assert.Equal(t, value.KindNil, v.Kind())

	v, err = dec.Read()
	require.NoError(t, err)
	assert.False(t, v.AsBool())

	v, err = dec.Read()
	require.NoError(t, err)
	assert.True(t, v.AsBool())
}

func TestStream_InvalidMarkerIsTerminal(t *testing.T) {
	dec, err := NewDecoder(nil)
	require.NoError(t, err)

	dec.Feed([]byte{0xc1})
	_, err = dec.Read()
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidMarker)

	// Feeding after a terminal error is a no-op.
	dec.Feed([]byte{0xc0})
	_, err = dec.Read()
	assert.ErrorIs(t, err, errs.ErrInvalidMarker)
}

func TestStream_BufferBoundedByMaxTotalSize(t *testing.T) {
	dec, err := NewDecoder(nil, decode.WithMaxTotalSize(4))
	require.NoError(t, err)

	// str8 claiming 200 bytes; the buffer fills past the limit without
	// ever completing the value.
	dec.Feed([]byte{0xd9, 200, 'a', 'b', 'c', 'd', 'e'})
	_, err = dec.Read()
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrSizeExceeded)
}

func TestStream_DecompressOptionRejected(t *testing.T) {
	_, err := NewDecoder(nil, decode.WithDecompress(true))
	assert.Error(t, err)
}

func TestStream_ChunkedSource(t *testing.T) {
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf)
	require.NoError(t, err)

	want := value.Map([]value.Field{
		{Key: "name", Val: value.String("chunked")},
		{Key: "n", Val: value.Int(7)},
	})
	require.NoError(t, enc.Write(want))

	// One byte per Read call exercises the retained-prefix path.
	dec, err := NewDecoder(iotest(buf.Bytes()))
	require.NoError(t, err)

	got, err := dec.Read()
	require.NoError(t, err)
	assert.True(t, value.Equal(want, got))

	_, err = dec.Read()
	assert.ErrorIs(t, err, io.EOF)
}

func TestStream_WriteAfterClose(t *testing.T) {
	enc, err := NewEncoder(&bytes.Buffer{})
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	assert.Error(t, enc.Write(value.Nil))
}

// iotest returns a reader that yields one byte per Read call.
func iotest(b []byte) io.Reader {
	return &oneByteReader{data: b}
}

type oneByteReader struct {
	data []byte
	pos  int
}

func (r *oneByteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	p[0] = r.data[r.pos]
	r.pos++
	return 1, nil
}
