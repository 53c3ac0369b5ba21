package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/btoon-io/btoon/errs"
)

func TestValidate_Nil(t *testing.T) {
	r := Validate([]byte{0xc0}, nil)
	assert.True(t, r.Valid)
}

func TestValidate_ReservedMarker(t *testing.T) {
	r := Validate([]byte{0xc1}, nil)
	assert.False(t, r.Valid)
	assert.Equal(t, errs.InvalidMarker, r.ErrorKind)
}

func TestValidate_AdversarialArray32(t *testing.T) {
	r := Validate([]byte{0xdd, 0xff, 0xff, 0xff, 0xff}, nil)
	assert.False(t, r.Valid)
	assert.Equal(t, errs.InvalidLength, r.ErrorKind)
}

func TestValidate_MaxTotalSize(t *testing.T) {
	opts, err := Apply(WithMaxTotalSize(2))
	assert.NoError(t, err)

	r := Validate([]byte{0xc0, 0xc0, 0xc0}, opts)
	assert.False(t, r.Valid)
	assert.Equal(t, errs.SizeExceeded, r.ErrorKind)
}

func TestValidate_ImpliesDecodeSucceeds(t *testing.T) {
	cases := [][]byte{
		{0xc0},
		{0x7f},
		{0xff},
		append([]byte{0xa5}, "Hello"...),
		{0x93, 0x01, 0x02, 0x03},
		{0x82, 0xa1, 'a', 0x01, 0xa1, 'b', 0xc3},
		{0xd7, 0x00, 0, 0, 0, 0, 0, 0, 0x03, 0xe8},
	}

	for _, b := range cases {
		r := Validate(b, nil)
		assert.Truef(t, r.Valid, "expected %x to validate", b)

		_, err := Decode(b, nil)
		assert.NoErrorf(t, err, "validate(%x) said valid but decode failed: %v", b, err)
	}
}

// TestMarkerCoverage feeds a minimal well-formed payload for every marker
// byte 0x00-0xff and asserts either success or InvalidMarker for 0xc1, per
// the format's marker coverage contract.
func TestMarkerCoverage(t *testing.T) {
	for b := 0; b <= 0xff; b++ {
		payload := minimalPayloadFor(byte(b))

		_, err := Decode(payload, nil)
		if byte(b) == 0xc1 {
			assert.Errorf(t, err, "marker 0x%02x (reserved) should fail", b)
			if err != nil {
				assert.ErrorIsf(t, err, errs.ErrInvalidMarker, "marker 0x%02x", b)
			}
			continue
		}

		assert.NoErrorf(t, err, "marker 0x%02x should decode successfully with payload %x", b, payload)
	}
}

// minimalPayloadFor returns a minimal well-formed buffer whose leading byte
// is marker, sized so the declared payload is exactly satisfied.
func minimalPayloadFor(marker byte) []byte {
	switch {
	case marker <= 0x7f: // positive fixint
		return []byte{marker}
	case marker >= 0x80 && marker <= 0x8f: // fixmap, count = marker&0x0f
		count := int(marker & 0x0f)
		b := []byte{marker}
		for i := 0; i < count; i++ {
			b = append(b, 0xa1, 'k')
			b = append(b, 0xc0)
		}
		return b
	case marker >= 0x90 && marker <= 0x9f: // fixarray
		count := int(marker & 0x0f)
		b := []byte{marker}
		for i := 0; i < count; i++ {
			b = append(b, 0xc0)
		}
		return b
	case marker >= 0xa0 && marker <= 0xbf: // fixstr
		n := int(marker & 0x1f)
		b := []byte{marker}
		for i := 0; i < n; i++ {
			b = append(b, 'x')
		}
		return b
	case marker >= 0xe0: // negative fixint
		return []byte{marker}
	}

	switch marker {
	case 0xc0: // nil
		return []byte{0xc0}
	case 0xc1: // reserved
		return []byte{0xc1}
	case 0xc2, 0xc3: // false/true
		return []byte{marker}
	case 0xc4: // bin8
		return []byte{marker, 0x00}
	case 0xc5: // bin16
		return []byte{marker, 0x00, 0x00}
	case 0xc6: // bin32
		return []byte{marker, 0x00, 0x00, 0x00, 0x00}
	case 0xc7: // ext8
		return []byte{marker, 0x01, 0x05, 0xaa}
	case 0xc8: // ext16
		return []byte{marker, 0x00, 0x01, 0x05, 0xaa}
	case 0xc9: // ext32
		return []byte{marker, 0x00, 0x00, 0x00, 0x01, 0x05, 0xaa}
	case 0xca: // float32
		return []byte{marker, 0x00, 0x00, 0x00, 0x00}
	case 0xcb: // float64
		return []byte{marker, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	case 0xcc: // uint8
		return []byte{marker, 0x00}
	case 0xcd: // uint16
		return []byte{marker, 0x00, 0x00}
	case 0xce: // uint32
		return []byte{marker, 0x00, 0x00, 0x00, 0x00}
	case 0xcf: // uint64
		return []byte{marker, 0, 0, 0, 0, 0, 0, 0, 0}
	case 0xd0: // int8
		return []byte{marker, 0x00}
	case 0xd1: // int16
		return []byte{marker, 0x00, 0x00}
	case 0xd2: // int32
		return []byte{marker, 0x00, 0x00, 0x00, 0x00}
	case 0xd3: // int64
		return []byte{marker, 0, 0, 0, 0, 0, 0, 0, 0}
	case 0xd4: // fixext1
		return []byte{marker, 0x05, 0xaa}
	case 0xd5: // fixext2
		return []byte{marker, 0x05, 0xaa, 0xaa}
	case 0xd6: // fixext4
		return []byte{marker, 0x05, 0, 0, 0, 0}
	case 0xd7: // fixext8, use Date (type 0) so it round-trips as a typed value too
		return []byte{marker, 0x00, 0, 0, 0, 0, 0, 0, 0, 0}
	case 0xd8: // fixext16
		return append([]byte{marker, 0x05}, make([]byte, 16)...)
	case 0xd9: // str8
		return []byte{marker, 0x00}
	case 0xda: // str16
		return []byte{marker, 0x00, 0x00}
	case 0xdb: // str32
		return []byte{marker, 0x00, 0x00, 0x00, 0x00}
	case 0xdc: // array16
		return []byte{marker, 0x00, 0x00}
	case 0xdd: // array32
		return []byte{marker, 0x00, 0x00, 0x00, 0x00}
	case 0xde: // map16
		return []byte{marker, 0x00, 0x00}
	case 0xdf: // map32
		return []byte{marker, 0x00, 0x00, 0x00, 0x00}
	}

	return []byte{marker}
}
