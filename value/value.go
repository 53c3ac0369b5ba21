// Package value defines the closed tagged union BTOON decodes into and
// encodes from. A Value is immutable once constructed; the
// decoder never retains references into its input buffer past the return
// of Decode, so every Value it produces owns its own memory.
package value

import "math/big"

// Kind identifies which alternative of the Value union is populated.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindBinary
	KindArray
	KindMap
	KindExtension
	KindDate
	KindBigInt
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBinary:
		return "binary"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindExtension:
		return "extension"
	case KindDate:
		return "date"
	case KindBigInt:
		return "bigint"
	default:
		return "unknown"
	}
}

// Field is one (key, value) pair of a Map, kept in insertion order.
type Field struct {
	Key string
	Val Value
}

// Value is the closed tagged sum over the BTOON data model. Exactly one of its fields
// is meaningful for a given Kind; callers should dispatch on Kind rather
// than probe fields directly.
type Value struct {
	kind Kind

	boolVal   bool
	intVal    int64
	uintVal   uint64
	floatVal  float64
	stringVal string
	binVal    []byte

	arrayVal []Value
	mapVal   []Field

	extType int8
	extData []byte

	dateVal int64 // ms since Unix epoch

	bigIntVal []byte // two's-complement big-endian
}

// Kind reports which alternative is populated.
func (v Value) Kind() Kind { return v.kind }

// Nil is the absent value.
var Nil = Value{kind: KindNil}

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, boolVal: b} }

// Int wraps a signed 64-bit integer.
func Int(i int64) Value { return Value{kind: KindInt, intVal: i} }

// Uint wraps an unsigned 64-bit integer.
func Uint(u uint64) Value { return Value{kind: KindUint, uintVal: u} }

// Float wraps an IEEE-754 double.
func Float(f float64) Value { return Value{kind: KindFloat, floatVal: f} }

// String wraps a UTF-8 string.
func String(s string) Value { return Value{kind: KindString, stringVal: s} }

// Binary wraps an opaque byte sequence. b is retained, not copied.
func Binary(b []byte) Value { return Value{kind: KindBinary, binVal: b} }

// Array wraps an ordered sequence of Values. elems is retained, not copied.
func Array(elems []Value) Value { return Value{kind: KindArray, arrayVal: elems} }

// Map wraps an ordered sequence of key/value Fields. fields is retained,
// not copied.
func Map(fields []Field) Value { return Value{kind: KindMap, mapVal: fields} }

// Extension wraps an opaque extension type/data pair. Use Date or
// BigIntBytes to construct the reserved type 0 and 1 extensions; any other
// type code is passed through unchanged by the encoder and decoder.
func Extension(typ int8, data []byte) Value {
	return Value{kind: KindExtension, extType: typ, extData: data}
}

// Date wraps a millisecond offset from the Unix epoch (extension type 0).
func Date(msSinceEpoch int64) Value { return Value{kind: KindDate, dateVal: msSinceEpoch} }

// BigIntBytes wraps an arbitrary-precision integer as two's-complement
// big-endian bytes (extension type 1). b is retained, not copied.
func BigIntBytes(b []byte) Value { return Value{kind: KindBigInt, bigIntVal: b} }

// BigInt wraps a math/big.Int, converting it to the two's-complement
// big-endian byte form the wire format requires.
func BigInt(i *big.Int) Value {
	return Value{kind: KindBigInt, bigIntVal: bigIntToTwosComplement(i)}
}

// AsBool returns the boolean payload. The caller must check Kind() == KindBool.
func (v Value) AsBool() bool { return v.boolVal }

// AsInt returns the signed integer payload.
func (v Value) AsInt() int64 { return v.intVal }

// AsUint returns the unsigned integer payload.
func (v Value) AsUint() uint64 { return v.uintVal }

// AsFloat returns the float payload.
func (v Value) AsFloat() float64 { return v.floatVal }

// AsString returns the string payload.
func (v Value) AsString() string { return v.stringVal }

// AsBinary returns the binary payload. The returned slice is owned by v and
// must not be mutated.
func (v Value) AsBinary() []byte { return v.binVal }

// AsArray returns the array elements. The returned slice is owned by v and
// must not be mutated.
func (v Value) AsArray() []Value { return v.arrayVal }

// AsMap returns the map fields in insertion order. The returned slice is
// owned by v and must not be mutated.
func (v Value) AsMap() []Field { return v.mapVal }

// ExtensionType returns the extension's type tag.
func (v Value) ExtensionType() int8 { return v.extType }

// ExtensionData returns the extension's raw payload.
func (v Value) ExtensionData() []byte { return v.extData }

// AsDateMillis returns the Date payload as milliseconds since Unix epoch.
func (v Value) AsDateMillis() int64 { return v.dateVal }

// AsBigIntBytes returns the BigInt payload as two's-complement big-endian
// bytes.
func (v Value) AsBigIntBytes() []byte { return v.bigIntVal }

// AsBigInt converts the BigInt payload into a math/big.Int.
func (v Value) AsBigInt() *big.Int {
	return bigIntFromTwosComplement(v.bigIntVal)
}

// MapGet looks up a key in a Map value, returning the value and whether it
// was found. On duplicate keys, last-wins.
func (v Value) MapGet(key string) (Value, bool) {
	var found Value
	ok := false
	for _, f := range v.mapVal {
		if f.Key == key {
			found = f.Val
			ok = true
		}
	}
	return found, ok
}

func bigIntToTwosComplement(i *big.Int) []byte {
	if i.Sign() == 0 {
		return []byte{0x00}
	}
	if i.Sign() > 0 {
		b := i.Bytes()
		if b[0]&0x80 != 0 {
			b = append([]byte{0x00}, b...)
		}
		return b
	}

	// Negative: two's complement over the minimal number of bytes that can
	// represent i, i.e. (-i)-1 bit-inverted.
	m := new(big.Int).Sub(new(big.Int).Abs(i), big.NewInt(1))
	nBytes := (m.BitLen() + 8) / 8
	mod := new(big.Int).Lsh(big.NewInt(1), uint(nBytes)*8)
	twos := new(big.Int).Add(mod, i)
	b := twos.Bytes()
	out := make([]byte, nBytes)
	copy(out[nBytes-len(b):], b)
	return out
}

func bigIntFromTwosComplement(b []byte) *big.Int {
	if len(b) == 0 {
		return big.NewInt(0)
	}

	result := new(big.Int).SetBytes(b)
	if b[0]&0x80 != 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(len(b))*8)
		result.Sub(result, mod)
	}
	return result
}
