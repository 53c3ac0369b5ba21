package encode

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btoon-io/btoon/decode"
	"github.com/btoon-io/btoon/value"
)

func row(fields ...value.Field) value.Value {
	return value.Map(fields)
}

func userRow(id int, name, email string, active bool) value.Value {
	return row(
		value.Field{Key: "id", Val: value.Int(int64(id))},
		value.Field{Key: "name", Val: value.String(name)},
		value.Field{Key: "email", Val: value.String(email)},
		value.Field{Key: "active", Val: value.Bool(active)},
	)
}

func userTable(n int) value.Value {
	rows := make([]value.Value, n)
	for i := range rows {
		rows[i] = userRow(i, fmt.Sprintf("user%d", i), fmt.Sprintf("user%d@example.com", i), i%2 == 0)
	}
	return value.Array(rows)
}

func TestIsTabular(t *testing.T) {
	tests := []struct {
		name string
		v    value.Value
		want bool
	}{
		{"uniform rows", userTable(3), true},
		{"not an array", value.Int(1), false},
		{"too short", value.Array([]value.Value{userRow(1, "a", "a@x", true)}), false},
		{"empty", value.Array(nil), false},
		{"non-map element", value.Array([]value.Value{
			userRow(1, "a", "a@x", true),
			value.Int(2),
		}), false},
		{"empty maps have no columns to elide", value.Array([]value.Value{
			row(), row(),
		}), false},
		{"different keys", value.Array([]value.Value{
			row(value.Field{Key: "a", Val: value.Int(1)}),
			row(value.Field{Key: "b", Val: value.Int(2)}),
		}), false},
		{"same keys different order", value.Array([]value.Value{
			row(value.Field{Key: "a", Val: value.Int(1)}, value.Field{Key: "b", Val: value.Int(2)}),
			row(value.Field{Key: "b", Val: value.Int(2)}, value.Field{Key: "a", Val: value.Int(1)}),
		}), false},
		{"map-valued column", value.Array([]value.Value{
			row(value.Field{Key: "a", Val: row(value.Field{Key: "x", Val: value.Nil})}),
			row(value.Field{Key: "a", Val: row(value.Field{Key: "x", Val: value.Nil})}),
		}), false},
		{"nested tabular column", value.Array([]value.Value{
			row(value.Field{Key: "a", Val: userTable(2)}),
			row(value.Field{Key: "a", Val: userTable(2)}),
		}), false},
		{"non-uniform array column is fine", value.Array([]value.Value{
			row(value.Field{Key: "a", Val: value.Array([]value.Value{value.Int(1), value.String("x")})}),
			row(value.Field{Key: "a", Val: value.Nil}),
		}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTabular(tt.v))
		})
	}
}

func TestTabular_RoundTrip(t *testing.T) {
	table := userTable(100)

	b := encodeValue(t, table, WithAutoTabular(true))
	back, err := decode.Decode(b, nil)
	require.NoError(t, err)

	require.Equal(t, value.KindArray, back.Kind())
	require.Len(t, back.AsArray(), 100)
	assert.True(t, value.Equal(table, back), "tabular round trip changed the value")

	// Reconstructed maps carry keys in column-header order.
	first := back.AsArray()[0].AsMap()
	assert.Equal(t, "id", first[0].Key)
	assert.Equal(t, "name", first[1].Key)
	assert.Equal(t, "email", first[2].Key)
	assert.Equal(t, "active", first[3].Key)
}

func TestTabular_SmallerThanNaive(t *testing.T) {
	// Tabular must come in under 0.8x the naive encoding for this shape.
	table := userTable(100)

	tabular := encodeValue(t, table, WithAutoTabular(true))
	naive := encodeValue(t, table, WithAutoTabular(false))

	assert.Less(t, len(tabular), len(naive)*8/10,
		"tabular %d bytes, naive %d bytes", len(tabular), len(naive))
}

func TestTabular_EmitsExtensionMarker(t *testing.T) {
	b := encodeValue(t, userTable(2), WithAutoTabular(true))

	// Outer marker must be an ext family so foreign MessagePack decoders
	// surface the block as an opaque extension.
	switch b[0] {
	case 0xc7, 0xc8, 0xc9, 0xd4, 0xd5, 0xd6, 0xd7, 0xd8:
	default:
		t.Fatalf("expected an ext marker, got 0x%02x", b[0])
	}
}

func TestTabular_DisabledEncodesNaively(t *testing.T) {
	b := encodeValue(t, userTable(2), WithAutoTabular(false))
	assert.Equal(t, byte(0x92), b[0], "expected a plain fixarray")
}

func TestTabular_NoEffectOnNonTabularArrays(t *testing.T) {
	v := value.Array([]value.Value{value.Int(1), value.Int(2)})
	assert.Equal(t, encodeValue(t, v, WithAutoTabular(true)), encodeValue(t, v, WithAutoTabular(false)))
}

func TestTabular_NestedInsideOtherStructures(t *testing.T) {
	// The rewrite triggers independently at each array site, including
	// below a map.
	v := row(
		value.Field{Key: "users", Val: userTable(5)},
		value.Field{Key: "total", Val: value.Int(5)},
	)

	b := encodeValue(t, v, WithAutoTabular(true))
	back, err := decode.Decode(b, nil)
	require.NoError(t, err)
	assert.True(t, value.Equal(v, back))
}

func TestTabular_HeterogeneousColumns(t *testing.T) {
	table := value.Array([]value.Value{
		row(value.Field{Key: "v", Val: value.Int(-5)}, value.Field{Key: "w", Val: value.Nil}),
		row(value.Field{Key: "v", Val: value.String("mixed")}, value.Field{Key: "w", Val: value.Date(1000)}),
		row(value.Field{Key: "v", Val: value.Float(2.5)}, value.Field{Key: "w", Val: value.Binary([]byte{9})}),
	})
	require.True(t, IsTabular(table))

	b := encodeValue(t, table)
	back, err := decode.Decode(b, nil)
	require.NoError(t, err)
	assert.True(t, value.Equal(table, back))
}

func TestTabular_ValidatorAcceptsBlock(t *testing.T) {
	b := encodeValue(t, userTable(10))
	r := decode.Validate(b, nil)
	assert.True(t, r.Valid, "validator rejected a well-formed tabular block: %s at %d", r.ErrorKind, r.Position)
}

func BenchmarkEncodeTabular(b *testing.B) {
	table := userTable(100)
	opts := NewOptions()
	for b.Loop() {
		if _, err := Encode(table, opts); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkIsTabular(b *testing.B) {
	table := userTable(100)
	for b.Loop() {
		IsTabular(table)
	}
}
