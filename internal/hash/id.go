// Package hash computes the xxHash64 fingerprints the tabular detector
// uses to compare map key sets in O(1) per row instead of re-walking every
// key string.
package hash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// ID computes the xxHash64 of the given string.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}

// KeyList computes the xxHash64 fingerprint of an ordered key list. Each
// key is length-prefixed before hashing so ["ab","c"] and ["a","bc"] hash
// differently. Two maps with equal fingerprints almost certainly share the
// same keys in the same order; callers that cannot tolerate a collision
// must confirm with a direct comparison after the fingerprints match.
func KeyList(keys []string) uint64 {
	d := xxhash.New()
	var lenBuf [4]byte
	for _, k := range keys {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(k)))
		_, _ = d.Write(lenBuf[:])
		_, _ = d.WriteString(k)
	}
	return d.Sum64()
}
