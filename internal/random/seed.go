// Package random provides seed helpers for the math/rand sources used by the
// picker and the record writer.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// NewRand returns a source seeded with seed, or with a fresh crypto seed when
// seed is zero.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		s, err := NewSeed()
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		seed = s
	}
	return rand.New(rand.NewSource(seed))
}
