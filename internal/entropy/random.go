// Package entropy provides world seeds and the seeded random source threaded
// through generation.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	mrand "math/rand"
	"time"
)

// NewSeed returns a fresh non-zero seed from crypto/rand. Falls back to the
// clock if the system source fails.
func NewSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		slog.Warn("crypto seed unavailable, using clock", "error", err)
		return time.Now().UnixNano() | 1
	}
	// Keep 62 bits so the seed stays positive and printable.
	seed := int64(binary.LittleEndian.Uint64(buf[:]) >> 2)
	if seed == 0 {
		seed = 1
	}
	return seed
}

// Resolve returns seed, or a fresh seed when seed is zero.
func Resolve(seed int64) int64 {
	if seed == 0 {
		return NewSeed()
	}
	return seed
}

// Source returns the random stream for a world seed. Every stage that needs
// randomness draws from the same stream in pipeline order.
func Source(seed int64) *mrand.Rand {
	return mrand.New(mrand.NewSource(seed))
}
