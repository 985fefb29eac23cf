package sdruntime

import (
	"crypto/rand"
	"encoding/binary"
)

// RandomSeed generates a cryptographically secure random seed for image generation.
// Returns a non-negative int64 suitable for reproducible generation requests.
func RandomSeed() int64 {
	var buf [8]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		// Fallback to a fixed seed if crypto/rand fails (extremely rare).
		// Better than panicking in production.
		return 42
	}

	// Mask the sign bit to guarantee a non-negative value
	seed := int64(binary.LittleEndian.Uint64(buf[:]) &^ (1 << 63))
	return seed
}
