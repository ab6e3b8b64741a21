// Package entropy provides the seedable random sources for a simulation run.
// One run seed fans out into independent named streams so that concurrent
// agent steps never share a *rand.Rand and a fixed seed replays exactly.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"hash/fnv"
	mrand "math/rand"
)

// Source derives deterministic random streams from a single run seed.
type Source struct {
	seed int64
}

// NewSource creates a source. A zero seed is replaced by one drawn from
// crypto/rand, so unseeded runs differ from each other.
func NewSource(seed int64) *Source {
	if seed == 0 {
		seed = CryptoSeed()
	}
	return &Source{seed: seed}
}

// Seed returns the effective run seed (useful for logging a replay handle).
func (s *Source) Seed() int64 {
	return s.seed
}

// Stream returns a new generator for the named consumer. The same seed and
// name always yield the same sequence.
func (s *Source) Stream(name string) *mrand.Rand {
	h := fnv.New64a()
	h.Write([]byte(name))
	return mrand.New(mrand.NewSource(s.seed ^ int64(h.Sum64())))
}

// CryptoSeed returns a non-zero seed from crypto/rand.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// This should never happen; any fixed non-zero seed keeps the run going.
		return 0x5eed
	}
	n := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if n == 0 {
		return 1
	}
	return n
}

// Uniform returns a float in [low, high).
func Uniform(r *mrand.Rand, low, high float64) float64 {
	return low + r.Float64()*(high-low)
}

// Bernoulli returns true with probability p.
func Bernoulli(r *mrand.Rand, p float64) bool {
	return r.Float64() < p
}

// IntRange returns an int in [low, high] inclusive.
func IntRange(r *mrand.Rand, low, high int) int {
	return low + r.Intn(high-low+1)
}
