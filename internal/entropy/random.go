// Package entropy provides the single seeded random stream a generation run
// draws from. Every random decision in the pipeline goes through one Stream so
// that a fixed seed and template reproduce the same map bit for bit.
// Seeds themselves come from crypto/rand when the caller does not pick one.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	mrand "math/rand"
)

// Stream is a deterministic random source. It is not safe for concurrent use;
// a generation run owns exactly one.
type Stream struct {
	seed int64
	rng  *mrand.Rand
}

// NewStream creates a stream seeded with seed.
func NewStream(seed int64) *Stream {
	return &Stream{
		seed: seed,
		rng:  mrand.New(mrand.NewSource(seed)),
	}
}

// Seed returns the seed the stream was last (re)seeded with.
func (s *Stream) Seed() int64 {
	return s.seed
}

// Reseed resets the stream so the next draws repeat the sequence of seed.
func (s *Stream) Reseed(seed int64) {
	s.seed = seed
	s.rng.Seed(seed)
}

// Intn returns a uniform int in [0, n). Returns 0 when n <= 0.
func (s *Stream) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return s.rng.Intn(n)
}

// IntRange returns a uniform int in the closed range [min, max].
// The bounds are swapped when given in the wrong order.
func (s *Stream) IntRange(min, max int) int {
	if max < min {
		min, max = max, min
	}
	return min + s.rng.Intn(max-min+1)
}

// Float64 returns a uniform float in [0, 1).
func (s *Stream) Float64() float64 {
	return s.rng.Float64()
}

// FloatRange returns a uniform float in [min, max).
func (s *Stream) FloatRange(min, max float64) float64 {
	return min + s.rng.Float64()*(max-min)
}

// Shuffle permutes n elements in place through swap.
func (s *Stream) Shuffle(n int, swap func(i, j int)) {
	s.rng.Shuffle(n, swap)
}

// Composition splits total into parts non-negative integers summing exactly to
// total. Dividers are drawn uniformly over [0, total], sorted, and the parts are
// the differences between consecutive dividers.
func (s *Stream) Composition(total, parts int) []int {
	if parts <= 0 {
		return nil
	}
	if total < 0 {
		total = 0
	}
	dividers := make([]int, parts+1)
	dividers[0] = 0
	dividers[parts] = total
	for i := 1; i < parts; i++ {
		dividers[i] = s.IntRange(0, total)
	}
	sortInts(dividers[1:parts])

	result := make([]int, parts)
	for i := 0; i < parts; i++ {
		result[i] = dividers[i+1] - dividers[i]
	}
	return result
}

// sortInts is an insertion sort; compositions have few dividers.
func sortInts(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j] < a[j-1]; j-- {
			a[j], a[j-1] = a[j-1], a[j]
		}
	}
}

// NewSeed returns a seed from crypto/rand, falling back to a fixed value if
// the system source fails.
func NewSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		slog.Warn("crypto seed unavailable, using fallback", "error", err)
		return 0x5eed
	}
	// Keep seeds positive so they read well in logs and URLs.
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
}
