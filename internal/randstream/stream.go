// Package randstream provides the explicit, seeded random stream threaded
// through population generation and every dimension model.
//
// A Stream is not safe for concurrent use. Each scenario run owns exactly one.
package randstream

import (
	"math"
	"math/rand/v2"
)

// seedMix decorrelates the two PCG state words derived from one seed.
const seedMix = 0x9E3779B97F4A7C15

// Stream is a deterministic source of uniform, Bernoulli and normal draws.
type Stream struct {
	seed int64
	rng  *rand.Rand
}

// New returns a stream seeded with seed. Two streams with the same seed
// produce identical draw sequences.
func New(seed int64) *Stream {
	s := uint64(seed)
	return &Stream{
		seed: seed,
		rng:  rand.New(rand.NewPCG(s, s^seedMix)),
	}
}

// ScenarioSeed derives the seed of the scenario declared at index from the
// configured base seed.
func ScenarioSeed(base int64, index int) int64 {
	return base + int64(index)
}

// Seed returns the seed the stream was created with.
func (s *Stream) Seed() int64 {
	return s.seed
}

// Float64 returns a uniform draw in [0, 1).
func (s *Stream) Float64() float64 {
	return s.rng.Float64()
}

// Bernoulli draws once and reports whether the draw fell below p.
// p <= 0 never succeeds and p >= 1 always does; a draw is consumed either way
// so that stream position does not depend on parameter values.
func (s *Stream) Bernoulli(p float64) bool {
	return s.rng.Float64() < p
}

// Uniform returns a uniform draw in [lo, hi). When lo == hi it returns lo.
func (s *Stream) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.rng.Float64()
}

// Normal returns a draw from N(mean, stddev²).
func (s *Stream) Normal(mean, stddev float64) float64 {
	return mean + stddev*s.rng.NormFloat64()
}

// Categorical picks an index from weights using one uniform draw. Weights are
// expected to sum to 1; the last positive-weight index absorbs rounding error.
func (s *Stream) Categorical(weights []float64) int {
	u := s.rng.Float64()
	cum := 0.0
	last := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		cum += w
		if u < cum {
			return i
		}
	}
	return last
}

// Clamp restricts v to [lo, hi]. NaN is returned unchanged so that callers
// checking invariants can still detect it.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 restricts v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}
