package core

import (
	"math"
	"math/rand/v2"
)

// RNG is a thin convenience wrapper around math/rand/v2 for deterministic seeding.
// Every stochastic decision of a run draws from one RNG so that a seed fully
// determines the outcome.
type RNG struct {
	r *rand.Rand
}

// NewRNG creates a deterministic RNG using the provided seed.
func NewRNG(seed int64) *RNG {
	return &RNG{r: rand.New(rand.NewPCG(uint64(seed), 0))}
}

// Float64 returns a uniform draw in [0, 1).
func (r *RNG) Float64() float64 {
	return r.r.Float64()
}

// IntN returns a uniform integer in [0, n). It returns 0 when n <= 0.
func (r *RNG) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return r.r.IntN(n)
}

// Bool returns a random boolean value.
func (r *RNG) Bool() bool {
	return r.r.IntN(2) == 1
}

// Chance reports whether a uniform draw falls below p.
func (r *RNG) Chance(p float64) bool {
	return r.r.Float64() < p
}

// Bernoulli rounds x stochastically: the integer part is always returned and
// one more unit is added with probability equal to the fractional part. A
// uniform is drawn only when the fractional part is non-zero. Negative inputs
// round to zero.
func (r *RNG) Bernoulli(x float64) int {
	if x <= 0 {
		return 0
	}
	whole := math.Floor(x)
	n := int(whole)
	if frac := x - whole; frac > 0 && r.r.Float64() < frac {
		n++
	}
	return n
}
