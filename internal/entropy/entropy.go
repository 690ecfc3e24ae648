// Package entropy derives the deterministic randomness used by world
// ticks. Every roll is keyed by (world year, country id) so a replayed
// tick reproduces the same events.
package entropy

import (
	"hash/fnv"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Fortune samples deterministic randomness for event rolls. The noise
// field gives each country smooth multi-year runs of good and bad luck
// instead of memoryless per-tick coin flips.
type Fortune struct {
	seed  int64
	noise opensimplex.Noise
}

// NewFortune creates a fortune source from the world seed.
func NewFortune(seed int64) *Fortune {
	return &Fortune{
		seed:  seed,
		noise: opensimplex.NewNormalized(seed),
	}
}

// Rand returns a PRNG seeded by (year, country id). Draws from it are
// reproducible for the same key and independent across keys.
func (f *Fortune) Rand(year, countryID int64) *rand.Rand {
	return rand.New(rand.NewSource(f.key(year, countryID)))
}

// Roll returns one deterministic float in [0, 1) for (year, country id).
func (f *Fortune) Roll(year, countryID int64) float64 {
	return f.Rand(year, countryID).Float64()
}

// Luck samples the fortune field in [0, 1] for (year, country id).
// Neighboring years yield correlated values.
func (f *Fortune) Luck(year, countryID int64) float64 {
	// Scale the year axis down so luck shifts over a handful of ticks;
	// spread countries far apart so their streaks are uncorrelated.
	return f.noise.Eval2(float64(year)*0.15, float64(countryID)*97.31)
}

func (f *Fortune) key(year, countryID int64) int64 {
	h := fnv.New64a()
	var buf [24]byte
	put := func(off int, v int64) {
		for i := 0; i < 8; i++ {
			buf[off+i] = byte(v >> (8 * i))
		}
	}
	put(0, f.seed)
	put(8, year)
	put(16, countryID)
	h.Write(buf[:])
	return int64(h.Sum64())
}
