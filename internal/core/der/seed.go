package der

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidSeed = errors.New("der: invalid seed")

const (
	// maxSeedDeviations bounds how far [0,1] may lie from the mean, in
	// standard deviations.
	maxSeedDeviations = 4
	maxSeedDraws      = 1 << 20
)

// Float64Source is the random source used to seed a simulated engine.
// *rand.Rand from math/rand/v2 satisfies it.
type Float64Source interface {
	NormFloat64() float64
}

// Seed describes the normal distribution the initial charge fraction is
// drawn from. A fraction of 1 means the import reservoir is full.
type Seed struct {
	Mean   float64 `mapstructure:"mean"`
	StdDev float64 `mapstructure:"std_dev"`
}

// Validate rejects seeds that cannot produce a fraction in [0,1] within a
// reasonable number of draws.
func (s Seed) Validate() error {
	if math.IsNaN(s.Mean) || math.IsNaN(s.StdDev) || math.IsInf(s.Mean, 0) || math.IsInf(s.StdDev, 0) {
		return fmt.Errorf("%w: mean and std_dev must be finite", ErrInvalidSeed)
	}
	if s.StdDev < 0 {
		return fmt.Errorf("%w: std_dev must be >= 0, got %g", ErrInvalidSeed, s.StdDev)
	}
	distance := math.Max(-s.Mean, s.Mean-1)
	if distance <= 0 {
		return nil
	}
	if s.StdDev == 0 {
		return fmt.Errorf("%w: mean %g is outside [0,1] with zero std_dev", ErrInvalidSeed, s.Mean)
	}
	if distance > maxSeedDeviations*s.StdDev {
		return fmt.Errorf("%w: mean %g is more than %d std_dev from [0,1]", ErrInvalidSeed, s.Mean, maxSeedDeviations)
	}
	return nil
}

// Draw samples the distribution until the result lies in [0,1], giving up
// after maxSeedDraws samples.
func (s Seed) Draw(rng Float64Source) (float64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	if rng == nil {
		return 0, fmt.Errorf("%w: nil random source", ErrInvalidSeed)
	}
	for range maxSeedDraws {
		p := s.Mean + s.StdDev*rng.NormFloat64()
		if p >= 0 && p <= 1 {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: no sample in [0,1] after %d draws", ErrInvalidSeed, maxSeedDraws)
}
