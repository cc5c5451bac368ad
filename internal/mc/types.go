package mc

import (
	"github.com/SpeckFleck/mocasinns/internal/histogram"
)

// Energy is the constraint on energy types. Energies are used as histogram
// bins, so they must be numeric.
type Energy interface {
	histogram.Number
}

// RandomSource yields uniform doubles in [0, 1).
type RandomSource interface {
	Float64() float64
	Seed(seed uint64)
}

// Step is a proposed mutation of the configuration it was proposed against.
type Step[E Energy] interface {
	// Executable reports whether the step may be applied at all. A step
	// that is not executable is treated as a null move.
	Executable() bool
	// DeltaE is the energy change the step would cause.
	DeltaE() E
	// SelectionProbabilityFactor is the ratio of the forward to the
	// reverse proposal probability. Symmetric proposals return 1.
	SelectionProbabilityFactor() float64
	// Execute applies the step.
	Execute()
}

// Configuration is the state space walked by the engines.
type Configuration[E Energy] interface {
	ProposeStep(rng RandomSource) Step[E]
	SystemSize() int
	Energy() E
}

// Observable measures a configuration.
type Observable[E Energy, T any] func(Configuration[E]) T

// Intn returns a uniform integer in [0, n) drawn from rng.
func Intn(rng RandomSource, n int) int {
	i := int(rng.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}
