package wanglandau

import (
	"fmt"

	"github.com/SpeckFleck/mocasinns/internal/mc"
)

// Parameters controls the epoch schedule of a Wang-Landau run.
type Parameters struct {
	// ModificationFactorInitial is the log-scale increment of the first
	// epoch.
	ModificationFactorInitial float64 `yaml:"modification_factor_initial" json:"modification_factor_initial"`
	// ModificationFactorFinal ends the run once the factor drops below it.
	ModificationFactorFinal float64 `yaml:"modification_factor_final" json:"modification_factor_final"`
	// ModificationFactorMultiplier scales the factor after every flat
	// epoch. Must lie in (0, 1).
	ModificationFactorMultiplier float64 `yaml:"modification_factor_multiplier" json:"modification_factor_multiplier"`
	// Flatness is the min/mean visit ratio that ends an epoch.
	Flatness float64 `yaml:"flatness" json:"flatness"`
	// SweepSteps is the number of steps between flatness checks.
	// Zero means the system size.
	SweepSteps int `yaml:"sweep_steps" json:"sweep_steps"`
	// MaxSteps bounds the total number of steps of Run. Zero means
	// unbounded.
	MaxSteps int64 `yaml:"max_steps" json:"max_steps"`
}

func DefaultParameters() Parameters {
	return Parameters{
		ModificationFactorInitial:    1.0,
		ModificationFactorFinal:      1e-7,
		ModificationFactorMultiplier: 0.9,
		Flatness:                     0.8,
	}
}

func (p Parameters) Validate() error {
	if !(p.ModificationFactorInitial > 0) {
		return fmt.Errorf("%w: modification_factor_initial must be > 0, got %g", mc.ErrParameterBounds, p.ModificationFactorInitial)
	}
	if !(p.ModificationFactorFinal > 0) {
		return fmt.Errorf("%w: modification_factor_final must be > 0, got %g", mc.ErrParameterBounds, p.ModificationFactorFinal)
	}
	if !(p.ModificationFactorMultiplier > 0 && p.ModificationFactorMultiplier < 1) {
		return fmt.Errorf("%w: modification_factor_multiplier must be in (0, 1), got %g", mc.ErrParameterBounds, p.ModificationFactorMultiplier)
	}
	if !(p.Flatness > 0 && p.Flatness <= 1) {
		return fmt.Errorf("%w: flatness must be in (0, 1], got %g", mc.ErrParameterBounds, p.Flatness)
	}
	if p.SweepSteps < 0 {
		return fmt.Errorf("%w: sweep_steps must be >= 0, got %d", mc.ErrParameterBounds, p.SweepSteps)
	}
	if p.MaxSteps < 0 {
		return fmt.Errorf("%w: max_steps must be >= 0, got %d", mc.ErrParameterBounds, p.MaxSteps)
	}
	return nil
}

// Epochs returns the number of flat epochs needed to reach convergence.
func (p Parameters) Epochs() int {
	n := 0
	for f := p.ModificationFactorInitial; f >= p.ModificationFactorFinal; f *= p.ModificationFactorMultiplier {
		n++
	}
	return max(n, 1)
}
