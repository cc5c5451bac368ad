package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/SpeckFleck/mocasinns/internal/histogram"
	"github.com/SpeckFleck/mocasinns/internal/mc"
)

// Thermodynamics holds canonical averages at one inverse temperature.
// FreeEnergy and Entropy carry the additive constant of the density of
// states; normalise it first for absolute values.
type Thermodynamics struct {
	Beta           float64 `json:"beta"`
	LnZ            float64 `json:"ln_z"`
	InternalEnergy float64 `json:"internal_energy"`
	SpecificHeat   float64 `json:"specific_heat"`
	FreeEnergy     float64 `json:"free_energy"`
	Entropy        float64 `json:"entropy"`
}

// Canonical evaluates the canonical ensemble at beta from ln g(E).
//
// Z = sum_E g(E) exp(-beta E) is accumulated in log space, so estimates
// spanning hundreds of orders of magnitude stay finite.
func Canonical[E histogram.Number](dos *histogram.Histogram[E, float64], beta float64) (Thermodynamics, error) {
	if dos.Len() == 0 {
		return Thermodynamics{}, ErrEmpty
	}
	if !(beta > 0) || math.IsInf(beta, 0) {
		return Thermodynamics{}, fmt.Errorf("%w: beta must be positive and finite, got %g", mc.ErrParameterBounds, beta)
	}

	energies, weights := Series(dos)
	for i, e := range energies {
		weights[i] -= beta * e
	}
	lnZ := floats.LogSumExp(weights)
	for i := range weights {
		weights[i] = math.Exp(weights[i] - lnZ)
	}

	u := stat.Mean(energies, weights)
	varE := stat.Moment(2, energies, weights)
	f := -lnZ / beta
	return Thermodynamics{
		Beta:           beta,
		LnZ:            lnZ,
		InternalEnergy: u,
		SpecificHeat:   beta * beta * varE,
		FreeEnergy:     f,
		Entropy:        beta * (u - f),
	}, nil
}

// CanonicalRange evaluates Canonical for each beta.
func CanonicalRange[E histogram.Number](dos *histogram.Histogram[E, float64], betas []float64) ([]Thermodynamics, error) {
	out := make([]Thermodynamics, 0, len(betas))
	for _, b := range betas {
		t, err := Canonical(dos, b)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
