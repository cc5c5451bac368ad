package models

import (
	"github.com/SpeckFleck/mocasinns/internal/histogram"
	"github.com/SpeckFleck/mocasinns/internal/mc"
)

type magnetized interface {
	Magnetization() int
}

// TotalEnergy observes the configuration energy.
func TotalEnergy(c mc.Configuration[int]) int {
	return c.Energy()
}

func EnergyPerSite(c mc.Configuration[int]) mc.Scalar {
	return mc.Scalar(float64(c.Energy()) / float64(c.SystemSize()))
}

// MagnetizationPerSite observes the mean spin. Configurations without
// spins report 0.
func MagnetizationPerSite(c mc.Configuration[int]) mc.Scalar {
	m, ok := c.(magnetized)
	if !ok {
		return 0
	}
	return mc.Scalar(float64(m.Magnetization()) / float64(c.SystemSize()))
}

func AbsMagnetizationPerSite(c mc.Configuration[int]) mc.Scalar {
	m := MagnetizationPerSite(c)
	if m < 0 {
		return -m
	}
	return m
}

// EnergyAndMagnetization observes both per-site values as a vector.
func EnergyAndMagnetization(c mc.Configuration[int]) mc.Vector {
	return mc.Vector{float64(EnergyPerSite(c)), float64(MagnetizationPerSite(c))}
}

// EnergyMagnetizationPair observes the total energy and magnetization as a
// joint histogram key. Configurations without spins report magnetization 0.
func EnergyMagnetizationPair(c mc.Configuration[int]) histogram.Pair[int] {
	p := histogram.Pair[int]{X: c.Energy()}
	if m, ok := c.(magnetized); ok {
		p.Y = m.Magnetization()
	}
	return p
}
