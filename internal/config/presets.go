package config

import "slices"

// CriticalBeta is the inverse critical temperature of the square-lattice
// Ising model, ln(1+sqrt(2))/2.
const CriticalBeta = 0.44068679350977147

var Presets = map[string]map[string]*Config{
	"ising": {
		"chain8": preset(func(c *Config) {
			c.Lattice = []int{8}
			c.WangLandau.ModificationFactorFinal = 1e-6
			c.WangLandau.SweepSteps = 1000
		}),
		"square10": preset(func(c *Config) {
			c.Lattice = []int{10, 10}
			c.WangLandau.ModificationFactorFinal = 1e-6
		}),
		"critical": preset(func(c *Config) {
			c.Lattice = []int{32, 32}
			c.Betas = []float64{CriticalBeta}
			c.Metropolis.RelaxationSteps = 100 * 32 * 32
			c.Metropolis.StepsBetweenMeasurement = 32 * 32
			c.Observable = "abs-magnetization"
		}),
		"sweep": preset(func(c *Config) {
			c.Lattice = []int{16, 16}
			c.Betas = []float64{0.2, 0.3, 0.4, CriticalBeta, 0.5, 0.6}
			c.Replicas = 4
		}),
		"cube6": preset(func(c *Config) {
			c.Lattice = []int{6, 6, 6}
			c.BinWidth = 8
			c.WangLandau.ModificationFactorFinal = 1e-5
		}),
	},
	"two-level": {
		"toy": preset(func(c *Config) {
			c.Model = "two-level"
			c.Degeneracy = 3
			c.WangLandau.ModificationFactorFinal = 1e-6
			c.WangLandau.SweepSteps = 1000
		}),
		"skewed": preset(func(c *Config) {
			c.Model = "two-level"
			c.Degeneracy = 1000
			c.WangLandau.ModificationFactorFinal = 1e-6
			c.WangLandau.SweepSteps = 10000
		}),
	},
}

func preset(mutate func(*Config)) *Config {
	c := DefaultConfig()
	mutate(c)
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
