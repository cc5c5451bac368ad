// Package mc defines the contracts between the Monte Carlo engines and the
// problem-specific code that plugs into them.
//
//   - [Configuration]: the sampled state space (e.g. a spin lattice)
//   - [Step]: a proposed mutation with its energy change and proposal asymmetry
//   - [RandomSource]: a seedable uniform [0,1) generator
//   - [Observable]: a measurement of a configuration
//   - [Algebra]: arithmetic for observable values ([Scalar], [Vector])
//
// # Example
//
//	lattice := models.NewIsing([]int{16, 16}, 1)
//	eng, _ := metropolis.New(metropolis.DefaultParameters(), lattice, rng.NewMT19937(0))
//	samples := metropolis.Simulate(ctx, eng, 0.44, models.EnergyPerSite)
//
// # Thread Safety
//
// Configurations and random sources are borrowed by a single engine for the
// duration of a run and must not be shared between goroutines.
package mc
