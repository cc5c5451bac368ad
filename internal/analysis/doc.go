// Package analysis turns sampled data into physical quantities.
//
// The package works on the outputs of the two engines:
//
//   - [Normalize]: anchor a logarithmic density of states to a known bin
//   - [NormalizeTotal]: fix ln g(E) so the states sum to a known total
//   - [Canonical]: internal energy, specific heat, free energy and entropy
//     at one inverse temperature
//   - [CanonicalRange]: the same over a list of temperatures
//   - [Summarize]: mean, variance and standard error of Metropolis samples
//
// # Thermodynamics from a Wang-Landau run
//
// A single density-of-states estimate yields the canonical averages at
// every temperature:
//
//	dos, _ := analysis.NormalizeTotal(e.DensityOfStates(), float64(n)*math.Ln2)
//	t, _ := analysis.Canonical(dos, 0.44)
//	fmt.Println(t.InternalEnergy/float64(n), t.SpecificHeat/float64(n))
package analysis
