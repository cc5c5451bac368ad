// Package metropolis implements fixed-temperature Metropolis-Hastings
// sampling over any [mc.Configuration].
//
// A step proposed by the configuration with energy change dE and selection
// probability factor s is accepted at inverse temperature beta with
// probability min(1, exp(-beta*dE)/s), which keeps detailed balance for
// asymmetric proposals. Proposals that are not executable count as null
// moves.
//
// Besides plain sampling ([Simulate], [SimulateTemperatures]) the package
// estimates autocorrelation functions and integrated autocorrelation times,
// and runs independent replicas concurrently ([Ensemble]).
//
// Cancellation is cooperative: the context is checked after every
// measurement, and a canceled run returns the samples taken so far.
package metropolis
