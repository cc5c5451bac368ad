// Package wanglandau estimates the density of states g(E) of a
// configuration with the Wang-Landau flat-histogram algorithm.
//
// The walker accepts a move from energy E1 to E2 with probability
// min(1, g(E1)/g(E2)) under the current estimate and, after every move,
// adds the modification factor to ln g at its energy and counts a visit.
// Once the visit histogram of an epoch is flat enough the factor is
// multiplied by the configured multiplier and the visits are cleared; the
// run converges when the factor drops below its final value.
//
// The estimate is unnormalized: only differences of ln g between bins are
// meaningful. See the analysis package for normalization.
//
// Engines can be checkpointed with [Engine.Save] and resumed with
// [Engine.Load]; with a random source and configuration that implement
// encoding.BinaryMarshaler the continuation is identical to an
// uninterrupted run.
package wanglandau
