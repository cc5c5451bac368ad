// Package histogram provides an ordered, binned accumulator.
//
// A [Histogram] maps the canonical bin of an x value to a numeric y value.
// The binning strategy is injected at construction:
//
//   - [Identity]: every value is its own bin (discrete energies)
//   - [Fixed]: fixed-width numeric bins anchored at a reference
//   - [PairBinning]: fixed-width bins over two-component keys
//
// The same type serves as an observable accumulator ([Histogram.Visit],
// [Histogram.Add]) and as the density-of-states and visit-count ledger of
// the Wang-Landau engine.
//
// # Serialization
//
// [Histogram.Encode] writes a versioned CSV stream of (bin, value) rows in
// canonical order; [Histogram.Decode] reads it back:
//
//	# mocasinns histogram v1
//	bin,value
//	-8,0
//	-4,3.4657
package histogram
