package analysis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/SpeckFleck/mocasinns/internal/histogram"
)

var (
	ErrEmpty     = errors.New("analysis: no data")
	ErrNoAnchor  = errors.New("analysis: anchor bin not present")
	ErrBadTarget = errors.New("analysis: normalisation target must be finite")
)

// Normalize returns a copy of the logarithmic density of states shifted so
// that the bin containing anchor holds lnG. A Wang-Landau estimate is only
// determined up to an additive constant; anchoring a known ground-state
// degeneracy fixes it.
func Normalize[E histogram.Number](dos *histogram.Histogram[E, float64], anchor E, lnG float64) (*histogram.Histogram[E, float64], error) {
	if math.IsNaN(lnG) || math.IsInf(lnG, 0) {
		return nil, ErrBadTarget
	}
	v, ok := dos.Lookup(anchor)
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrNoAnchor, anchor)
	}
	out := dos.Clone()
	out.Shift(lnG - v)
	return out, nil
}

// NormalizeTotal returns a copy shifted so that the states sum to exp(lnTotal),
// e.g. lnTotal = N ln 2 for N Ising spins.
func NormalizeTotal[E histogram.Number](dos *histogram.Histogram[E, float64], lnTotal float64) (*histogram.Histogram[E, float64], error) {
	if dos.Len() == 0 {
		return nil, ErrEmpty
	}
	if math.IsNaN(lnTotal) || math.IsInf(lnTotal, 0) {
		return nil, ErrBadTarget
	}
	out := dos.Clone()
	out.Shift(lnTotal - floats.LogSumExp(dos.Values()))
	return out, nil
}

// Series returns the bins and values of h in canonical order as float64
// slices, ready for plotting or export.
func Series[E histogram.Number, V histogram.Number](h *histogram.Histogram[E, V]) (xs, ys []float64) {
	xs = make([]float64, 0, h.Len())
	ys = make([]float64, 0, h.Len())
	for k, v := range h.All() {
		xs = append(xs, float64(k))
		ys = append(ys, float64(v))
	}
	return xs, ys
}
