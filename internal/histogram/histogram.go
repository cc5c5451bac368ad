package histogram

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
)

// Histogram maps bins to accumulated values. Every x value passed to a
// method is first mapped to its bin by the histogram's Binning.
//
// A Histogram is not safe for concurrent use.
type Histogram[K comparable, V Number] struct {
	binning Binning[K]
	bins    map[K]V
}

// New returns an empty histogram using the given binning.
func New[K comparable, V Number](binning Binning[K]) *Histogram[K, V] {
	return &Histogram[K, V]{
		binning: binning,
		bins:    make(map[K]V),
	}
}

// NewIdentity returns an empty histogram whose bins are the x values themselves.
func NewIdentity[K cmp.Ordered, V Number]() *Histogram[K, V] {
	return New[K, V](Identity[K]{})
}

// EmptyLike returns a histogram with the binning and bins of other and all
// values set to zero.
func EmptyLike[K comparable, V Number, W Number](other *Histogram[K, W]) *Histogram[K, V] {
	h := New[K, V](other.binning)
	for k := range other.bins {
		h.bins[k] = 0
	}
	return h
}

func (h *Histogram[K, V]) Binning() Binning[K] { return h.binning }
func (h *Histogram[K, V]) Len() int            { return len(h.bins) }

// Bin returns the canonical bin of x.
func (h *Histogram[K, V]) Bin(x K) K { return h.binning.Bin(x) }

// Visit increments the value of the bin of x by one.
func (h *Histogram[K, V]) Visit(x K) {
	h.bins[h.binning.Bin(x)]++
}

// Add increments the value of the bin of x by y.
func (h *Histogram[K, V]) Add(x K, y V) {
	h.bins[h.binning.Bin(x)] += y
}

// At returns the value of the bin of x, creating the bin with a zero value
// if it does not exist yet.
func (h *Histogram[K, V]) At(x K) V {
	k := h.binning.Bin(x)
	v, ok := h.bins[k]
	if !ok {
		h.bins[k] = 0
	}
	return v
}

// Lookup returns the value of the bin of x without creating it.
func (h *Histogram[K, V]) Lookup(x K) (V, bool) {
	v, ok := h.bins[h.binning.Bin(x)]
	return v, ok
}

// Get returns the value of the bin of x, or zero if the bin does not exist.
func (h *Histogram[K, V]) Get(x K) V {
	return h.bins[h.binning.Bin(x)]
}

// Contains reports whether the bin of x exists.
func (h *Histogram[K, V]) Contains(x K) bool {
	_, ok := h.bins[h.binning.Bin(x)]
	return ok
}

// Set overwrites the value of the bin of x.
func (h *Histogram[K, V]) Set(x K, y V) {
	h.bins[h.binning.Bin(x)] = y
}

// Insert stores y in the bin of x only if that bin does not exist yet and
// reports whether it did so. Unlike Add it never accumulates.
func (h *Histogram[K, V]) Insert(x K, y V) bool {
	k := h.binning.Bin(x)
	if _, ok := h.bins[k]; ok {
		return false
	}
	h.bins[k] = y
	return true
}

// Reset removes all bins.
func (h *Histogram[K, V]) Reset() {
	clear(h.bins)
}

// Clone returns a deep copy sharing the binning.
func (h *Histogram[K, V]) Clone() *Histogram[K, V] {
	c := New[K, V](h.binning)
	for k, v := range h.bins {
		c.bins[k] = v
	}
	return c
}

// Merge adds every bin of other into h, creating missing bins.
func (h *Histogram[K, V]) Merge(other *Histogram[K, V]) {
	for k, v := range other.bins {
		h.bins[h.binning.Bin(k)] += v
	}
}

// Divide divides every bin of h by the matching bin of other. A bin of h
// that is missing or zero in other makes the whole operation fail with a
// *DegenerateError and leaves h untouched.
func (h *Histogram[K, V]) Divide(other *Histogram[K, V]) error {
	for _, k := range h.Keys() {
		d, ok := other.bins[k]
		if !ok {
			return &DegenerateError{Bin: fmt.Sprint(k), Reason: "bin missing in divisor"}
		}
		if d == 0 {
			return &DegenerateError{Bin: fmt.Sprint(k), Reason: "zero divisor"}
		}
	}
	for k := range h.bins {
		h.bins[k] /= other.bins[k]
	}
	return nil
}

// Shift adds c to every bin.
func (h *Histogram[K, V]) Shift(c V) {
	for k := range h.bins {
		h.bins[k] += c
	}
}

// DivideBy divides every bin by c.
func (h *Histogram[K, V]) DivideBy(c V) error {
	if c == 0 {
		return fmt.Errorf("%w: division by zero constant", ErrDegenerate)
	}
	for k := range h.bins {
		h.bins[k] /= c
	}
	return nil
}

// Keys returns the bins in canonical order.
func (h *Histogram[K, V]) Keys() []K {
	keys := make([]K, 0, len(h.bins))
	for k := range h.bins {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, h.binning.Compare)
	return keys
}

// All iterates the bins in canonical order. The sequence can be ranged over
// repeatedly; each iteration takes a fresh snapshot of the keys.
func (h *Histogram[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, k := range h.Keys() {
			if !yield(k, h.bins[k]) {
				return
			}
		}
	}
}

// Values returns the bin values in canonical key order.
func (h *Histogram[K, V]) Values() []V {
	keys := h.Keys()
	values := make([]V, len(keys))
	for i, k := range keys {
		values[i] = h.bins[k]
	}
	return values
}

// Min returns the bin holding the smallest value. Ties resolve to the first
// bin in canonical order.
func (h *Histogram[K, V]) Min() (K, V, bool) {
	return h.extreme(func(a, b V) bool { return a < b })
}

// Max returns the bin holding the largest value.
func (h *Histogram[K, V]) Max() (K, V, bool) {
	return h.extreme(func(a, b V) bool { return a > b })
}

func (h *Histogram[K, V]) extreme(better func(a, b V) bool) (K, V, bool) {
	var (
		bestK K
		bestV V
		found bool
	)
	for k, v := range h.All() {
		if !found || better(v, bestV) {
			bestK, bestV, found = k, v, true
		}
	}
	return bestK, bestV, found
}

// Sum returns the sum of all values.
func (h *Histogram[K, V]) Sum() V {
	var s V
	for _, v := range h.bins {
		s += v
	}
	return s
}

// Mean returns the mean value over all bins, or zero for an empty histogram.
func (h *Histogram[K, V]) Mean() float64 {
	if len(h.bins) == 0 {
		return 0
	}
	s := 0.0
	for _, v := range h.bins {
		s += float64(v)
	}
	return s / float64(len(h.bins))
}

// Flatness returns min/mean over all bins, or zero for an empty histogram
// or a histogram whose mean is not positive.
func (h *Histogram[K, V]) Flatness() float64 {
	_, lowest, ok := h.Min()
	if !ok {
		return 0
	}
	mean := h.Mean()
	if mean <= 0 {
		return 0
	}
	return float64(lowest) / mean
}

// Equal reports whether both histograms hold exactly the same bins and values.
func (h *Histogram[K, V]) Equal(other *Histogram[K, V]) bool {
	if len(h.bins) != len(other.bins) {
		return false
	}
	for k, v := range h.bins {
		w, ok := other.bins[k]
		if !ok || w != v {
			return false
		}
	}
	return true
}
