package histogram

import (
	"cmp"
	"fmt"
	"math"
)

// Number is the set of numeric types usable as bin keys of a fixed-width
// binning and as histogram values.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Binning maps an x value to the canonical representative of its bin and
// defines the canonical order of bins. Bin must be idempotent.
type Binning[K comparable] interface {
	Bin(x K) K
	Compare(a, b K) int
}

// Identity leaves every value in its own bin.
type Identity[K cmp.Ordered] struct{}

func (Identity[K]) Bin(x K) K          { return x }
func (Identity[K]) Compare(a, b K) int { return cmp.Compare(a, b) }

// Fixed bins numbers into intervals [Reference+n*Width, Reference+(n+1)*Width)
// represented by their lower edge. A zero Width behaves like Identity.
type Fixed[K Number] struct {
	Width     K
	Reference K
}

// NewFixed returns a fixed-width binning, rejecting negative widths.
func NewFixed[K Number](width, reference K) (Fixed[K], error) {
	if width < 0 {
		return Fixed[K]{}, fmt.Errorf("%w: width %v", ErrInvalidBinning, width)
	}
	return Fixed[K]{Width: width, Reference: reference}, nil
}

// Bin returns the lower edge of the bin holding x. The floor of the
// quotient is corrected by at most one bin either way so that the returned
// edge e satisfies e <= x < e+Width in K arithmetic.
func (b Fixed[K]) Bin(x K) K {
	if b.Width <= 0 {
		return x
	}
	n := K(math.Floor((float64(x) - float64(b.Reference)) / float64(b.Width)))
	edge := func(n K) K { return b.Reference + n*b.Width }
	if edge(n) > x {
		n--
	} else if edge(n+1) <= x {
		n++
	}
	return edge(n)
}

func (Fixed[K]) Compare(a, b K) int { return cmp.Compare(a, b) }

// Pair is a two-component x value, e.g. (energy, magnetization).
type Pair[K Number] struct {
	X, Y K
}

// PairBinning bins each component of a Pair independently and orders pairs
// lexicographically.
type PairBinning[K Number] struct {
	X, Y Fixed[K]
}

func (b PairBinning[K]) Bin(p Pair[K]) Pair[K] {
	return Pair[K]{X: b.X.Bin(p.X), Y: b.Y.Bin(p.Y)}
}

func (PairBinning[K]) Compare(a, b Pair[K]) int {
	if c := cmp.Compare(a.X, b.X); c != 0 {
		return c
	}
	return cmp.Compare(a.Y, b.Y)
}
