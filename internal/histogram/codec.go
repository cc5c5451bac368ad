package histogram

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Codec converts bins or values to and from their text form.
type Codec[T any] struct {
	Format func(T) string
	Parse  func(string) (T, error)
}

// NumberCodec returns a codec producing the shortest text that parses back
// to the identical number.
func NumberCodec[T Number]() Codec[T] {
	var zero T
	typ := reflect.TypeOf(zero)
	bits := typ.Bits()
	switch kind := typ.Kind(); kind {
	case reflect.Float32, reflect.Float64:
		return Codec[T]{
			Format: func(v T) string { return strconv.FormatFloat(float64(v), 'g', -1, bits) },
			Parse: func(s string) (T, error) {
				f, err := strconv.ParseFloat(s, bits)
				return T(f), err
			},
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Codec[T]{
			Format: func(v T) string { return strconv.FormatUint(uint64(v), 10) },
			Parse: func(s string) (T, error) {
				u, err := strconv.ParseUint(s, 10, bits)
				return T(u), err
			},
		}
	default:
		return Codec[T]{
			Format: func(v T) string { return strconv.FormatInt(int64(v), 10) },
			Parse: func(s string) (T, error) {
				i, err := strconv.ParseInt(s, 10, bits)
				return T(i), err
			},
		}
	}
}

// PairCodec encodes a Pair as "x;y".
func PairCodec[K Number]() Codec[Pair[K]] {
	c := NumberCodec[K]()
	return Codec[Pair[K]]{
		Format: func(p Pair[K]) string { return c.Format(p.X) + ";" + c.Format(p.Y) },
		Parse: func(s string) (Pair[K], error) {
			xs, ys, ok := strings.Cut(s, ";")
			if !ok {
				return Pair[K]{}, fmt.Errorf("%w: pair %q", ErrMalformed, s)
			}
			x, err := c.Parse(xs)
			if err != nil {
				return Pair[K]{}, err
			}
			y, err := c.Parse(ys)
			if err != nil {
				return Pair[K]{}, err
			}
			return Pair[K]{X: x, Y: y}, nil
		},
	}
}

// Record is the text form of one bin.
type Record struct {
	Bin   string `yaml:"bin" json:"bin"`
	Value string `yaml:"value" json:"value"`
}

// Records returns the bins in canonical order in text form.
func (h *Histogram[K, V]) Records(kc Codec[K], vc Codec[V]) []Record {
	recs := make([]Record, 0, len(h.bins))
	for k, v := range h.All() {
		recs = append(recs, Record{Bin: kc.Format(k), Value: vc.Format(v)})
	}
	return recs
}

// LoadRecords replaces the content of h with the given records. Bins are
// re-binned with the binning of h; records falling into the same bin add up.
// On error h is left unchanged.
func (h *Histogram[K, V]) LoadRecords(recs []Record, kc Codec[K], vc Codec[V]) error {
	bins := make(map[K]V, len(recs))
	for i, r := range recs {
		k, err := kc.Parse(r.Bin)
		if err != nil {
			return fmt.Errorf("%w: record %d bin %q: %v", ErrMalformed, i, r.Bin, err)
		}
		v, err := vc.Parse(r.Value)
		if err != nil {
			return fmt.Errorf("%w: record %d value %q: %v", ErrMalformed, i, r.Value, err)
		}
		bins[h.binning.Bin(k)] += v
	}
	h.bins = bins
	return nil
}
