package mc

// Algebra is implemented by observable values that support the arithmetic
// needed for autocorrelation statistics.
type Algebra[T any] interface {
	Add(T) T
	// Mul is the component-wise product.
	Mul(T) T
	Scale(float64) T
	// Quo is the component-wise quotient.
	Quo(T) T
	// Degenerate reports whether any component is zero, which makes the
	// value unusable as a divisor.
	Degenerate() bool
}

// Scalar is a single real-valued observable.
type Scalar float64

func (s Scalar) Add(o Scalar) Scalar    { return s + o }
func (s Scalar) Mul(o Scalar) Scalar    { return s * o }
func (s Scalar) Scale(f float64) Scalar { return Scalar(float64(s) * f) }
func (s Scalar) Quo(o Scalar) Scalar    { return s / o }
func (s Scalar) Degenerate() bool       { return s == 0 }

// Vector is a real-valued observable with several components. Binary
// operations run over the receiver's components; missing components of the
// operand count as zero for Add and leave the receiver's value for Mul/Quo.
type Vector []float64

func (v Vector) Add(o Vector) Vector {
	r := make(Vector, len(v))
	for i := range v {
		r[i] = v[i]
		if i < len(o) {
			r[i] += o[i]
		}
	}
	return r
}

func (v Vector) Mul(o Vector) Vector {
	r := make(Vector, len(v))
	for i := range v {
		r[i] = v[i]
		if i < len(o) {
			r[i] *= o[i]
		}
	}
	return r
}

func (v Vector) Scale(f float64) Vector {
	r := make(Vector, len(v))
	for i := range v {
		r[i] = v[i] * f
	}
	return r
}

func (v Vector) Quo(o Vector) Vector {
	r := make(Vector, len(v))
	for i := range v {
		r[i] = v[i]
		if i < len(o) {
			r[i] /= o[i]
		}
	}
	return r
}

func (v Vector) Degenerate() bool {
	for _, x := range v {
		if x == 0 {
			return true
		}
	}
	return false
}
