package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a series of scalar measurements.
type Summary struct {
	N        int     `json:"n"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	StdErr   float64 `json:"std_err"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

func Summarize(xs []float64) (Summary, error) {
	if len(xs) == 0 {
		return Summary{}, ErrEmpty
	}
	s := Summary{
		N:    len(xs),
		Mean: stat.Mean(xs, nil),
		Min:  floats.Min(xs),
		Max:  floats.Max(xs),
	}
	if len(xs) > 1 {
		s.Variance = stat.Variance(xs, nil)
		s.StdErr = stat.StdErr(math.Sqrt(s.Variance), float64(len(xs)))
	}
	return s, nil
}

// CorrelatedError scales the standard error by an integrated
// autocorrelation time tau, where tau = 1 for independent samples.
func (s Summary) CorrelatedError(tau float64) float64 {
	if tau < 1 {
		tau = 1
	}
	return s.StdErr * math.Sqrt(tau)
}
