package metropolis

import (
	"fmt"

	"github.com/SpeckFleck/mocasinns/internal/mc"
)

// ErrZeroVariance is returned when C(0) has a zero component, which leaves
// the normalized autocorrelation undefined.
var ErrZeroVariance = fmt.Errorf("%w: autocorrelation C(0) is zero", mc.ErrDegenerate)

// AutocorrelationFunction relaxes the configuration, records
// maxTime*factor+1 samples one sweep (SystemSize steps) apart and returns
// C(t) for t = 0..maxTime as computed by Autocorrelation.
func AutocorrelationFunction[E mc.Energy, T mc.Algebra[T]](e *Engine[E], beta float64, maxTime, factor int, observe mc.Observable[E, T]) ([]T, error) {
	if err := checkWindows(maxTime, factor); err != nil {
		return nil, err
	}
	e.Relax(beta)

	sweep := e.config.SystemSize()
	samples := make([]T, 0, maxTime*factor+1)
	for i := 0; i <= maxTime*factor; i++ {
		e.RunSteps(sweep, beta)
		samples = append(samples, observe(e.config))
	}

	e.log.WithField("beta", beta).WithField("samples", len(samples)).Debug("autocorrelation samples taken")
	return Autocorrelation(samples, maxTime, factor)
}

// Autocorrelation computes
//
//	C(t) = (1/factor) sum_w f[w*maxTime] f[w*maxTime+t] - mean(f)^2
//
// for t = 0..maxTime over factor windows of length maxTime. The mean runs
// over all samples, of which there must be at least maxTime*factor+1.
func Autocorrelation[T mc.Algebra[T]](samples []T, maxTime, factor int) ([]T, error) {
	if err := checkWindows(maxTime, factor); err != nil {
		return nil, err
	}
	if need := maxTime*factor + 1; len(samples) < need {
		return nil, fmt.Errorf("%w: need %d samples, got %d", mc.ErrDimensionMismatch, need, len(samples))
	}

	mean := samples[0]
	for _, f := range samples[1:] {
		mean = mean.Add(f)
	}
	mean = mean.Scale(1 / float64(len(samples)))
	meanSq := mean.Mul(mean).Scale(-1)

	c := make([]T, maxTime+1)
	for t := 0; t <= maxTime; t++ {
		sum := samples[0].Mul(samples[t])
		for w := 1; w < factor; w++ {
			start := w * maxTime
			sum = sum.Add(samples[start].Mul(samples[start+t]))
		}
		c[t] = sum.Scale(1 / float64(factor)).Add(meanSq)
	}
	return c, nil
}

// IntegratedAutocorrelationTime computes the autocorrelation function and
// integrates it with IntegratedTime over maxTime.
func IntegratedAutocorrelationTime[E mc.Energy, T mc.Algebra[T]](e *Engine[E], beta float64, maxTime, factor int, observe mc.Observable[E, T]) (T, error) {
	c, err := AutocorrelationFunction(e, beta, maxTime, factor, observe)
	if err != nil {
		var zero T
		return zero, err
	}
	return IntegratedTime(c, maxTime)
}

// IntegratedTime returns
//
//	tau = 1 + 2 sum_{t=1}^{n-1} (1 - t/n) C(t)/C(0)
//
// It returns ErrZeroVariance if any component of C(0) is zero.
func IntegratedTime[T mc.Algebra[T]](c []T, n int) (T, error) {
	var zero T
	if len(c) == 0 || n < 1 {
		return zero, fmt.Errorf("%w: empty autocorrelation function", mc.ErrDimensionMismatch)
	}
	if n > len(c) {
		return zero, fmt.Errorf("%w: n=%d exceeds %d values", mc.ErrDimensionMismatch, n, len(c))
	}
	if c[0].Degenerate() {
		return zero, ErrZeroVariance
	}

	tau := c[0].Quo(c[0])
	for t := 1; t < n; t++ {
		w := 2 * (1 - float64(t)/float64(n))
		tau = tau.Add(c[t].Quo(c[0]).Scale(w))
	}
	return tau, nil
}

func checkWindows(maxTime, factor int) error {
	if maxTime < 1 {
		return fmt.Errorf("%w: maximal time must be >= 1, got %d", mc.ErrParameterBounds, maxTime)
	}
	if factor < 1 {
		return fmt.Errorf("%w: time factor must be >= 1, got %d", mc.ErrParameterBounds, factor)
	}
	return nil
}
