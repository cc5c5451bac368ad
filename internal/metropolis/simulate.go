package metropolis

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/SpeckFleck/mocasinns/internal/histogram"
	"github.com/SpeckFleck/mocasinns/internal/mc"
)

// Accumulator collects the samples of one simulation.
type Accumulator[T any] interface {
	Observe(T)
}

// Samples keeps every sample in order.
type Samples[T any] []T

func (s *Samples[T]) Observe(v T) { *s = append(*s, v) }

// HistogramAccumulator counts samples per bin. K may be a scalar or a
// histogram.Pair for joint distributions.
type HistogramAccumulator[K comparable] struct {
	*histogram.Histogram[K, int64]
}

// NewHistogramAccumulator returns an accumulator over a fresh histogram
// with the given binning.
func NewHistogramAccumulator[K comparable](b histogram.Binning[K]) HistogramAccumulator[K] {
	return HistogramAccumulator[K]{histogram.New[K, int64](b)}
}

func (a HistogramAccumulator[K]) Observe(v K) { a.Visit(v) }

// Simulate relaxes the configuration at inverse temperature beta and then
// takes MeasurementNumber samples of observe, performing
// StepsBetweenMeasurement steps before each one.
//
// If ctx is canceled the samples taken so far are returned.
func Simulate[E mc.Energy, T any](ctx context.Context, e *Engine[E], beta float64, observe mc.Observable[E, T]) []T {
	samples := make(Samples[T], 0, e.params.MeasurementNumber)
	SimulateInto(ctx, e, beta, observe, &samples)
	return samples
}

// SimulateInto is Simulate with the samples fed into acc. It returns the
// number of samples taken.
func SimulateInto[E mc.Energy, T any](ctx context.Context, e *Engine[E], beta float64, observe mc.Observable[E, T], acc Accumulator[T]) int {
	log := e.log.WithField("beta", beta)
	if ctx.Err() != nil {
		log.Warn("simulation canceled before relaxation")
		return 0
	}

	e.Relax(beta)
	for m := 0; m < e.params.MeasurementNumber; m++ {
		e.RunSteps(e.params.StepsBetweenMeasurement, beta)
		e.measure()
		acc.Observe(observe(e.config))

		if ctx.Err() != nil {
			log.WithField("measurements", m+1).Warn("simulation canceled")
			return m + 1
		}
	}

	log.WithFields(logrus.Fields{
		"measurements": e.params.MeasurementNumber,
		"acceptance":   e.stats.AcceptanceRate(),
	}).Debug("simulation finished")
	return e.params.MeasurementNumber
}

// SimulateTemperatures runs Simulate for each inverse temperature in
// order, continuing from the configuration left by the previous one. After
// cancellation the remaining temperatures are skipped, so the result may be
// shorter than betas.
func SimulateTemperatures[E mc.Energy, T any](ctx context.Context, e *Engine[E], betas []float64, observe mc.Observable[E, T]) [][]T {
	results := make([][]T, 0, len(betas))
	for _, beta := range betas {
		results = append(results, Simulate(ctx, e, beta, observe))
		if ctx.Err() != nil {
			break
		}
	}
	return results
}

// SimulateTemperaturesInto pairs each inverse temperature with its own
// accumulator. It returns mc.ErrDimensionMismatch if the lengths differ.
func SimulateTemperaturesInto[E mc.Energy, T any, A Accumulator[T]](ctx context.Context, e *Engine[E], betas []float64, observe mc.Observable[E, T], accs []A) error {
	if len(betas) != len(accs) {
		return fmt.Errorf("%w: %d temperatures, %d accumulators", mc.ErrDimensionMismatch, len(betas), len(accs))
	}
	for i, beta := range betas {
		SimulateInto[E, T](ctx, e, beta, observe, accs[i])
		if ctx.Err() != nil {
			break
		}
	}
	return nil
}
