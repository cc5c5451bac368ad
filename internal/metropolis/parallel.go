package metropolis

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/SpeckFleck/mocasinns/internal/histogram"
	"github.com/SpeckFleck/mocasinns/internal/mc"
	"github.com/SpeckFleck/mocasinns/internal/rng"
)

// Factory builds the configuration owned by replica i.
type Factory[E mc.Energy] func(replica int) (mc.Configuration[E], error)

// Ensemble runs independent replicas of a simulation concurrently. Every
// replica owns its configuration and a random stream derived from the
// ensemble key, so a run is reproducible for a fixed key and replica count.
type Ensemble[E mc.Energy] struct {
	params   Parameters
	replicas int
	key      rng.Key
	factory  Factory[E]
	opts     []Option
}

// NewEnsemble returns an ensemble of n replicas. Options are applied to
// every replica engine.
func NewEnsemble[E mc.Energy](params Parameters, n int, key rng.Key, factory Factory[E], opts ...Option) (*Ensemble[E], error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if n < 1 {
		return nil, fmt.Errorf("%w: replicas must be >= 1, got %d", mc.ErrParameterBounds, n)
	}
	return &Ensemble[E]{params: params, replicas: n, key: key, factory: factory, opts: opts}, nil
}

func (ens *Ensemble[E]) Replicas() int { return ens.replicas }

// run starts one goroutine per replica and calls fn with each replica's
// engine. The first error cancels the context passed to the others.
func (ens *Ensemble[E]) run(ctx context.Context, fn func(ctx context.Context, i int, e *Engine[E]) error) error {
	streams := rng.NewPartitioned(ens.key)
	sources := make([]*rng.MT19937, ens.replicas)
	for i := range sources {
		sources[i] = streams.Stream(rng.StreamReplica(i))
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < ens.replicas; i++ {
		g.Go(func() error {
			config, err := ens.factory(i)
			if err != nil {
				return fmt.Errorf("replica %d: %w", i, err)
			}
			opts := append(append([]Option(nil), ens.opts...), withReplica(i))
			e, err := New(ens.params, config, sources[i], opts...)
			if err != nil {
				return fmt.Errorf("replica %d: %w", i, err)
			}
			return fn(gctx, i, e)
		})
	}
	return g.Wait()
}

// RunEnsemble simulates every replica at beta and returns the samples per
// replica. Cancellation of ctx ends all replicas at their next measurement
// boundary with partial samples.
func RunEnsemble[E mc.Energy, T any](ctx context.Context, ens *Ensemble[E], beta float64, observe mc.Observable[E, T]) ([][]T, error) {
	results := make([][]T, ens.replicas)
	err := ens.run(ctx, func(ctx context.Context, i int, e *Engine[E]) error {
		results[i] = Simulate(ctx, e, beta, observe)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// RunEnsembleHistogram simulates every replica at beta into its own
// histogram and merges them after all replicas have finished.
func RunEnsembleHistogram[E mc.Energy, K comparable](ctx context.Context, ens *Ensemble[E], beta float64, observe mc.Observable[E, K], binning histogram.Binning[K]) (*histogram.Histogram[K, int64], error) {
	parts := make([]HistogramAccumulator[K], ens.replicas)
	err := ens.run(ctx, func(ctx context.Context, i int, e *Engine[E]) error {
		parts[i] = NewHistogramAccumulator(binning)
		SimulateInto[E, K](ctx, e, beta, observe, parts[i])
		return nil
	})
	if err != nil {
		return nil, err
	}

	merged := histogram.New[K, int64](binning)
	for _, p := range parts {
		merged.Merge(p.Histogram)
	}
	return merged, nil
}

func withReplica(i int) Option {
	return func(o *options) { o.log = o.log.WithField("replica", i) }
}
