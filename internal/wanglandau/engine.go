package wanglandau

import (
	"context"
	"errors"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/SpeckFleck/mocasinns/internal/histogram"
	"github.com/SpeckFleck/mocasinns/internal/mc"
	"github.com/SpeckFleck/mocasinns/internal/metrics"
)

var (
	// ErrStepLimit is returned by Run when MaxSteps is exhausted before
	// convergence. The engine stays resumable.
	ErrStepLimit = errors.New("wanglandau: step limit reached before convergence")

	// ErrCheckpoint indicates a checkpoint that cannot be restored into the
	// engine.
	ErrCheckpoint = errors.New("wanglandau: invalid checkpoint")
)

// Engine estimates the logarithmic density of states ln g(E) of a
// configuration with a flat-histogram random walk in energy.
//
// An Engine borrows its configuration and random source; neither may be
// used by another goroutine while the engine runs.
type Engine[E mc.Energy] struct {
	params Parameters
	config mc.Configuration[E]
	rng    mc.RandomSource

	dos    *histogram.Histogram[E, float64]
	visits *histogram.Histogram[E, int64]

	energy    E
	modFactor float64
	epoch     int
	steps     int64
	state     State
	flatness  float64

	log      *logrus.Entry
	recorder *metrics.Recorder
	onEpoch  func()
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	log      *logrus.Entry
	recorder *metrics.Recorder
	onEpoch  func()
}

func WithLogger(l *logrus.Entry) Option {
	return func(o *options) { o.log = l }
}

func WithRecorder(r *metrics.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithEpochHook sets a function called after every Refine, once the next
// state has been decided.
func WithEpochHook(fn func()) Option {
	return func(o *options) { o.onEpoch = fn }
}

// New creates an engine in the Sampling state. Energies are grouped into
// bins by binning; a nil binning keeps every energy in its own bin.
func New[E mc.Energy](params Parameters, config mc.Configuration[E], rng mc.RandomSource, binning histogram.Binning[E], opts ...Option) (*Engine[E], error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if binning == nil {
		binning = histogram.Identity[E]{}
	}
	o := options{log: logrus.NewEntry(logrus.StandardLogger())}
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine[E]{
		params:    params,
		config:    config,
		rng:       rng,
		dos:       histogram.New[E, float64](binning),
		visits:    histogram.New[E, int64](binning),
		energy:    config.Energy(),
		modFactor: params.ModificationFactorInitial,
		state:     Sampling,
		log:       o.log.WithField("engine", metrics.EngineWangLandau),
		recorder:  o.recorder,
		onEpoch:   o.onEpoch,
	}
	e.recorder.SetModificationFactor(e.modFactor)
	return e, nil
}

func (e *Engine[E]) Parameters() Parameters { return e.params }
func (e *Engine[E]) State() State           { return e.state }
func (e *Engine[E]) Converged() bool        { return e.state == Converged }
func (e *Engine[E]) Epoch() int             { return e.epoch }
func (e *Engine[E]) Steps() int64           { return e.steps }
func (e *Engine[E]) Energy() E              { return e.energy }

// ModificationFactor is the log-scale increment of the current epoch.
func (e *Engine[E]) ModificationFactor() float64 { return e.modFactor }

// Flatness is the result of the latest flatness check.
func (e *Engine[E]) Flatness() float64 { return e.flatness }

// DensityOfStates returns a copy of the unnormalized ln g(E) estimate. Only
// differences between bins are meaningful.
func (e *Engine[E]) DensityOfStates() *histogram.Histogram[E, float64] {
	return e.dos.Clone()
}

// Visits returns a copy of the visit counts of the current epoch.
func (e *Engine[E]) Visits() *histogram.Histogram[E, int64] {
	return e.visits.Clone()
}

// Step performs one Wang-Landau move. A proposal that is not executable
// leaves the walker in place and still counts as a visit. A converged
// engine ignores further steps.
func (e *Engine[E]) Step() {
	if e.state == Converged {
		return
	}
	e.state = Sampling

	outcome := metrics.OutcomeNull
	step := e.config.ProposeStep(e.rng)
	if step.Executable() {
		target := e.energy + step.DeltaE()
		src, dst := e.dos.Get(e.energy), e.dos.Get(target)
		if dst <= src || e.rng.Float64() < math.Exp(src-dst) {
			step.Execute()
			e.energy = target
			outcome = metrics.OutcomeAccepted
		} else {
			outcome = metrics.OutcomeRejected
		}
	}

	e.dos.Add(e.energy, e.modFactor)
	e.visits.Visit(e.energy)
	e.steps++
	e.recorder.ObserveSteps(metrics.EngineWangLandau, outcome, 1)
}

// DoSteps performs n moves without checking flatness.
func (e *Engine[E]) DoSteps(n int) {
	for i := 0; i < n && e.state != Converged; i++ {
		e.Step()
	}
}

// CheckFlatness compares the visit histogram of the current epoch against
// the flatness threshold and refines when it is met. It reports whether the
// epoch ended.
func (e *Engine[E]) CheckFlatness() bool {
	if e.state == Converged {
		return false
	}
	e.state = FlatnessCheck
	e.flatness = e.visits.Flatness()
	e.recorder.ObserveFlatness(e.flatness)

	e.log.WithFields(logrus.Fields{
		"epoch":    e.epoch,
		"flatness": e.flatness,
		"bins":     e.visits.Len(),
	}).Debug("flatness check")

	if e.visits.Len() == 0 || e.flatness < e.params.Flatness {
		e.state = Sampling
		return false
	}
	e.refine()
	return true
}

func (e *Engine[E]) refine() {
	e.state = Refine
	e.modFactor *= e.params.ModificationFactorMultiplier
	e.visits.Reset()
	e.epoch++
	e.recorder.ObserveEpoch(e.modFactor)

	if e.modFactor < e.params.ModificationFactorFinal {
		e.state = Converged
	} else {
		e.state = Sampling
	}

	e.log.WithFields(logrus.Fields{
		"epoch":               e.epoch,
		"modification_factor": e.modFactor,
		"steps":               e.steps,
		"state":               e.state,
	}).Info("epoch finished")

	if e.onEpoch != nil {
		e.onEpoch()
	}
}

func (e *Engine[E]) sweep() int {
	if e.params.SweepSteps > 0 {
		return e.params.SweepSteps
	}
	return max(e.config.SystemSize(), 1)
}

// Run alternates sweeps and flatness checks until the engine converges.
//
// Cancellation is checked after every flatness check; a canceled run
// returns nil and can be continued by calling Run again. When MaxSteps is
// set and exhausted first, Run returns ErrStepLimit.
func (e *Engine[E]) Run(ctx context.Context) error {
	sweep := e.sweep()
	for e.state != Converged {
		n := sweep
		if e.params.MaxSteps > 0 {
			left := e.params.MaxSteps - e.steps
			if left <= 0 {
				e.log.WithField("steps", e.steps).Warn("step limit reached")
				return ErrStepLimit
			}
			n = int(min(int64(n), left))
		}

		e.DoSteps(n)
		e.CheckFlatness()

		if ctx.Err() != nil {
			e.log.WithFields(logrus.Fields{
				"epoch": e.epoch,
				"steps": e.steps,
			}).Warn("run canceled")
			return nil
		}
	}
	return nil
}
