package metropolis

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/SpeckFleck/mocasinns/internal/mc"
	"github.com/SpeckFleck/mocasinns/internal/metrics"
)

// Parameters controls the measurement schedule of a simulation.
type Parameters struct {
	// RelaxationSteps are performed once before the first measurement.
	RelaxationSteps int `yaml:"relaxation_steps" json:"relaxation_steps"`
	// MeasurementNumber is the number of samples taken.
	MeasurementNumber int `yaml:"measurement_number" json:"measurement_number"`
	// StepsBetweenMeasurement are performed before every sample.
	StepsBetweenMeasurement int `yaml:"steps_between_measurement" json:"steps_between_measurement"`
}

func DefaultParameters() Parameters {
	return Parameters{
		RelaxationSteps:         1000,
		MeasurementNumber:       1000,
		StepsBetweenMeasurement: 100,
	}
}

func (p Parameters) Validate() error {
	if p.RelaxationSteps < 0 {
		return fmt.Errorf("%w: relaxation_steps must be >= 0, got %d", mc.ErrParameterBounds, p.RelaxationSteps)
	}
	if p.MeasurementNumber < 0 {
		return fmt.Errorf("%w: measurement_number must be >= 0, got %d", mc.ErrParameterBounds, p.MeasurementNumber)
	}
	if p.StepsBetweenMeasurement < 0 {
		return fmt.Errorf("%w: steps_between_measurement must be >= 0, got %d", mc.ErrParameterBounds, p.StepsBetweenMeasurement)
	}
	return nil
}

// Stats counts step outcomes since the engine was created.
type Stats struct {
	Accepted int64
	Rejected int64
	// Null counts proposals that were not executable.
	Null int64
}

func (s Stats) Total() int64 { return s.Accepted + s.Rejected + s.Null }

// AcceptanceRate is the fraction of executable proposals that were accepted.
func (s Stats) AcceptanceRate() float64 {
	n := s.Accepted + s.Rejected
	if n == 0 {
		return 0
	}
	return float64(s.Accepted) / float64(n)
}

// Engine samples the canonical ensemble of a configuration at a fixed
// inverse temperature.
//
// An Engine borrows its configuration and random source; neither may be
// used by another goroutine while the engine runs.
type Engine[E mc.Energy] struct {
	params Parameters
	config mc.Configuration[E]
	rng    mc.RandomSource

	log           *logrus.Entry
	recorder      *metrics.Recorder
	onMeasurement func()

	stats Stats
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	log           *logrus.Entry
	recorder      *metrics.Recorder
	onMeasurement func()
}

func WithLogger(l *logrus.Entry) Option {
	return func(o *options) { o.log = l }
}

func WithRecorder(r *metrics.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithMeasurementHook sets a function called immediately before every
// measurement.
func WithMeasurementHook(fn func()) Option {
	return func(o *options) { o.onMeasurement = fn }
}

// New creates an engine. It returns mc.ErrParameterBounds if params are
// invalid.
func New[E mc.Energy](params Parameters, config mc.Configuration[E], rng mc.RandomSource, opts ...Option) (*Engine[E], error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	o := options{log: logrus.NewEntry(logrus.StandardLogger())}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine[E]{
		params:        params,
		config:        config,
		rng:           rng,
		log:           o.log.WithField("engine", metrics.EngineMetropolis),
		recorder:      o.recorder,
		onMeasurement: o.onMeasurement,
	}, nil
}

func (e *Engine[E]) Parameters() Parameters             { return e.params }
func (e *Engine[E]) Configuration() mc.Configuration[E] { return e.config }
func (e *Engine[E]) RandomSource() mc.RandomSource      { return e.rng }
func (e *Engine[E]) Stats() Stats                       { return e.stats }

func (e *Engine[E]) SetParameters(p Parameters) error {
	if err := p.Validate(); err != nil {
		return err
	}
	e.params = p
	return nil
}

// Accept is the Metropolis-Hastings acceptance rule for a step with reduced
// energy change x = beta*dE and selection probability factor s, given a
// uniform draw u in [0, 1). The step is accepted iff
//
//	x <= -ln s  or  u < (1/s) exp(-x)
func Accept(x, s, u float64) bool {
	if x <= -math.Log(s) {
		return true
	}
	return u < math.Exp(-x)/s
}

// RunSteps performs n Metropolis steps at inverse temperature beta.
func (e *Engine[E]) RunSteps(n int, beta float64) {
	var acc, rej, null int64
	for i := 0; i < n; i++ {
		step := e.config.ProposeStep(e.rng)
		if !step.Executable() {
			null++
			continue
		}
		x := beta * float64(step.DeltaE())
		if Accept(x, step.SelectionProbabilityFactor(), e.rng.Float64()) {
			step.Execute()
			acc++
		} else {
			rej++
		}
	}
	e.stats.Accepted += acc
	e.stats.Rejected += rej
	e.stats.Null += null
	e.recorder.ObserveSteps(metrics.EngineMetropolis, metrics.OutcomeAccepted, acc)
	e.recorder.ObserveSteps(metrics.EngineMetropolis, metrics.OutcomeRejected, rej)
	e.recorder.ObserveSteps(metrics.EngineMetropolis, metrics.OutcomeNull, null)
}

// Relax performs the configured relaxation steps.
func (e *Engine[E]) Relax(beta float64) {
	e.RunSteps(e.params.RelaxationSteps, beta)
}

func (e *Engine[E]) measure() {
	if e.onMeasurement != nil {
		e.onMeasurement()
	}
	e.recorder.ObserveMeasurement()
}
