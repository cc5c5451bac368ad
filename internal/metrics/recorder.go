// Package metrics exposes engine progress as Prometheus metrics.
//
// A [Recorder] is registered against a caller-supplied registry so that
// parallel replicas and tests can keep their metrics isolated. All methods
// are safe on a nil *Recorder, which records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mocasinns"

// Step outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeNull     = "null"
)

// Engine label values.
const (
	EngineMetropolis = "metropolis"
	EngineWangLandau = "wang_landau"
)

// Recorder holds the engine metrics.
type Recorder struct {
	// Steps counts Monte Carlo steps by engine and outcome.
	Steps *prometheus.CounterVec

	// Measurements counts observable samples taken by the Metropolis engine.
	Measurements prometheus.Counter

	// Epochs counts completed Wang-Landau epochs.
	Epochs prometheus.Counter

	// ModificationFactor is the current Wang-Landau modification factor.
	ModificationFactor prometheus.Gauge

	// Flatness is the result of the latest Wang-Landau flatness check.
	Flatness prometheus.Gauge
}

// NewRecorder creates the metrics and registers them with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		Steps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Monte Carlo steps by engine and outcome",
		}, []string{"engine", "outcome"}),
		Measurements: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: EngineMetropolis,
			Name:      "measurements_total",
			Help:      "Observable samples taken",
		}),
		Epochs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: EngineWangLandau,
			Name:      "epochs_total",
			Help:      "Completed Wang-Landau epochs",
		}),
		ModificationFactor: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: EngineWangLandau,
			Name:      "modification_factor",
			Help:      "Current log-scale modification factor",
		}),
		Flatness: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: EngineWangLandau,
			Name:      "flatness",
			Help:      "Min/mean ratio of the visit histogram at the latest check",
		}),
	}
}

// ObserveSteps adds n steps with the given outcome.
func (r *Recorder) ObserveSteps(engine, outcome string, n int64) {
	if r == nil || n == 0 {
		return
	}
	r.Steps.WithLabelValues(engine, outcome).Add(float64(n))
}

func (r *Recorder) ObserveMeasurement() {
	if r == nil {
		return
	}
	r.Measurements.Inc()
}

func (r *Recorder) ObserveFlatness(v float64) {
	if r == nil {
		return
	}
	r.Flatness.Set(v)
}

// ObserveEpoch records a completed epoch and the new modification factor.
func (r *Recorder) ObserveEpoch(modificationFactor float64) {
	if r == nil {
		return
	}
	r.Epochs.Inc()
	r.ModificationFactor.Set(modificationFactor)
}

func (r *Recorder) SetModificationFactor(v float64) {
	if r == nil {
		return
	}
	r.ModificationFactor.Set(v)
}
