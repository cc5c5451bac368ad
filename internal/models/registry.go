package models

import (
	"encoding"
	"fmt"
	"slices"

	"github.com/SpeckFleck/mocasinns/internal/mc"
)

// Model is a configuration that can be checkpointed.
type Model interface {
	mc.Configuration[int]
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// Counted is implemented by models that know the logarithm of their total
// number of microstates, which fixes the additive constant of ln g(E).
type Counted interface {
	LnStateCount() float64
}

// Params are the construction parameters shared by the registered models.
// Fields a model does not use are ignored.
type Params struct {
	Sizes      []int
	Coupling   int
	Degeneracy int
}

type Registry struct {
	models      map[string]func(Params) (Model, error)
	observables map[string]mc.Observable[int, mc.Scalar]
}

func NewRegistry() *Registry {
	r := &Registry{
		models:      make(map[string]func(Params) (Model, error)),
		observables: make(map[string]mc.Observable[int, mc.Scalar]),
	}

	r.models["ising"] = func(p Params) (Model, error) {
		if len(p.Sizes) == 0 {
			return nil, fmt.Errorf("ising: lattice size required")
		}
		for _, l := range p.Sizes {
			if l < 2 {
				return nil, fmt.Errorf("ising: lattice extent %d below 2", l)
			}
		}
		return NewIsing(p.Sizes, p.Coupling), nil
	}
	r.models["two-level"] = func(p Params) (Model, error) {
		if p.Degeneracy < 1 {
			return nil, fmt.Errorf("two-level: degeneracy %d below 1", p.Degeneracy)
		}
		return NewTwoLevel(p.Degeneracy), nil
	}

	r.observables["energy"] = EnergyPerSite
	r.observables["magnetization"] = MagnetizationPerSite
	r.observables["abs-magnetization"] = AbsMagnetizationPerSite

	return r
}

func (r *Registry) GetModel(name string, p Params) (Model, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return fn(p)
}

func (r *Registry) GetObservable(name string) (mc.Observable[int, mc.Scalar], error) {
	fn, ok := r.observables[name]
	if !ok {
		return nil, fmt.Errorf("unknown observable: %s", name)
	}
	return fn, nil
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *Registry) ListObservables() []string {
	names := make([]string, 0, len(r.observables))
	for name := range r.observables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
