package models

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/SpeckFleck/mocasinns/internal/mc"
)

// ErrState is returned when a serialized configuration does not match the
// receiving model.
var ErrState = errors.New("models: invalid configuration state")

// Ising is a hypercubic lattice of +1/-1 spins with periodic boundaries and
// nearest-neighbour coupling J:
//
//	E = -J sum_<ij> s_i s_j
//
// Each bond is counted once per forward lattice direction.
type Ising struct {
	sizes   []int
	strides []int
	j       int
	spins   []int8
	energy  int
}

// NewIsing returns a lattice with the given extent per dimension and all
// spins up. It panics if sizes is empty or any extent is below 2.
func NewIsing(sizes []int, j int) *Ising {
	if len(sizes) == 0 {
		panic("models: ising lattice needs at least one dimension")
	}
	n := 1
	strides := make([]int, len(sizes))
	for d, l := range sizes {
		if l < 2 {
			panic(fmt.Sprintf("models: ising extent %d in dimension %d", l, d))
		}
		strides[d] = n
		n *= l
	}
	m := &Ising{
		sizes:   append([]int(nil), sizes...),
		strides: strides,
		j:       j,
		spins:   make([]int8, n),
	}
	for i := range m.spins {
		m.spins[i] = 1
	}
	m.energy = m.computeEnergy()
	return m
}

func (m *Ising) Sizes() []int    { return append([]int(nil), m.sizes...) }
func (m *Ising) Coupling() int   { return m.j }
func (m *Ising) SystemSize() int { return len(m.spins) }
func (m *Ising) Energy() int     { return m.energy }

func (m *Ising) Spin(site int) int {
	return int(m.spins[site])
}

// SetSpin sets site to s (+1 or -1) and updates the energy.
func (m *Ising) SetSpin(site, s int) {
	if int(m.spins[site]) == s {
		return
	}
	m.flip(site)
}

func (m *Ising) Magnetization() int {
	sum := 0
	for _, s := range m.spins {
		sum += int(s)
	}
	return sum
}

// LnStateCount is N ln 2.
func (m *Ising) LnStateCount() float64 { return float64(len(m.spins)) * math.Ln2 }

// neighbour returns the site one step from site along dimension d in
// direction dir (+1 or -1).
func (m *Ising) neighbour(site, d, dir int) int {
	l := m.sizes[d]
	coord := (site / m.strides[d]) % l
	next := (coord + dir + l) % l
	return site + (next-coord)*m.strides[d]
}

func (m *Ising) computeEnergy() int {
	sum := 0
	for i, s := range m.spins {
		for d := range m.sizes {
			sum += int(s) * int(m.spins[m.neighbour(i, d, 1)])
		}
	}
	return -m.j * sum
}

func (m *Ising) flipDelta(site int) int {
	nb := 0
	for d := range m.sizes {
		nb += int(m.spins[m.neighbour(site, d, 1)])
		nb += int(m.spins[m.neighbour(site, d, -1)])
	}
	return 2 * m.j * int(m.spins[site]) * nb
}

func (m *Ising) flip(site int) {
	m.energy += m.flipDelta(site)
	m.spins[site] = -m.spins[site]
}

// ProposeStep proposes flipping a uniformly chosen spin.
func (m *Ising) ProposeStep(rng mc.RandomSource) mc.Step[int] {
	site := mc.Intn(rng, len(m.spins))
	return &SpinFlip{lattice: m, site: site, delta: m.flipDelta(site)}
}

// Clone returns an independent copy of the lattice.
func (m *Ising) Clone() *Ising {
	c := *m
	c.sizes = append([]int(nil), m.sizes...)
	c.strides = append([]int(nil), m.strides...)
	c.spins = append([]int8(nil), m.spins...)
	return &c
}

// MarshalBinary encodes the extents followed by one byte per spin.
func (m *Ising) MarshalBinary() ([]byte, error) {
	buf := binary.AppendUvarint(nil, uint64(len(m.sizes)))
	for _, l := range m.sizes {
		buf = binary.AppendUvarint(buf, uint64(l))
	}
	for _, s := range m.spins {
		if s > 0 {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}
	return buf, nil
}

// UnmarshalBinary restores spins written by MarshalBinary. The extents must
// match the receiver.
func (m *Ising) UnmarshalBinary(data []byte) error {
	dims, n := binary.Uvarint(data)
	if n <= 0 || int(dims) != len(m.sizes) {
		return fmt.Errorf("%w: dimension header", ErrState)
	}
	data = data[n:]
	for d := range m.sizes {
		l, n := binary.Uvarint(data)
		if n <= 0 || int(l) != m.sizes[d] {
			return fmt.Errorf("%w: extent of dimension %d", ErrState, d)
		}
		data = data[n:]
	}
	if len(data) != len(m.spins) {
		return fmt.Errorf("%w: %d spins, want %d", ErrState, len(data), len(m.spins))
	}
	for _, b := range data {
		if b > 1 {
			return fmt.Errorf("%w: spin byte %d", ErrState, b)
		}
	}
	for i, b := range data {
		m.spins[i] = int8(2*int(b) - 1)
	}
	m.energy = m.computeEnergy()
	return nil
}

// SpinFlip flips one spin of an Ising lattice.
type SpinFlip struct {
	lattice *Ising
	site    int
	delta   int
}

func (s *SpinFlip) Executable() bool                    { return true }
func (s *SpinFlip) DeltaE() int                         { return s.delta }
func (s *SpinFlip) SelectionProbabilityFactor() float64 { return 1 }
func (s *SpinFlip) Execute()                            { s.lattice.flip(s.site) }
