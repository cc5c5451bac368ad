package models

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/SpeckFleck/mocasinns/internal/mc"
)

// TwoLevel is a toy system with Degeneracy states at energy 0 and a single
// state at energy 1, so g(0)/g(1) equals the degeneracy. States 0 to
// Degeneracy-1 are the ground states; state Degeneracy is excited.
//
// A step proposes a uniformly chosen target state. Proposing the current
// state is not executable.
type TwoLevel struct {
	degeneracy int
	state      int
}

// NewTwoLevel returns the system in ground state 0. It panics if
// degeneracy is below 1.
func NewTwoLevel(degeneracy int) *TwoLevel {
	if degeneracy < 1 {
		panic(fmt.Sprintf("models: two-level degeneracy %d", degeneracy))
	}
	return &TwoLevel{degeneracy: degeneracy}
}

func (t *TwoLevel) Degeneracy() int { return t.degeneracy }
func (t *TwoLevel) State() int      { return t.state }
func (t *TwoLevel) SystemSize() int { return 1 }
func (t *TwoLevel) Energy() int     { return t.energyOf(t.state) }

func (t *TwoLevel) LnStateCount() float64 { return math.Log(float64(t.degeneracy + 1)) }

func (t *TwoLevel) energyOf(state int) int {
	if state == t.degeneracy {
		return 1
	}
	return 0
}

func (t *TwoLevel) ProposeStep(rng mc.RandomSource) mc.Step[int] {
	target := mc.Intn(rng, t.degeneracy+1)
	return &Jump{system: t, target: target}
}

func (t *TwoLevel) MarshalBinary() ([]byte, error) {
	buf := binary.AppendUvarint(nil, uint64(t.degeneracy))
	return binary.AppendUvarint(buf, uint64(t.state)), nil
}

func (t *TwoLevel) UnmarshalBinary(data []byte) error {
	deg, n := binary.Uvarint(data)
	if n <= 0 || int(deg) != t.degeneracy {
		return fmt.Errorf("%w: degeneracy header", ErrState)
	}
	state, m := binary.Uvarint(data[n:])
	if m <= 0 || int(state) > t.degeneracy {
		return fmt.Errorf("%w: two-level state", ErrState)
	}
	t.state = int(state)
	return nil
}

// Jump moves a TwoLevel system to a target state.
type Jump struct {
	system *TwoLevel
	target int
}

func (j *Jump) Executable() bool                    { return j.target != j.system.state }
func (j *Jump) SelectionProbabilityFactor() float64 { return 1 }
func (j *Jump) Execute()                            { j.system.state = j.target }

func (j *Jump) DeltaE() int {
	return j.system.energyOf(j.target) - j.system.Energy()
}
