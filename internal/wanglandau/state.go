package wanglandau

import "fmt"

// State is the phase of a Wang-Landau run.
//
//	Sampling -> FlatnessCheck -> Refine -> Sampling | Converged
type State int

const (
	Sampling State = iota
	FlatnessCheck
	Refine
	// Converged is terminal.
	Converged
)

var stateNames = [...]string{
	Sampling:      "sampling",
	FlatnessCheck: "flatness_check",
	Refine:        "refine",
	Converged:     "converged",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// ParseState is the inverse of String.
func ParseState(name string) (State, error) {
	for s, n := range stateNames {
		if n == name {
			return State(s), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown state %q", ErrCheckpoint, name)
}
