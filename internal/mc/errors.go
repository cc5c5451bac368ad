package mc

import (
	"errors"

	"github.com/SpeckFleck/mocasinns/internal/histogram"
)

// Domain errors shared by the engines.
var (
	// ErrParameterBounds indicates a simulation parameter outside its valid range.
	ErrParameterBounds = errors.New("mc: parameter out of valid bounds")

	// ErrDimensionMismatch indicates sequences of different lengths that
	// must be paired element-wise.
	ErrDimensionMismatch = errors.New("mc: dimension mismatch")

	// ErrDegenerate indicates a numeric operation without a finite result.
	// It is the same value as histogram.ErrDegenerate.
	ErrDegenerate = histogram.ErrDegenerate
)
