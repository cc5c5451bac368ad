package histogram

import (
	"errors"
	"fmt"
)

var (
	// ErrDegenerate indicates a numeric operation without a finite result,
	// such as dividing by a missing or zero bin.
	ErrDegenerate = errors.New("histogram: degenerate numeric operation")

	// ErrInvalidBinning indicates binning parameters outside the valid range.
	ErrInvalidBinning = errors.New("histogram: invalid binning")

	// ErrUnsupportedVersion indicates serialized data of an unknown format version.
	ErrUnsupportedVersion = errors.New("histogram: unsupported format version")

	// ErrMalformed indicates serialized data that cannot be parsed.
	ErrMalformed = errors.New("histogram: malformed data")
)

// DegenerateError reports the bin at which a division became degenerate.
type DegenerateError struct {
	Bin    string
	Reason string
}

func (e *DegenerateError) Error() string {
	return fmt.Sprintf("histogram: degenerate division at bin %s: %s", e.Bin, e.Reason)
}

func (e *DegenerateError) Unwrap() error {
	return ErrDegenerate
}
