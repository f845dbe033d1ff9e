package merge

import (
	"errors"
	"fmt"
)

var (
	// ErrTooFewInputs is returned when Intersect receives fewer than two matrices.
	ErrTooFewInputs = errors.New("merge: at least two input matrices required")
	// ErrInvalidDimension is returned for a non-positive target dimension.
	ErrInvalidDimension = errors.New("merge: target dimension must be positive")
	// ErrEmptyIntersection is returned when the inputs share no label.
	ErrEmptyIntersection = errors.New("merge: inputs share no label")
	// ErrNothingUsable is returned when interpolation has no qualifying input
	// or produces no rows.
	ErrNothingUsable = errors.New("merge: no usable input")
	// ErrNilMatrix is returned for a nil input matrix.
	ErrNilMatrix = errors.New("merge: nil matrix")
	// ErrInvalidOption is returned for an invalid option value.
	ErrInvalidOption = errors.New("merge: invalid option")

	// ErrCoverageTooLow marks an input whose target overlap is below the
	// vocabulary threshold. It is reported in diagnostics, never returned.
	ErrCoverageTooLow = errors.New("merge: coverage below vocabulary threshold")
	// ErrNoSharedLabels marks an input of a different width that shares no
	// label with the reference input, so no projector can be fitted.
	ErrNoSharedLabels = errors.New("merge: no shared labels to fit projector")

	// ErrProjectorShape is returned when a vector or matrix does not have the
	// projector's input width, or an exported projector is malformed.
	ErrProjectorShape = errors.New("merge: projector shape mismatch")
	// ErrSingular is returned when a least-squares system cannot be factorized.
	ErrSingular = errors.New("merge: singular system")
)

// CoverageDiagnostic records an input that was excluded from interpolation.
type CoverageDiagnostic struct {
	// Input is the position of the input (0 for a, 1 for b).
	Input int
	// Overlap is the number of input labels in the target set.
	Overlap   int
	Threshold int
	Err       error
}

func (d CoverageDiagnostic) Error() string {
	return fmt.Sprintf("input %d: overlap %d, threshold %d: %v", d.Input, d.Overlap, d.Threshold, d.Err)
}

func (d CoverageDiagnostic) Unwrap() error { return d.Err }
