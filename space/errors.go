package space

import "errors"

var (
	// ErrDuplicateLabel is returned when a label occurs twice in one matrix.
	ErrDuplicateLabel = errors.New("space: duplicate label")
	// ErrDimensionMismatch is returned when a vector does not match the matrix width.
	ErrDimensionMismatch = errors.New("space: dimension mismatch")
	// ErrInvalidDimension is returned for negative widths or non-positive truncation widths.
	ErrInvalidDimension = errors.New("space: invalid dimension")
)
