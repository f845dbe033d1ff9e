package graph

import (
	"errors"
	"fmt"
)

// ErrMalformedRecord marks a source record that could not be parsed.
// Build skips and counts such records instead of failing.
var ErrMalformedRecord = errors.New("graph: malformed record")

// RecordError describes a malformed record.
type RecordError struct {
	Line   int
	Reason string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("graph: malformed record at line %d: %s", e.Line, e.Reason)
}

func (e *RecordError) Unwrap() error { return ErrMalformedRecord }
