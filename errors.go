package vecspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/vecspace/format"
	"github.com/hupe1980/vecspace/graph"
	"github.com/hupe1980/vecspace/lookup"
	"github.com/hupe1980/vecspace/merge"
	"github.com/hupe1980/vecspace/retrofit"
	"github.com/hupe1980/vecspace/shard"
	"github.com/hupe1980/vecspace/space"
)

var (
	// ErrMalformedInput is returned when a graph, matrix or checkpoint
	// cannot be parsed or fails verification.
	ErrMalformedInput = errors.New("malformed input")

	// ErrCoverageTooLow is returned when no input covers enough of the
	// target vocabulary.
	ErrCoverageTooLow = errors.New("coverage too low")

	// ErrConfiguration is returned for invalid parameters. It is detected
	// before any computation starts.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrMissingLabel is returned by Lookup.Vector when a term resolves to
	// no label.
	ErrMissingLabel = errors.New("missing label")
)

// ConfigurationError describes an invalid parameter.
//
// errors.Is(err, ErrConfiguration) reports true; the package error that
// triggered it can be accessed via errors.Unwrap.
type ConfigurationError struct {
	Param  string
	Reason string
	cause  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Param, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.cause }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

var configParams = []struct {
	err   error
	param string
}{
	{retrofit.ErrInvalidIterations, "iterations"},
	{retrofit.ErrInvalidShardCount, "nshards"},
	{retrofit.ErrInvalidVerbosity, "verbosity"},
	{retrofit.ErrInvalidWorkers, "max_workers"},
	{retrofit.ErrShardTooLarge, "memory_limit"},
	{retrofit.ErrNilMatrix, "matrix"},
	{shard.ErrUnknownPolicy, "policy"},
	{merge.ErrTooFewInputs, "inputs"},
	{merge.ErrEmptyIntersection, "inputs"},
	{merge.ErrInvalidDimension, "dim"},
	{merge.ErrInvalidOption, "merge option"},
	{merge.ErrNilMatrix, "matrix"},
	{lookup.ErrNilMatrix, "matrix"},
	{format.ErrUnknownFormat, "format"},
}

var malformed = []error{
	graph.ErrMalformedRecord,
	format.ErrMalformed,
	space.ErrDimensionMismatch,
	space.ErrDuplicateLabel,
	space.ErrInvalidDimension,
	retrofit.ErrIncompleteCheckpoint,
	merge.ErrProjectorShape,
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, ErrConfiguration) || errors.Is(err, ErrMalformedInput) || errors.Is(err, ErrCoverageTooLow) {
		return err
	}

	for _, c := range configParams {
		if errors.Is(err, c.err) {
			return &ConfigurationError{Param: c.param, Reason: err.Error(), cause: err}
		}
	}
	for _, m := range malformed {
		if errors.Is(err, m) {
			return fmt.Errorf("%w: %w", ErrMalformedInput, err)
		}
	}
	if errors.Is(err, merge.ErrNothingUsable) {
		return fmt.Errorf("%w: %w", ErrCoverageTooLow, err)
	}
	return err
}
