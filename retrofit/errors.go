package retrofit

import (
	"errors"

	"github.com/hupe1980/vecspace/shard"
)

var (
	// ErrInvalidIterations is returned when Iterations is not positive.
	ErrInvalidIterations = errors.New("retrofit: iterations must be positive")
	// ErrInvalidShardCount is returned when NumShards is not positive.
	ErrInvalidShardCount = shard.ErrInvalidShardCount
	// ErrInvalidVerbosity is returned when Verbosity is negative.
	ErrInvalidVerbosity = errors.New("retrofit: verbosity must not be negative")
	// ErrInvalidWorkers is returned when MaxWorkers is negative.
	ErrInvalidWorkers = errors.New("retrofit: max workers must not be negative")
	// ErrNilMatrix is returned when Run gets no matrix.
	ErrNilMatrix = errors.New("retrofit: nil matrix")
	// ErrShardTooLarge is returned when one shard does not fit the memory budget.
	ErrShardTooLarge = errors.New("retrofit: shard exceeds memory budget")
	// ErrIncompleteCheckpoint is returned when a checkpoint cannot be joined.
	ErrIncompleteCheckpoint = errors.New("retrofit: incomplete checkpoint")
	// ErrNoCheckpoint is returned when no checkpoint has been committed.
	ErrNoCheckpoint = errors.New("retrofit: no committed checkpoint")
)
