package retrofit

import (
	"log/slog"

	"github.com/hupe1980/vecspace/internal/resource"
	"github.com/hupe1980/vecspace/shard"
)

// Options configures an Engine.
type Options struct {
	// Iterations is the exact number of rounds. Default 5.
	Iterations int
	// NumShards is the number of row partitions. Default 6.
	NumShards int
	// Verbosity 1 logs one line per round, 2 adds one line per shard.
	Verbosity int
	// Policy selects the row partitioning.
	Policy shard.Policy
	// MaxWorkers caps concurrent shard workers. 0 means one per shard.
	MaxWorkers int
	// MemoryLimitBytes caps shard working memory. 0 means unlimited.
	MemoryLimitBytes int64
	// IOLimitBytesPerSec caps checkpoint upload throughput. 0 means unlimited.
	IOLimitBytesPerSec int64
	// Logger receives progress and warnings. Defaults to a discard logger.
	Logger *slog.Logger
	// Observer receives timing events.
	Observer Observer
	// Checkpointer, when set, persists the result after the last round.
	Checkpointer *Checkpointer
	// Controller overrides the resource controller built from the limits above.
	Controller *resource.Controller
}

// DefaultOptions are the defaults used by New.
var DefaultOptions = Options{
	Iterations: 5,
	NumShards:  6,
	Policy:     shard.PolicyHash,
}

// WithIterations sets the number of rounds.
func WithIterations(n int) func(*Options) {
	return func(o *Options) { o.Iterations = n }
}

// WithNumShards sets the number of shards.
func WithNumShards(n int) func(*Options) {
	return func(o *Options) { o.NumShards = n }
}

// WithVerbosity sets the logging verbosity.
func WithVerbosity(v int) func(*Options) {
	return func(o *Options) { o.Verbosity = v }
}

// WithPolicy sets the partition policy.
func WithPolicy(p shard.Policy) func(*Options) {
	return func(o *Options) { o.Policy = p }
}

// WithMaxWorkers caps concurrent shard workers.
func WithMaxWorkers(n int) func(*Options) {
	return func(o *Options) { o.MaxWorkers = n }
}

// WithMemoryLimit caps shard working memory in bytes.
func WithMemoryLimit(bytes int64) func(*Options) {
	return func(o *Options) { o.MemoryLimitBytes = bytes }
}

// WithIOLimit caps checkpoint upload throughput in bytes per second.
func WithIOLimit(bytesPerSec int64) func(*Options) {
	return func(o *Options) { o.IOLimitBytesPerSec = bytesPerSec }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) func(*Options) {
	return func(o *Options) { o.Logger = l }
}

// WithObserver sets the observer.
func WithObserver(obs Observer) func(*Options) {
	return func(o *Options) { o.Observer = obs }
}

// WithCheckpointer persists results through cp.
func WithCheckpointer(cp *Checkpointer) func(*Options) {
	return func(o *Options) { o.Checkpointer = cp }
}

// WithResourceController shares an existing resource controller.
func WithResourceController(rc *resource.Controller) func(*Options) {
	return func(o *Options) { o.Controller = rc }
}
