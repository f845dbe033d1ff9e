package vecspace

import (
	"log/slog"

	"github.com/hupe1980/vecspace/blobstore"
	"github.com/hupe1980/vecspace/lookup"
	"github.com/hupe1980/vecspace/merge"
	"github.com/hupe1980/vecspace/retrofit"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	retrofit         []func(*retrofit.Options)
	merge            []func(*merge.Options)
	lookup           []func(*lookup.Options)
	checkpoint       *checkpointTarget
}

type checkpointTarget struct {
	store  blobstore.Store
	prefix string
	opts   []func(*retrofit.CheckpointOptions)
}

// Option configures the functions of this package.
type Option func(*options)

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &vecspace.BasicMetricsCollector{}
//	res, _ := vecspace.Retrofit(ctx, m, g, vecspace.WithMetricsCollector(metrics))
//	stats := metrics.GetStats()
//	fmt.Printf("rounds: %d, last delta: %g\n", stats.RoundCount, stats.LastDelta)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging. Pass nil to disable logging.
//
// The logger is handed down to the retrofit, merge and lookup packages.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithRetrofitOptions passes options to the retrofit engine.
func WithRetrofitOptions(optFns ...func(*retrofit.Options)) Option {
	return func(o *options) {
		o.retrofit = append(o.retrofit, optFns...)
	}
}

// WithMergeOptions passes options to interpolate and intersect.
func WithMergeOptions(optFns ...func(*merge.Options)) Option {
	return func(o *options) {
		o.merge = append(o.merge, optFns...)
	}
}

// WithLookupOptions passes options to the lookup wrapper.
func WithLookupOptions(optFns ...func(*lookup.Options)) Option {
	return func(o *options) {
		o.lookup = append(o.lookup, optFns...)
	}
}

// WithCheckpoint makes Retrofit persist its result under prefix in store.
// JoinRetrofit reads it back with the same store and prefix.
func WithCheckpoint(store blobstore.Store, prefix string, optFns ...func(*retrofit.CheckpointOptions)) Option {
	return func(o *options) {
		o.checkpoint = &checkpointTarget{store: store, prefix: prefix, opts: optFns}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

func (o *options) checkpointer() *retrofit.Checkpointer {
	if o.checkpoint == nil {
		return nil
	}
	return newCheckpointer(o, o.checkpoint.store, o.checkpoint.prefix, o.checkpoint.opts)
}

func newCheckpointer(o *options, store blobstore.Store, prefix string, extra []func(*retrofit.CheckpointOptions)) *retrofit.Checkpointer {
	fns := append([]func(*retrofit.CheckpointOptions){retrofit.WithCheckpointLogger(o.logger.Logger)}, extra...)
	return retrofit.NewCheckpointer(store, prefix, fns...)
}
