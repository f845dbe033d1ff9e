package vecspace

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/vecspace/merge"
	"github.com/hupe1980/vecspace/retrofit"
)

// Logger wraps slog.Logger with vecspace-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, nil))
}

// WithRunID adds a run_id field to the logger.
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run_id", id),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// LogRetrofit logs the outcome of a retrofit run.
func (l *Logger) LogRetrofit(ctx context.Context, report *retrofit.Report, err error) {
	if err != nil {
		l.ErrorContext(ctx, "retrofit failed",
			"error", err,
		)
		return
	}
	args := []any{
		"run_id", report.RunID,
		"rounds", report.Rounds,
		"shards", len(report.Shards),
		"workers", report.Workers,
		"isolated", report.Isolated,
		"elapsed", report.Elapsed,
	}
	if report.Checkpoint != nil {
		args = append(args, "checkpoint_bytes", report.Checkpoint.TotalSize())
	}
	if report.DroppedGraphLabels > 0 || report.DroppedEdges > 0 {
		l.WarnContext(ctx, "retrofit completed with dropped graph data",
			append(args,
				"dropped_labels", report.DroppedGraphLabels,
				"dropped_edges", report.DroppedEdges,
			)...,
		)
		return
	}
	l.InfoContext(ctx, "retrofit completed", args...)
}

// LogRound logs one retrofit round.
func (l *Logger) LogRound(ctx context.Context, round int, delta float64, duration time.Duration) {
	l.DebugContext(ctx, "round completed",
		"round", round,
		"delta_norm", delta,
		"duration", duration,
	)
}

// LogMerge logs an interpolate or intersect operation.
func (l *Logger) LogMerge(ctx context.Context, op string, rows, dim int, err error) {
	if err != nil {
		l.ErrorContext(ctx, op+" failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, op+" completed",
		"rows", rows,
		"dimension", dim,
	)
}

// LogCoverage logs an input excluded from interpolation.
func (l *Logger) LogCoverage(ctx context.Context, d merge.CoverageDiagnostic) {
	l.WarnContext(ctx, "input excluded",
		"input", d.Input,
		"overlap", d.Overlap,
		"threshold", d.Threshold,
		"reason", d.Err,
	)
}

// LogJoin logs a checkpoint join.
func (l *Logger) LogJoin(ctx context.Context, prefix string, rows int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "join failed",
			"prefix", prefix,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "join completed",
		"prefix", prefix,
		"rows", rows,
	)
}
