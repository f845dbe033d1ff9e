package vecspace

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/hupe1980/vecspace/retrofit"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordRetrofit is called after each retrofit run.
	RecordRetrofit(rows int, duration time.Duration, err error)

	// RecordRound is called after the barrier of each retrofit round with
	// the L2 norm of the change.
	RecordRound(round int, duration time.Duration, delta float64)

	// RecordCheckpoint is called after a checkpoint is written.
	RecordCheckpoint(bytes int64, duration time.Duration, err error)

	// RecordMerge is called after each interpolate or intersect.
	RecordMerge(op string, rows int, duration time.Duration, err error)

	// RecordJoin is called after each checkpoint join.
	RecordJoin(rows int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordRetrofit(int, time.Duration, error)      {}
func (NoopMetricsCollector) RecordRound(int, time.Duration, float64)       {}
func (NoopMetricsCollector) RecordCheckpoint(int64, time.Duration, error)  {}
func (NoopMetricsCollector) RecordMerge(string, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordJoin(int, time.Duration, error)          {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	RetrofitCount      atomic.Int64
	RetrofitErrors     atomic.Int64
	RetrofitRows       atomic.Int64
	RetrofitTotalNanos atomic.Int64
	RoundCount         atomic.Int64
	RoundTotalNanos    atomic.Int64
	// LastDelta holds math.Float64bits of the latest round delta.
	LastDelta        atomic.Uint64
	CheckpointCount  atomic.Int64
	CheckpointErrors atomic.Int64
	CheckpointBytes  atomic.Int64
	MergeCount       atomic.Int64
	MergeErrors      atomic.Int64
	MergeRows        atomic.Int64
	JoinCount        atomic.Int64
	JoinErrors       atomic.Int64
}

// RecordRetrofit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRetrofit(rows int, duration time.Duration, err error) {
	b.RetrofitCount.Add(1)
	b.RetrofitTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RetrofitErrors.Add(1)
		return
	}
	b.RetrofitRows.Add(int64(rows))
}

// RecordRound implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRound(_ int, duration time.Duration, delta float64) {
	b.RoundCount.Add(1)
	b.RoundTotalNanos.Add(duration.Nanoseconds())
	b.LastDelta.Store(math.Float64bits(delta))
}

// RecordCheckpoint implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCheckpoint(bytes int64, _ time.Duration, err error) {
	b.CheckpointCount.Add(1)
	if err != nil {
		b.CheckpointErrors.Add(1)
		return
	}
	b.CheckpointBytes.Add(bytes)
}

// RecordMerge implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMerge(_ string, rows int, _ time.Duration, err error) {
	b.MergeCount.Add(1)
	if err != nil {
		b.MergeErrors.Add(1)
		return
	}
	b.MergeRows.Add(int64(rows))
}

// RecordJoin implements MetricsCollector.
func (b *BasicMetricsCollector) RecordJoin(_ int, _ time.Duration, err error) {
	b.JoinCount.Add(1)
	if err != nil {
		b.JoinErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		RetrofitCount:    b.RetrofitCount.Load(),
		RetrofitErrors:   b.RetrofitErrors.Load(),
		RetrofitRows:     b.RetrofitRows.Load(),
		RetrofitAvgNanos: avg(b.RetrofitTotalNanos.Load(), b.RetrofitCount.Load()),
		RoundCount:       b.RoundCount.Load(),
		RoundAvgNanos:    avg(b.RoundTotalNanos.Load(), b.RoundCount.Load()),
		LastDelta:        math.Float64frombits(b.LastDelta.Load()),
		CheckpointCount:  b.CheckpointCount.Load(),
		CheckpointErrors: b.CheckpointErrors.Load(),
		CheckpointBytes:  b.CheckpointBytes.Load(),
		MergeCount:       b.MergeCount.Load(),
		MergeErrors:      b.MergeErrors.Load(),
		MergeRows:        b.MergeRows.Load(),
		JoinCount:        b.JoinCount.Load(),
		JoinErrors:       b.JoinErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	RetrofitCount    int64
	RetrofitErrors   int64
	RetrofitRows     int64
	RetrofitAvgNanos int64
	RoundCount       int64
	RoundAvgNanos    int64
	LastDelta        float64
	CheckpointCount  int64
	CheckpointErrors int64
	CheckpointBytes  int64
	MergeCount       int64
	MergeErrors      int64
	MergeRows        int64
	JoinCount        int64
	JoinErrors       int64
}

// metricsObserver feeds retrofit engine events into a MetricsCollector
// and the round log.
type metricsObserver struct {
	mc     MetricsCollector
	logger *Logger
}

var _ retrofit.Observer = metricsObserver{}

func (o metricsObserver) OnRound(round int, duration time.Duration, delta float64) {
	o.mc.RecordRound(round, duration, delta)
	o.logger.LogRound(context.Background(), round, delta, duration)
}

func (metricsObserver) OnShard(int, int, time.Duration, int) {}

func (o metricsObserver) OnRun(duration time.Duration, rows int, err error) {
	o.mc.RecordRetrofit(rows, duration, err)
}

func (o metricsObserver) OnCheckpoint(duration time.Duration, bytes int64, err error) {
	o.mc.RecordCheckpoint(bytes, duration, err)
}
