package retrofit

import "time"

// Observer receives engine events. Implementations must be safe for
// concurrent use: OnShard is called from worker goroutines.
type Observer interface {
	// OnRound is called after the barrier of each round with the L2 norm
	// of the change committed in that round.
	OnRound(round int, duration time.Duration, delta float64)

	// OnShard is called when a shard worker finishes a round.
	OnShard(round, shard int, duration time.Duration, rows int)

	// OnRun is called once per Run.
	OnRun(duration time.Duration, rows int, err error)

	// OnCheckpoint reports bytes written by a checkpoint.
	OnCheckpoint(duration time.Duration, bytes int64, err error)
}

// NoopObserver ignores every event.
type NoopObserver struct{}

func (NoopObserver) OnRound(int, time.Duration, float64) {}
func (NoopObserver) OnShard(int, int, time.Duration, int) {}
func (NoopObserver) OnRun(time.Duration, int, error) {}
func (NoopObserver) OnCheckpoint(time.Duration, int64, error) {}
