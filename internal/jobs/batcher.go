package jobs

import (
	"context"
	"fmt"
)

// batcher groups accepted items into fixed-size flushes and paces them.
//
// The pause is taken before every flush that follows an earlier one, so a job
// with k flushes sleeps k-1 times and never after its last batch.
type batcher[T any] struct {
	size    int
	policy  Policy
	sink    Sink[T]
	sleeper Sleeper
	tracker *Tracker

	items   []T
	flushes int
}

func newBatcher[T any](t *Tracker, sink Sink[T], policy Policy, sleeper Sleeper) *batcher[T] {
	size := policy.BatchSize
	if size <= 0 {
		size = 1
	}
	if sleeper == nil {
		sleeper = timerSleeper{}
	}
	return &batcher[T]{
		size:    size,
		policy:  policy,
		sink:    sink,
		sleeper: sleeper,
		tracker: t,
		items:   make([]T, 0, size),
	}
}

// add queues item and flushes once the batch is full.
func (b *batcher[T]) add(ctx context.Context, item T) error {
	b.items = append(b.items, item)
	if len(b.items) < b.size {
		return nil
	}
	return b.flush(ctx)
}

// flush hands the pending items to the sink and records one outcome per item.
// An empty batch is a no-op.
func (b *batcher[T]) flush(ctx context.Context) error {
	if len(b.items) == 0 {
		return nil
	}
	if b.flushes > 0 {
		if err := b.sleeper.Sleep(ctx, b.policy.Delay); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	batch := b.items
	b.items = make([]T, 0, b.size)
	b.flushes++

	results, err := b.sink.Flush(ctx, batch)
	if err != nil {
		// Items the sink handled before failing keep their outcome.
		b.record(results, min(len(results), len(batch)))
		return fmt.Errorf("flush batch %d: %w", b.flushes, err)
	}
	b.record(results, len(batch))
	return nil
}

// record counts the first n items of a flushed batch. An item without an
// entry in results succeeded.
func (b *batcher[T]) record(results []error, n int) {
	if n == 0 {
		return
	}
	for i := 0; i < n; i++ {
		if i < len(results) && results[i] != nil {
			b.tracker.IncrementErrored(results[i].Error())
			continue
		}
		b.tracker.IncrementSucceeded()
	}
	b.tracker.Publish()
}
