package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerfunnel/api/internal/model"
)

// countingSleeper records requested pauses without waiting.
type countingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *countingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *countingSleeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delays)
}

// recordingSink keeps the size of every flushed batch.
type recordingSink[T any] struct {
	sizes  []int
	items  []T
	result func(batch []T) ([]error, error)
}

func (s *recordingSink[T]) Flush(_ context.Context, batch []T) ([]error, error) {
	s.sizes = append(s.sizes, len(batch))
	s.items = append(s.items, batch...)
	if s.result != nil {
		return s.result(batch)
	}
	return nil, nil
}

func sliceSource[R any](records []R) Source[R] {
	return SourceFunc[R](func(context.Context) ([]R, error) { return records, nil })
}

func acceptAll[R any]() Classifier[R, R] {
	return ClassifierFunc[R, R](func(_ context.Context, _ int, r R) (Outcome[R], error) {
		return Accepted(r), nil
	})
}

func numbers(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func assertCountersConsistent(t *testing.T, s model.JobSnapshot) {
	t.Helper()
	assert.Equal(t, s.Processed, s.Succeeded+s.Errored+s.Skipped)
	assert.LessOrEqual(t, s.Processed, s.Total)
}

func TestRun_BatchesAndDelays(t *testing.T) {
	tests := []struct {
		name    string
		records int
		sizes   []int
		delays  int
	}{
		{name: "120 recipients", records: 120, sizes: []int{50, 50, 20}, delays: 2},
		{name: "exact multiple", records: 100, sizes: []int{50, 50}, delays: 1},
		{name: "single partial batch", records: 7, sizes: []int{7}, delays: 0},
		{name: "no records", records: 0, sizes: nil, delays: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTracker("job", model.JobKindEmail, fixedNow, nil)
			sink := &recordingSink[int]{}
			sleeper := &countingSleeper{}

			err := Run(context.Background(), tr, Spec[int, int]{
				Source:     sliceSource(numbers(tt.records)),
				Classifier: acceptAll[int](),
				Sink:       sink,
				Policy:     CampaignPolicy(),
				Sleeper:    sleeper,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.sizes, sink.sizes)
			assert.Equal(t, tt.delays, sleeper.count())
			for _, d := range sleeper.delays {
				assert.Equal(t, time.Second, d)
			}

			s := tr.Snapshot()
			assert.Equal(t, model.JobStatusCompleted, s.Status)
			assert.Equal(t, tt.records, s.Total)
			assert.Equal(t, tt.records, s.Succeeded)
			assertCountersConsistent(t, s)
		})
	}
}

func TestRun_NoDelayAfterLastFlushEvenWithTrailingSkips(t *testing.T) {
	tr := newTracker("job", model.JobKindEmail, fixedNow, nil)
	sink := &recordingSink[int]{}
	sleeper := &countingSleeper{}

	err := Run(context.Background(), tr, Spec[int, int]{
		Source: sliceSource(numbers(60)),
		Classifier: ClassifierFunc[int, int](func(_ context.Context, i int, r int) (Outcome[int], error) {
			if i >= 50 {
				return Skipped[int]("not opted in"), nil
			}
			return Accepted(r), nil
		}),
		Sink:    sink,
		Policy:  CampaignPolicy(),
		Sleeper: sleeper,
	})
	require.NoError(t, err)

	assert.Equal(t, []int{50}, sink.sizes)
	assert.Zero(t, sleeper.count())
	s := tr.Snapshot()
	assert.Equal(t, 50, s.Succeeded)
	assert.Equal(t, 10, s.Skipped)
}

func TestRun_EveryOutcomeCountedOnce(t *testing.T) {
	tr := newTracker("job", model.JobKindImport, fixedNow, nil)
	sink := &recordingSink[int]{}

	err := Run(context.Background(), tr, Spec[int, int]{
		Source: sliceSource(numbers(30)),
		Classifier: ClassifierFunc[int, int](func(_ context.Context, i int, r int) (Outcome[int], error) {
			switch i % 3 {
			case 1:
				return Skipped[int]("duplicate"), nil
			case 2:
				return Rejected[int](fmt.Sprintf("Row %d: email is required", i+2)), nil
			}
			return Accepted(r), nil
		}),
		Sink:    sink,
		Policy:  Policy{BatchSize: 4},
		Sleeper: &countingSleeper{},
	})
	require.NoError(t, err)

	s := tr.Snapshot()
	assert.Equal(t, 30, s.Processed)
	assert.Equal(t, 10, s.Succeeded)
	assert.Equal(t, 10, s.Skipped)
	assert.Equal(t, 10, s.Errored)
	assert.Len(t, s.RecentErrors, MaxRecentErrors)
	assert.Equal(t, []int{4, 4, 2}, sink.sizes)
	assert.Equal(t, 100.0, s.Progress)
}

func TestRun_PerItemFlushErrors(t *testing.T) {
	tr := newTracker("job", model.JobKindSMS, fixedNow, nil)
	sink := &recordingSink[int]{result: func(batch []int) ([]error, error) {
		results := make([]error, len(batch))
		for i, n := range batch {
			if n%5 == 0 {
				results[i] = fmt.Errorf("failed to send to %d: gateway rejected", n)
			}
		}
		return results, nil
	}}

	err := Run(context.Background(), tr, Spec[int, int]{
		Source:     sliceSource(numbers(20)),
		Classifier: acceptAll[int](),
		Sink:       sink,
		Policy:     CampaignPolicy(),
		Sleeper:    &countingSleeper{},
	})
	require.NoError(t, err)

	s := tr.Snapshot()
	assert.Equal(t, model.JobStatusCompleted, s.Status)
	assert.Equal(t, 16, s.Succeeded)
	assert.Equal(t, 4, s.Errored)
	assert.Equal(t, "failed to send to 0: gateway rejected", s.RecentErrors[0])
}

func TestRun_SourceErrorFailsBeforeProcessing(t *testing.T) {
	tr := newTracker("job", model.JobKindImport, fixedNow, nil)

	err := Run(context.Background(), tr, Spec[int, int]{
		Source: SourceFunc[int](func(context.Context) ([]int, error) {
			return nil, errors.New("file has no header row")
		}),
		Classifier: acceptAll[int](),
		Sink:       &recordingSink[int]{},
		Policy:     ImportPolicy(),
	})
	require.Error(t, err)

	s := tr.Snapshot()
	assert.Equal(t, model.JobStatusFailed, s.Status)
	assert.Zero(t, s.Processed)
	assert.Zero(t, s.Total)
	assert.Contains(t, s.ErrorMessage, "file has no header row")
	assert.NotNil(t, s.EndedAt)
}

func TestRun_FatalFlushKeepsRecordedCounts(t *testing.T) {
	tr := newTracker("job", model.JobKindImport, fixedNow, nil)
	calls := 0
	sink := SinkFunc[int](func(_ context.Context, batch []int) ([]error, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("connection refused")
		}
		return nil, nil
	})

	err := Run(context.Background(), tr, Spec[int, int]{
		Source:     sliceSource(numbers(25)),
		Classifier: acceptAll[int](),
		Sink:       sink,
		Policy:     Policy{BatchSize: 10},
		Sleeper:    &countingSleeper{},
	})
	require.Error(t, err)

	s := tr.Snapshot()
	assert.Equal(t, model.JobStatusFailed, s.Status)
	assert.Contains(t, s.ErrorMessage, "connection refused")
	assert.Equal(t, 10, s.Succeeded)
	assert.Equal(t, 10, s.Processed)
	assertCountersConsistent(t, s)
}

func TestRun_FatalFlushCountsItemsAlreadyHandled(t *testing.T) {
	tr := newTracker("job", model.JobKindEmail, fixedNow, nil)
	sink := SinkFunc[int](func(_ context.Context, batch []int) ([]error, error) {
		return []error{nil, errors.New("mailbox full"), nil}, errors.New("record contact: database is closed")
	})

	err := Run(context.Background(), tr, Spec[int, int]{
		Source:     sliceSource(numbers(8)),
		Classifier: acceptAll[int](),
		Sink:       sink,
		Policy:     Policy{BatchSize: 10},
	})
	require.Error(t, err)

	s := tr.Snapshot()
	assert.Equal(t, model.JobStatusFailed, s.Status)
	assert.Equal(t, 8, s.Total)
	assert.Equal(t, 2, s.Succeeded)
	assert.Equal(t, 1, s.Errored)
	assert.Equal(t, []string{"mailbox full"}, s.RecentErrors)
	assertCountersConsistent(t, s)
}

func TestRun_ClassifierErrorIsFatal(t *testing.T) {
	tr := newTracker("job", model.JobKindImport, fixedNow, nil)

	err := Run(context.Background(), tr, Spec[int, int]{
		Source: sliceSource(numbers(5)),
		Classifier: ClassifierFunc[int, int](func(_ context.Context, i int, r int) (Outcome[int], error) {
			if i == 3 {
				return Outcome[int]{}, errors.New("lookup client: database is closed")
			}
			return Skipped[int]("duplicate"), nil
		}),
		Sink:   &recordingSink[int]{},
		Policy: ImportPolicy(),
	})
	require.Error(t, err)

	s := tr.Snapshot()
	assert.Equal(t, model.JobStatusFailed, s.Status)
	assert.Equal(t, 3, s.Skipped)
	assert.Equal(t, "lookup client: database is closed", s.ErrorMessage)
}

func TestRun_CancelledBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr := newTracker("job", model.JobKindEmail, fixedNow, nil)
	sink := &recordingSink[int]{}
	sleeper := SleeperFunc(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	})

	err := Run(ctx, tr, Spec[int, int]{
		Source:     sliceSource(numbers(120)),
		Classifier: acceptAll[int](),
		Sink:       sink,
		Policy:     CampaignPolicy(),
		Sleeper:    sleeper,
	})
	require.ErrorIs(t, err, ErrJobCancelled)

	s := tr.Snapshot()
	assert.Equal(t, model.JobStatusFailed, s.Status)
	assert.Equal(t, "job cancelled", s.ErrorMessage)
	assert.Equal(t, []int{50}, sink.sizes)
	assert.Equal(t, 50, s.Succeeded)
	assertCountersConsistent(t, s)
}

func TestRun_PublishesAfterEachFlush(t *testing.T) {
	var mu sync.Mutex
	var seen []model.JobSnapshot
	tr := newTracker("job", model.JobKindEmail, fixedNow, func(s model.JobSnapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	err := Run(context.Background(), tr, Spec[int, int]{
		Source:     sliceSource(numbers(120)),
		Classifier: acceptAll[int](),
		Sink:       &recordingSink[int]{},
		Policy:     CampaignPolicy(),
		Sleeper:    &countingSleeper{},
	})
	require.NoError(t, err)

	// processing, three flushes, completed
	require.Len(t, seen, 5)
	assert.Equal(t, model.JobStatusProcessing, seen[0].Status)
	assert.Equal(t, 50, seen[1].Processed)
	assert.Equal(t, 100, seen[2].Processed)
	assert.Equal(t, 120, seen[3].Processed)
	assert.Equal(t, model.JobStatusCompleted, seen[4].Status)
}
