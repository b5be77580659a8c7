package jobs

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerfunnel/api/internal/model"
)

var testEpoch = time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testEpoch }

func processingTracker(total int) *Tracker {
	t := newTracker("job-1", model.JobKindImport, fixedNow, nil)
	t.SetTotal(total)
	t.MarkProcessing()
	return t
}

func TestTracker_StartsPreparing(t *testing.T) {
	tr := newTracker("job-1", model.JobKindEmail, fixedNow, nil)

	s := tr.Snapshot()
	assert.Equal(t, "job-1", s.JobID)
	assert.Equal(t, model.JobKindEmail, s.Kind)
	assert.Equal(t, model.JobStatusPreparing, s.Status)
	assert.Equal(t, testEpoch, s.StartedAt)
	assert.Nil(t, s.EndedAt)
	assert.Zero(t, s.Progress)
	assert.Empty(t, s.RecentErrors)
}

func TestTracker_CountersIgnoredOutsideProcessing(t *testing.T) {
	tr := newTracker("job-1", model.JobKindImport, fixedNow, nil)
	tr.SetTotal(3)

	assert.False(t, tr.IncrementSucceeded())
	assert.Zero(t, tr.Snapshot().Processed)

	tr.MarkProcessing()
	assert.True(t, tr.IncrementSucceeded())
	tr.SetTotal(100)
	assert.Equal(t, 3, tr.Snapshot().Total, "total is fixed once processing starts")
}

func TestTracker_ProcessedNeverExceedsTotal(t *testing.T) {
	tr := processingTracker(2)

	assert.True(t, tr.IncrementSucceeded())
	assert.True(t, tr.IncrementSkipped())
	assert.False(t, tr.IncrementErrored("too many"))

	s := tr.Snapshot()
	assert.Equal(t, 2, s.Processed)
	assert.Equal(t, 0, s.Errored)
	assert.Equal(t, 100.0, s.Progress)
}

func TestTracker_RecentErrorsStopAppendingAtCap(t *testing.T) {
	tr := processingTracker(25)

	for i := 0; i < 25; i++ {
		tr.IncrementErrored(fmt.Sprintf("Row %d: bad", i+2))
	}

	s := tr.Snapshot()
	assert.Equal(t, 25, s.Errored)
	require.Len(t, s.RecentErrors, MaxRecentErrors)
	assert.Equal(t, "Row 2: bad", s.RecentErrors[0])
	assert.Equal(t, "Row 11: bad", s.RecentErrors[MaxRecentErrors-1])
}

func TestTracker_SnapshotIsACopy(t *testing.T) {
	tr := processingTracker(2)
	tr.IncrementErrored("first")

	s := tr.Snapshot()
	s.RecentErrors[0] = "mutated"

	assert.Equal(t, "first", tr.Snapshot().RecentErrors[0])
}

func TestTracker_TerminalStability(t *testing.T) {
	tr := processingTracker(4)
	tr.IncrementSucceeded()
	tr.Complete()

	before := tr.Snapshot()
	require.Equal(t, model.JobStatusCompleted, before.Status)
	require.NotNil(t, before.EndedAt)

	assert.False(t, tr.IncrementSucceeded())
	assert.False(t, tr.IncrementErrored("late"))
	assert.False(t, tr.IncrementSkipped())
	tr.Fail("late failure")
	tr.Complete()
	tr.SetTotal(10)

	assert.Equal(t, before, tr.Snapshot())
}

func TestTracker_FailKeepsCounts(t *testing.T) {
	tr := processingTracker(5)
	tr.IncrementSucceeded()
	tr.IncrementSkipped()

	tr.Fail("store unavailable")

	s := tr.Snapshot()
	assert.Equal(t, model.JobStatusFailed, s.Status)
	assert.Equal(t, "store unavailable", s.ErrorMessage)
	assert.Equal(t, 2, s.Processed)
	assert.Equal(t, 1, s.Succeeded)
	assert.Equal(t, 1, s.Skipped)
}

func TestTracker_FailDefaultsMessage(t *testing.T) {
	tr := processingTracker(1)
	tr.Fail("")
	assert.Equal(t, "job failed", tr.Snapshot().ErrorMessage)
}

func TestTracker_PublishesTransitions(t *testing.T) {
	var got []model.JobStatus
	tr := newTracker("job-1", model.JobKindSMS, fixedNow, func(s model.JobSnapshot) {
		got = append(got, s.Status)
	})
	tr.SetTotal(1)
	tr.MarkProcessing()
	tr.IncrementSucceeded()
	tr.Complete()
	tr.Complete()

	assert.Equal(t, []model.JobStatus{model.JobStatusProcessing, model.JobStatusCompleted}, got)
}

func TestTracker_ConcurrentReadersSeeConsistentCounts(t *testing.T) {
	const total = 5000
	tr := processingTracker(total)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	violations := make(chan model.JobSnapshot, 1)
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				s := tr.Snapshot()
				if s.Processed != s.Succeeded+s.Errored+s.Skipped || s.Processed > s.Total {
					select {
					case violations <- s:
					default:
					}
					return
				}
			}
		}()
	}

	for i := 0; i < total; i++ {
		switch i % 3 {
		case 0:
			tr.IncrementSucceeded()
		case 1:
			tr.IncrementErrored("bad row")
		default:
			tr.IncrementSkipped()
		}
	}
	tr.Complete()
	close(stop)
	wg.Wait()

	select {
	case s := <-violations:
		t.Fatalf("inconsistent snapshot observed: %+v", s)
	default:
	}
	assert.Equal(t, total, tr.Snapshot().Processed)
}
