package jobs

import (
	"sync"
	"time"

	"github.com/sellerfunnel/api/internal/model"
)

// MaxRecentErrors caps the diagnostic error sample kept per job.
const MaxRecentErrors = 10

// Tracker is the live progress record of one job.
//
// A Tracker has exactly one writer, the runner that owns the job, and any
// number of concurrent readers calling Snapshot. Every mutator updates its
// counters under one lock, so a snapshot always satisfies
// processed == succeeded + errored + skipped. Once the job is terminal all
// mutators are no-ops.
type Tracker struct {
	mu sync.RWMutex

	id   string
	kind model.JobKind

	status       model.JobStatus
	total        int
	processed    int
	succeeded    int
	errored      int
	skipped      int
	recentErrors []string
	errorMessage string
	startedAt    time.Time
	endedAt      time.Time

	now      func() time.Time
	onUpdate func(model.JobSnapshot)
}

// NewTracker creates a standalone preparing tracker, for jobs run outside a
// Registry. onUpdate may be nil.
func NewTracker(id string, kind model.JobKind, onUpdate func(model.JobSnapshot)) *Tracker {
	return newTracker(id, kind, time.Now, onUpdate)
}

func newTracker(id string, kind model.JobKind, now func() time.Time, onUpdate func(model.JobSnapshot)) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		id:        id,
		kind:      kind,
		status:    model.JobStatusPreparing,
		startedAt: now(),
		now:       now,
		onUpdate:  onUpdate,
	}
}

// ID returns the job identifier.
func (t *Tracker) ID() string { return t.id }

// Kind returns the job kind.
func (t *Tracker) Kind() model.JobKind { return t.kind }

// SetTotal fixes the number of input records. It only applies while the job
// is still preparing.
func (t *Tracker) SetTotal(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != model.JobStatusPreparing || total < 0 {
		return
	}
	t.total = total
}

// MarkProcessing moves a preparing job to processing.
func (t *Tracker) MarkProcessing() {
	t.mu.Lock()
	changed := t.status == model.JobStatusPreparing
	if changed {
		t.status = model.JobStatusProcessing
	}
	t.mu.Unlock()
	if changed {
		t.Publish()
	}
}

// IncrementSucceeded records one successfully handled record.
func (t *Tracker) IncrementSucceeded() bool {
	return t.record(func() { t.succeeded++ })
}

// IncrementErrored records one failed record and samples its reason.
func (t *Tracker) IncrementErrored(reason string) bool {
	return t.record(func() {
		t.errored++
		// The sample keeps the first errors seen and stops growing at the cap.
		if len(t.recentErrors) < MaxRecentErrors {
			t.recentErrors = append(t.recentErrors, reason)
		}
	})
}

// IncrementSkipped records one record excluded by policy.
func (t *Tracker) IncrementSkipped() bool {
	return t.record(func() { t.skipped++ })
}

func (t *Tracker) record(apply func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != model.JobStatusProcessing || t.processed >= t.total {
		return false
	}
	apply()
	t.processed++
	return true
}

// Complete marks the job completed. It is a no-op on a terminal job.
func (t *Tracker) Complete() {
	t.finish(model.JobStatusCompleted, "")
}

// Fail marks the job failed with msg. It is a no-op on a terminal job.
func (t *Tracker) Fail(msg string) {
	if msg == "" {
		msg = "job failed"
	}
	t.finish(model.JobStatusFailed, msg)
}

func (t *Tracker) finish(status model.JobStatus, msg string) {
	t.mu.Lock()
	if t.status.Terminal() {
		t.mu.Unlock()
		return
	}
	t.status = status
	t.errorMessage = msg
	t.endedAt = t.now()
	t.mu.Unlock()
	t.Publish()
}

// Terminal reports whether the job has completed or failed.
func (t *Tracker) Terminal() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status.Terminal()
}

// EndedAt returns the terminal timestamp, false while the job is running.
func (t *Tracker) EndedAt() (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.endedAt, t.status.Terminal()
}

// Snapshot returns a consistent copy of the current progress.
func (t *Tracker) Snapshot() model.JobSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := model.JobSnapshot{
		JobID:        t.id,
		Kind:         t.kind,
		Status:       t.status,
		Total:        t.total,
		Processed:    t.processed,
		Succeeded:    t.succeeded,
		Errored:      t.errored,
		Skipped:      t.skipped,
		RecentErrors: append([]string{}, t.recentErrors...),
		ErrorMessage: t.errorMessage,
		StartedAt:    t.startedAt,
	}
	if t.total > 0 {
		s.Progress = float64(t.processed) / float64(t.total) * 100
	}
	if t.status.Terminal() {
		ended := t.endedAt
		s.EndedAt = &ended
	}
	return s
}

// Publish pushes the current snapshot to the update hook, if any.
func (t *Tracker) Publish() {
	if t.onUpdate == nil {
		return
	}
	t.onUpdate(t.Snapshot())
}
