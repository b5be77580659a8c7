package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sellerfunnel/api/internal/model"
)

// DefaultRetention is how long a terminal job stays queryable.
const DefaultRetention = 24 * time.Hour

const defaultMaxConcurrent = 4

// RunFunc executes one job. It owns the tracker and must leave it terminal;
// the registry fails any job whose RunFunc returns early or panics.
type RunFunc func(ctx context.Context, t *Tracker)

// Observer receives a snapshot every time a job publishes progress.
type Observer interface {
	OnUpdate(s model.JobSnapshot)
}

// Options configures a Registry.
type Options struct {
	// MaxConcurrent bounds the number of jobs running at once. Submissions
	// beyond it are rejected with ErrDispatcherFull.
	MaxConcurrent int
	// Retention defaults to DefaultRetention.
	Retention time.Duration
	Observer  Observer
	Now       func() time.Time
}

type entry struct {
	tracker *Tracker
	cancel  context.CancelFunc
}

// Registry owns every in-flight and recently finished job of the process.
type Registry struct {
	mu     sync.RWMutex
	jobs   map[string]*entry
	closed bool

	slots     chan struct{}
	retention time.Duration
	observer  Observer
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRegistry creates an empty registry ready to accept jobs.
func NewRegistry(opts Options) *Registry {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		jobs:      make(map[string]*entry),
		slots:     make(chan struct{}, opts.MaxConcurrent),
		retention: opts.Retention,
		observer:  opts.Observer,
		now:       opts.Now,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Submit registers a new preparing job and starts run in the background.
//
// It never blocks on the job itself. When no slot is free or the registry is
// shut down it returns an error and nothing is registered.
func (r *Registry) Submit(kind model.JobKind, run RunFunc) (model.JobSnapshot, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return model.JobSnapshot{}, ErrRegistryClosed
	}
	select {
	case r.slots <- struct{}{}:
	default:
		r.mu.Unlock()
		return model.JobSnapshot{}, ErrDispatcherFull
	}

	id := uuid.NewString()
	t := newTracker(id, kind, r.now, r.publish)
	ctx, cancel := context.WithCancel(r.ctx)
	r.jobs[id] = &entry{tracker: t, cancel: cancel}
	snapshot := t.Snapshot()
	r.wg.Add(1)
	r.mu.Unlock()

	log.Info().
		Str("component", "jobs").
		Str("job_id", id).
		Str("kind", string(kind)).
		Msg("Job submitted")

	go r.execute(ctx, cancel, t, run)
	return snapshot, nil
}

func (r *Registry) execute(ctx context.Context, cancel context.CancelFunc, t *Tracker, run RunFunc) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Str("component", "jobs").
				Str("job_id", t.ID()).
				Interface("panic", rec).
				Msg("Job panicked")
			t.Fail(fmt.Sprintf("job panicked: %v", rec))
		}
		if !t.Terminal() {
			t.Fail("job stopped without a result")
		}
		cancel()
		<-r.slots
		r.wg.Done()
	}()

	run(ctx, t)
}

func (r *Registry) publish(s model.JobSnapshot) {
	if r.observer != nil {
		r.observer.OnUpdate(s)
	}
}

// Lookup returns the current snapshot of a job.
func (r *Registry) Lookup(id string) (model.JobSnapshot, error) {
	r.mu.RLock()
	e, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return model.JobSnapshot{}, ErrJobNotFound
	}
	return e.tracker.Snapshot(), nil
}

// List returns snapshots of all registered jobs, oldest first.
func (r *Registry) List() []model.JobSnapshot {
	r.mu.RLock()
	out := make([]model.JobSnapshot, 0, len(r.jobs))
	for _, e := range r.jobs {
		out = append(out, e.tracker.Snapshot())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].JobID < out[j].JobID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Cancel asks a running job to stop. The job fails at its next checkpoint.
func (r *Registry) Cancel(id string) (model.JobSnapshot, error) {
	r.mu.RLock()
	e, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return model.JobSnapshot{}, ErrJobNotFound
	}
	if e.tracker.Terminal() {
		return e.tracker.Snapshot(), ErrJobFinished
	}
	e.cancel()
	return e.tracker.Snapshot(), nil
}

// Sweep removes terminal jobs that ended more than the retention period
// before now and returns how many were removed. Running jobs are never touched.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.retention)

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, e := range r.jobs {
		ended, terminal := e.tracker.EndedAt()
		if terminal && ended.Before(cutoff) {
			delete(r.jobs, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of registered jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Shutdown stops accepting jobs, cancels the running ones and waits for them
// until ctx expires.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Str("component", "jobs").Msg("Job registry stopped")
		return nil
	case <-ctx.Done():
		log.Warn().Str("component", "jobs").Msg("Job registry shutdown timed out")
		return ctx.Err()
	}
}
