package jobs

import (
	"context"
	"errors"
	"time"
)

var (
	ErrJobNotFound    = errors.New("job not found")
	ErrDispatcherFull = errors.New("no free job slot")
	ErrRegistryClosed = errors.New("job registry is shut down")
	ErrJobCancelled   = errors.New("job cancelled")
	ErrJobFinished    = errors.New("job already finished")
)

// Verdict is the classification of a single input record.
type Verdict int

const (
	// Accept queues the record into the current batch.
	Accept Verdict = iota
	// Skip excludes a well-formed record by policy.
	Skip
	// Reject counts a malformed record as errored.
	Reject
)

func (v Verdict) String() string {
	switch v {
	case Accept:
		return "accept"
	case Skip:
		return "skip"
	case Reject:
		return "reject"
	}
	return "unknown"
}

// Outcome is what a Classifier decides for one record.
type Outcome[T any] struct {
	Verdict Verdict
	Item    T
	Reason  string
}

// Accepted returns an Accept outcome carrying the item to batch.
func Accepted[T any](item T) Outcome[T] {
	return Outcome[T]{Verdict: Accept, Item: item}
}

// Skipped returns a Skip outcome.
func Skipped[T any](reason string) Outcome[T] {
	return Outcome[T]{Verdict: Skip, Reason: reason}
}

// Rejected returns a Reject outcome; reason feeds the recent error sample.
func Rejected[T any](reason string) Outcome[T] {
	return Outcome[T]{Verdict: Reject, Reason: reason}
}

// Source materializes every input record of a job before processing starts.
type Source[R any] interface {
	Enumerate(ctx context.Context) ([]R, error)
}

// Classifier decides the outcome of one record. A non-nil error is not a
// record-level result: it aborts the whole job.
type Classifier[R, T any] interface {
	Classify(ctx context.Context, index int, record R) (Outcome[T], error)
}

// Sink flushes one batch of accepted items downstream.
//
// The returned slice, when non-nil, holds one entry per item in batch order; a
// non-nil entry marks that item as errored. A non-nil error means the
// downstream system itself is unusable and aborts the job. Alongside such an
// error the slice covers only the items already handled, which are counted
// before the job fails.
type Sink[T any] interface {
	Flush(ctx context.Context, batch []T) ([]error, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[R any] func(ctx context.Context) ([]R, error)

func (f SourceFunc[R]) Enumerate(ctx context.Context) ([]R, error) { return f(ctx) }

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc[R, T any] func(ctx context.Context, index int, record R) (Outcome[T], error)

func (f ClassifierFunc[R, T]) Classify(ctx context.Context, index int, record R) (Outcome[T], error) {
	return f(ctx, index, record)
}

// SinkFunc adapts a function to Sink.
type SinkFunc[T any] func(ctx context.Context, batch []T) ([]error, error)

func (f SinkFunc[T]) Flush(ctx context.Context, batch []T) ([]error, error) { return f(ctx, batch) }

// Policy sets the batch size and the pause taken between batches.
type Policy struct {
	BatchSize int
	Delay     time.Duration
}

const (
	DefaultImportBatchSize   = 500
	DefaultCampaignBatchSize = 50
	DefaultBatchDelay        = time.Second
)

// ImportPolicy returns the batching policy used for bulk imports.
func ImportPolicy() Policy {
	return Policy{BatchSize: DefaultImportBatchSize, Delay: DefaultBatchDelay}
}

// CampaignPolicy returns the batching policy used for message sends.
func CampaignPolicy() Policy {
	return Policy{BatchSize: DefaultCampaignBatchSize, Delay: DefaultBatchDelay}
}

// Spec wires the pieces of one job together.
type Spec[R, T any] struct {
	Source     Source[R]
	Classifier Classifier[R, T]
	Sink       Sink[T]
	Policy     Policy
	// Sleeper paces batches; nil uses a real timer.
	Sleeper Sleeper
}

// Sleeper waits between batches.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error { return f(ctx, d) }

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
