package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Run drives one job to a terminal state.
//
// The source is fully enumerated before processing starts, so the total is
// known up front. Each record is classified in order and lands in exactly one
// counter: skipped and rejected records immediately, accepted records when
// their batch is flushed. Any error returned by the source, the classifier or
// the sink fails the job; counts recorded until then are kept.
//
// Run returns the error that failed the job, or nil once it completed.
func Run[R, T any](ctx context.Context, t *Tracker, spec Spec[R, T]) error {
	logger := log.With().
		Str("component", "jobs").
		Str("job_id", t.ID()).
		Str("kind", string(t.Kind())).
		Logger()

	records, err := spec.Source.Enumerate(ctx)
	if err != nil {
		return fail(ctx, t, logger, fmt.Errorf("read input: %w", err))
	}

	t.SetTotal(len(records))
	t.MarkProcessing()
	logger.Info().
		Int("total", len(records)).
		Int("batch_size", spec.Policy.BatchSize).
		Msg("Job processing")

	b := newBatcher(t, spec.Sink, spec.Policy, spec.Sleeper)
	for i, record := range records {
		if err := ctx.Err(); err != nil {
			return fail(ctx, t, logger, err)
		}

		outcome, err := spec.Classifier.Classify(ctx, i, record)
		if err != nil {
			return fail(ctx, t, logger, err)
		}

		switch outcome.Verdict {
		case Accept:
			if err := b.add(ctx, outcome.Item); err != nil {
				return fail(ctx, t, logger, err)
			}
		case Skip:
			t.IncrementSkipped()
			logger.Debug().Int("index", i).Str("reason", outcome.Reason).Msg("Record skipped")
		default:
			t.IncrementErrored(outcome.Reason)
		}
	}

	if err := b.flush(ctx); err != nil {
		return fail(ctx, t, logger, err)
	}

	t.Complete()
	s := t.Snapshot()
	logger.Info().
		Int("succeeded", s.Succeeded).
		Int("errored", s.Errored).
		Int("skipped", s.Skipped).
		Msg("Job completed")
	return nil
}

func fail(ctx context.Context, t *Tracker, logger zerolog.Logger, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		err = ErrJobCancelled
	}
	t.Fail(err.Error())
	logger.Error().Err(err).Msg("Job failed")
	return err
}
