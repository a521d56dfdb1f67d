package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxElapsedTime  = 10 * time.Second
)

// RetryingCorrectionInserter wraps a CorrectionInserter and retries insert
// failures with exponential backoff and jitter. Use for transient River/DB
// errors; a correction dropped at enqueue time is otherwise lost for good.
type RetryingCorrectionInserter struct {
	inner           CorrectionInserter
	initialInterval time.Duration
	maxElapsedTime  time.Duration
}

// RetryingCorrectionInserterConfig bounds the retry loop.
type RetryingCorrectionInserterConfig struct {
	InitialInterval time.Duration // Backoff after first failure (default 500ms).
	MaxElapsedTime  time.Duration // Total retry budget (default 10s).
}

// NewRetryingCorrectionInserter returns an inserter that retries the inner
// insert with exponential backoff, respecting context cancellation.
func NewRetryingCorrectionInserter(inner CorrectionInserter, cfg RetryingCorrectionInserterConfig) *RetryingCorrectionInserter {
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = defaultInitialInterval
	}
	if cfg.MaxElapsedTime <= 0 {
		cfg.MaxElapsedTime = defaultMaxElapsedTime
	}

	return &RetryingCorrectionInserter{
		inner:           inner,
		initialInterval: cfg.InitialInterval,
		maxElapsedTime:  cfg.MaxElapsedTime,
	}
}

// InsertCorrectionJob calls the inner inserter, retrying on error until the
// retry budget or the context runs out.
func (r *RetryingCorrectionInserter) InsertCorrectionJob(ctx context.Context, args CorrectionArgs) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.initialInterval
	policy.MaxElapsedTime = r.maxElapsedTime

	attempt := 0
	operation := func() error {
		attempt++

		err := r.inner.InsertCorrectionJob(ctx, args)
		if err != nil {
			slog.Warn("correction enqueue failed, will retry",
				"recording_id", args.RecordingID,
				"attempt", attempt,
				"error", err,
			)
		}

		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return fmt.Errorf("insert correction job after %d attempts: %w", attempt, err)
	}

	return nil
}
