// Package workers provides River job workers for the pipeline's background work.
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/meetscribe/insights/internal/correction"
	"github.com/meetscribe/insights/internal/jobs"
	"github.com/meetscribe/insights/internal/observability"
)

const correctionTimeout = 2 * time.Minute

// CorrectionWorker runs one knowledge-correction pass per job. Corrections
// are best-effort end to end: transient failures retry within the job's
// attempt budget and the final failure is logged, never propagated anywhere
// a transcription caller could see it.
type CorrectionWorker struct {
	river.WorkerDefaults[jobs.CorrectionArgs]

	corrector *correction.Corrector
}

// NewCorrectionWorker creates the worker around a corrector.
func NewCorrectionWorker(corrector *correction.Corrector) *CorrectionWorker {
	return &CorrectionWorker{corrector: corrector}
}

// Timeout limits how long a single correction job can run.
func (w *CorrectionWorker) Timeout(*river.Job[jobs.CorrectionArgs]) time.Duration {
	return correctionTimeout
}

// Work runs the correction pass.
func (w *CorrectionWorker) Work(ctx context.Context, job *river.Job[jobs.CorrectionArgs]) error {
	ctx = context.WithValue(ctx, observability.JobIDKey, job.ID)
	args := job.Args

	err := w.corrector.Correct(ctx, args.TranscriptText, args.RecordingID, args.ProjectID, args.OrganizationID)
	if err == nil {
		return nil
	}

	if job.Attempt >= job.MaxAttempts {
		slog.Error("correction: giving up (final attempt)",
			"recording_id", args.RecordingID,
			"attempt", job.Attempt,
			"error", err,
		)

		return nil
	}

	return fmt.Errorf("knowledge correction: %w", err)
}
