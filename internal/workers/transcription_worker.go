package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/meetscribe/insights/internal/insighterrors"
	"github.com/meetscribe/insights/internal/jobs"
	"github.com/meetscribe/insights/internal/models"
	"github.com/meetscribe/insights/internal/observability"
)

const transcriptionTimeoutSlack = 30 * time.Second

// Transcriber runs the transcription pipeline for one recording.
type Transcriber interface {
	Transcribe(ctx context.Context, recordingID uuid.UUID) (*models.InsightRecord, error)
}

// TranscriptionWorker runs one transcription pipeline pass per job.
type TranscriptionWorker struct {
	river.WorkerDefaults[jobs.TranscriptionArgs]

	transcriber Transcriber
	asrTimeout  time.Duration
}

// NewTranscriptionWorker creates the worker. asrTimeout should match the
// provider timeout; the job timeout adds slack for store writes.
func NewTranscriptionWorker(transcriber Transcriber, asrTimeout time.Duration) *TranscriptionWorker {
	return &TranscriptionWorker{transcriber: transcriber, asrTimeout: asrTimeout}
}

// Timeout limits one transcription job to the provider timeout plus slack.
func (w *TranscriptionWorker) Timeout(*river.Job[jobs.TranscriptionArgs]) time.Duration {
	return w.asrTimeout + transcriptionTimeoutSlack
}

// Work runs the pipeline for the job's recording.
func (w *TranscriptionWorker) Work(ctx context.Context, job *river.Job[jobs.TranscriptionArgs]) error {
	ctx = context.WithValue(ctx, observability.JobIDKey, job.ID)

	_, err := w.transcriber.Transcribe(ctx, job.Args.RecordingID)
	if err == nil {
		return nil
	}

	// A vanished recording will not reappear; retrying burns attempts for nothing.
	var notFound *insighterrors.NotFoundError
	if errors.As(err, &notFound) {
		slog.Warn("transcription: recording not found, cancelling job",
			"recording_id", job.Args.RecordingID,
			"error", err,
		)

		return river.JobCancel(err)
	}

	if job.Attempt >= job.MaxAttempts {
		slog.Error("transcription: giving up (final attempt)",
			"recording_id", job.Args.RecordingID,
			"attempt", job.Attempt,
			"error", err,
		)
	}

	return fmt.Errorf("transcription: %w", err)
}
