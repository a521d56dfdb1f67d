package jobs

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// RiverCorrectionInserter implements CorrectionInserter using the River client.
type RiverCorrectionInserter struct {
	client      *river.Client[pgx.Tx]
	maxAttempts int
}

// NewRiverCorrectionInserter creates a River-based correction inserter.
func NewRiverCorrectionInserter(client *river.Client[pgx.Tx], maxAttempts int) *RiverCorrectionInserter {
	return &RiverCorrectionInserter{client: client, maxAttempts: maxAttempts}
}

// InsertCorrectionJob enqueues a correction job with uniqueness constraints:
// at most one live job per recording, across every non-final state.
func (r *RiverCorrectionInserter) InsertCorrectionJob(ctx context.Context, args CorrectionArgs) error {
	_, err := r.client.Insert(ctx, args, &river.InsertOpts{
		Queue:       CorrectionsQueueName,
		MaxAttempts: r.maxAttempts,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			// Note: JobStatePending is required by River when using ByState.
			ByState: []rivertype.JobState{
				rivertype.JobStatePending,
				rivertype.JobStateAvailable,
				rivertype.JobStateRunning,
				rivertype.JobStateRetryable,
				rivertype.JobStateScheduled,
			},
		},
	})

	return err
}
