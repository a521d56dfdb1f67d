package jobs

import (
	"context"
)

// CorrectionInserter enqueues correction jobs. Services depend on this
// interface so they never see River directly.
type CorrectionInserter interface {
	// InsertCorrectionJob enqueues a knowledge-correction job.
	InsertCorrectionJob(ctx context.Context, args CorrectionArgs) error
}
