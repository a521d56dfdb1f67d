package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/insights/internal/correction"
	"github.com/meetscribe/insights/internal/jobs"
	"github.com/meetscribe/insights/internal/models"
)

// failingKnowledge makes every Correct call fail on the first dependency.
type failingKnowledge struct{ err error }

func (f *failingKnowledge) GetApplicableKnowledge(_ context.Context, _, _ uuid.UUID) ([]models.KnowledgeEntry, error) {
	return nil, f.err
}

type noopCompletions struct{}

func (noopCompletions) Complete(_ context.Context, _, _ string) (string, error) { return "{}", nil }

type noopInsights struct{}

func (noopInsights) GetByTypeInternal(_ context.Context, _ uuid.UUID, _ models.InsightType) (*models.InsightRecord, error) {
	return nil, nil
}

func (noopInsights) UpdateContentInternal(_ context.Context, _ uuid.UUID, _ json.RawMessage, _ *float64) (*models.InsightRecord, error) {
	return nil, nil
}

func correctionJob(attempt, maxAttempts int) *river.Job[jobs.CorrectionArgs] {
	return &river.Job[jobs.CorrectionArgs]{
		JobRow: &rivertype.JobRow{ID: 42, Attempt: attempt, MaxAttempts: maxAttempts},
		Args: jobs.CorrectionArgs{
			RecordingID:    uuid.Must(uuid.NewV7()),
			ProjectID:      uuid.Must(uuid.NewV7()),
			OrganizationID: uuid.Must(uuid.NewV7()),
			TranscriptText: "hello world",
		},
	}
}

func failingCorrector() *correction.Corrector {
	return correction.NewCorrector(
		&failingKnowledge{err: errors.New("db down")},
		noopCompletions{},
		noopInsights{},
		nil, nil,
	)
}

func succeedingCorrector() *correction.Corrector {
	// Empty knowledge base: Correct is a terminal no-op returning nil.
	return correction.NewCorrector(
		&emptyKnowledge{},
		noopCompletions{},
		noopInsights{},
		nil, nil,
	)
}

type emptyKnowledge struct{}

func (emptyKnowledge) GetApplicableKnowledge(_ context.Context, _, _ uuid.UUID) ([]models.KnowledgeEntry, error) {
	return nil, nil
}

func TestCorrectionWorker_Work(t *testing.T) {
	ctx := context.Background()

	t.Run("success returns nil", func(t *testing.T) {
		worker := NewCorrectionWorker(succeedingCorrector())

		assert.NoError(t, worker.Work(ctx, correctionJob(1, 3)))
	})

	t.Run("transient failure before final attempt propagates for retry", func(t *testing.T) {
		worker := NewCorrectionWorker(failingCorrector())

		err := worker.Work(ctx, correctionJob(1, 3))

		require.Error(t, err)
	})

	t.Run("final attempt swallows the failure", func(t *testing.T) {
		worker := NewCorrectionWorker(failingCorrector())

		assert.NoError(t, worker.Work(ctx, correctionJob(3, 3)))
	})
}

func TestCorrectionWorker_Timeout(t *testing.T) {
	worker := NewCorrectionWorker(succeedingCorrector())

	assert.Equal(t, correctionTimeout, worker.Timeout(correctionJob(1, 3)))
}
