package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/insights/internal/insighterrors"
	"github.com/meetscribe/insights/internal/models"
)

func TestRecordingsRepository_SelectByID(t *testing.T) {
	pool := testPool(t)
	repo := NewRecordingsRepository(pool)
	recording := insertTestRecording(t, pool)
	ctx := context.Background()

	t.Run("returns the recording", func(t *testing.T) {
		got, err := repo.SelectByID(ctx, recording.ID)

		require.NoError(t, err)
		assert.Equal(t, recording.ID, got.ID)
		assert.Equal(t, recording.OrganizationID, got.OrganizationID)
		assert.Equal(t, models.StatusPending, got.TranscriptionStatus)
		assert.Nil(t, got.Transcription)
	})

	t.Run("missing recording is not-found", func(t *testing.T) {
		_, err := repo.SelectByID(ctx, uuid.Must(uuid.NewV7()))

		assert.ErrorIs(t, err, insighterrors.ErrNotFound)
	})
}

func TestRecordingsRepository_UpdateTranscription(t *testing.T) {
	pool := testPool(t)
	repo := NewRecordingsRepository(pool)
	recording := insertTestRecording(t, pool)
	ctx := context.Background()

	require.NoError(t, repo.UpdateTranscriptionStatus(ctx, recording.ID, models.StatusProcessing))
	require.NoError(t, repo.UpdateTranscription(ctx, recording.ID, "hello world", models.StatusCompleted))

	got, err := repo.SelectByID(ctx, recording.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.TranscriptionStatus)
	require.NotNil(t, got.Transcription)
	assert.Equal(t, "hello world", *got.Transcription)

	t.Run("missing recording is not-found", func(t *testing.T) {
		missing := uuid.Must(uuid.NewV7())

		assert.ErrorIs(t, repo.UpdateTranscriptionStatus(ctx, missing, models.StatusFailed), insighterrors.ErrNotFound)
		assert.ErrorIs(t, repo.UpdateTranscription(ctx, missing, "x", models.StatusCompleted), insighterrors.ErrNotFound)
	})
}

func TestKnowledgeRepository_GetApplicableKnowledge(t *testing.T) {
	pool := testPool(t)
	repo := NewKnowledgeRepository(pool)
	ctx := context.Background()

	projectID := uuid.Must(uuid.NewV7())
	orgID := uuid.Must(uuid.NewV7())

	insertEntry := func(project, org uuid.UUID, term string) {
		t.Helper()
		id := uuid.Must(uuid.NewV7())
		_, err := pool.Exec(ctx, `
			INSERT INTO knowledge_entries (id, project_id, organization_id, term, definition)
			VALUES ($1, $2, $3, $4, $5)
		`, id, project, org, term, term+" definition")
		require.NoError(t, err)
		t.Cleanup(func() {
			_, _ = pool.Exec(context.Background(), `DELETE FROM knowledge_entries WHERE id = $1`, id)
		})
	}

	insertEntry(projectID, orgID, "Kubernetes")
	insertEntry(projectID, orgID, "Terraform")
	insertEntry(uuid.Must(uuid.NewV7()), orgID, "OtherProjectTerm")
	insertEntry(projectID, uuid.Must(uuid.NewV7()), "OtherOrgTerm")

	entries, err := repo.GetApplicableKnowledge(ctx, projectID, orgID)

	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Oldest first.
	assert.Equal(t, "Kubernetes", entries[0].Term)
	assert.Equal(t, "Terraform", entries[1].Term)

	t.Run("no entries yields empty slice", func(t *testing.T) {
		entries, err := repo.GetApplicableKnowledge(ctx, uuid.Must(uuid.NewV7()), orgID)

		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
