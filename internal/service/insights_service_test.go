package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/insights/internal/insighterrors"
	"github.com/meetscribe/insights/internal/models"
)

// mockInsightsRepo implements InsightsRepository with canned responses.
type mockInsightsRepo struct {
	insight *models.InsightRecord
	getErr  error

	deletedID        uuid.UUID
	deleteCalls      int
	speakerNames     map[string]string
	utteranceIndex   int
	utteranceSpeaker int
	editorID         uuid.UUID
}

func (m *mockInsightsRepo) Create(_ context.Context, req *models.CreateInsightRequest) (*models.InsightRecord, error) {
	return &models.InsightRecord{ID: uuid.Must(uuid.NewV7()), RecordingID: req.RecordingID, InsightType: req.InsightType}, nil
}

func (m *mockInsightsRepo) GetByType(_ context.Context, _ uuid.UUID, _ models.InsightType) (*models.InsightRecord, error) {
	return m.insight, m.getErr
}

func (m *mockInsightsRepo) UpdateStatus(_ context.Context, id uuid.UUID, status models.ProcessingStatus, errorMessage *string) (*models.InsightRecord, error) {
	return &models.InsightRecord{ID: id, ProcessingStatus: status, ErrorMessage: errorMessage}, nil
}

func (m *mockInsightsRepo) UpdateContent(_ context.Context, id uuid.UUID, content json.RawMessage, confidenceScore *float64) (*models.InsightRecord, error) {
	return &models.InsightRecord{ID: id, Content: content, ConfidenceScore: confidenceScore, ProcessingStatus: models.StatusCompleted}, nil
}

func (m *mockInsightsRepo) UpdateUtteranceSpeaker(_ context.Context, id uuid.UUID, utteranceIndex, newSpeaker int, editorID uuid.UUID) (*models.InsightRecord, error) {
	m.utteranceIndex = utteranceIndex
	m.utteranceSpeaker = newSpeaker
	m.editorID = editorID
	return m.insight, nil
}

func (m *mockInsightsRepo) UpdateSpeakerNames(_ context.Context, id uuid.UUID, names map[string]string, editorID uuid.UUID) (*models.InsightRecord, error) {
	m.speakerNames = names
	m.editorID = editorID
	return m.insight, nil
}

func (m *mockInsightsRepo) UpdateWithEditTracking(_ context.Context, id uuid.UUID, content json.RawMessage, userNotes *string, editorID uuid.UUID) (*models.InsightRecord, error) {
	m.editorID = editorID
	return &models.InsightRecord{ID: id, Content: content, UserNotes: userNotes, IsManuallyEdited: true}, nil
}

func (m *mockInsightsRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.deleteCalls++
	m.deletedID = id
	return nil
}

// mockRecordingsResolver implements RecordingsStore.
type mockRecordingsResolver struct {
	recording *models.Recording
	err       error
}

func (m *mockRecordingsResolver) SelectByID(_ context.Context, _ uuid.UUID) (*models.Recording, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.recording, nil
}

func TestInsightsService_organizationIsolation(t *testing.T) {
	ctx := context.Background()
	ownerOrg := uuid.Must(uuid.NewV7())
	otherOrg := uuid.Must(uuid.NewV7())
	recording := &models.Recording{ID: uuid.Must(uuid.NewV7()), OrganizationID: ownerOrg}
	editorID := uuid.Must(uuid.NewV7())

	repo := &mockInsightsRepo{insight: &models.InsightRecord{ID: uuid.Must(uuid.NewV7())}}
	svc := NewInsightsService(repo, &mockRecordingsResolver{recording: recording})

	// Every guarded operation must fail identically for a caller from
	// another organization: not-found, never a permission error that would
	// confirm the resource exists.
	t.Run("GetByType", func(t *testing.T) {
		_, err := svc.GetByType(ctx, otherOrg, recording.ID, models.InsightTypeTranscription)
		assert.ErrorIs(t, err, insighterrors.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := svc.Delete(ctx, otherOrg, recording.ID, models.InsightTypeTranscription)
		assert.ErrorIs(t, err, insighterrors.ErrNotFound)
		assert.Zero(t, repo.deleteCalls)
	})

	t.Run("UpdateUtteranceSpeaker", func(t *testing.T) {
		_, err := svc.UpdateUtteranceSpeaker(ctx, otherOrg, recording.ID, 0, 1, editorID)
		assert.ErrorIs(t, err, insighterrors.ErrNotFound)
	})

	t.Run("UpdateSpeakerNames", func(t *testing.T) {
		_, err := svc.UpdateSpeakerNames(ctx, otherOrg, recording.ID, map[string]string{"0": "Ada"}, editorID)
		assert.ErrorIs(t, err, insighterrors.ErrNotFound)
	})

	t.Run("UpdateWithEditTracking", func(t *testing.T) {
		_, err := svc.UpdateWithEditTracking(ctx, otherOrg, recording.ID, models.InsightTypeTranscription, json.RawMessage(`{}`), nil, editorID)
		assert.ErrorIs(t, err, insighterrors.ErrNotFound)
	})

	t.Run("same organization passes the guard", func(t *testing.T) {
		insight, err := svc.GetByType(ctx, ownerOrg, recording.ID, models.InsightTypeTranscription)
		require.NoError(t, err)
		assert.NotNil(t, insight)
	})
}

func TestInsightsService_GetByType(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.Must(uuid.NewV7())
	recording := &models.Recording{ID: uuid.Must(uuid.NewV7()), OrganizationID: orgID}

	t.Run("missing insight returns nil, nil", func(t *testing.T) {
		svc := NewInsightsService(&mockInsightsRepo{}, &mockRecordingsResolver{recording: recording})

		insight, err := svc.GetByType(ctx, orgID, recording.ID, models.InsightTypeSummary)

		require.NoError(t, err)
		assert.Nil(t, insight)
	})

	t.Run("missing recording propagates not-found", func(t *testing.T) {
		resolver := &mockRecordingsResolver{err: insighterrors.NewNotFoundError("recording", "recording not found")}
		svc := NewInsightsService(&mockInsightsRepo{}, resolver)

		_, err := svc.GetByType(ctx, orgID, recording.ID, models.InsightTypeTranscription)

		assert.ErrorIs(t, err, insighterrors.ErrNotFound)
	})
}

func TestInsightsService_Delete(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.Must(uuid.NewV7())
	recording := &models.Recording{ID: uuid.Must(uuid.NewV7()), OrganizationID: orgID}

	t.Run("deletes the resolved insight", func(t *testing.T) {
		insight := &models.InsightRecord{ID: uuid.Must(uuid.NewV7())}
		repo := &mockInsightsRepo{insight: insight}
		svc := NewInsightsService(repo, &mockRecordingsResolver{recording: recording})

		require.NoError(t, svc.Delete(ctx, orgID, recording.ID, models.InsightTypeTranscription))
		assert.Equal(t, 1, repo.deleteCalls)
		assert.Equal(t, insight.ID, repo.deletedID)
	})

	t.Run("missing insight is not-found", func(t *testing.T) {
		svc := NewInsightsService(&mockInsightsRepo{}, &mockRecordingsResolver{recording: recording})

		err := svc.Delete(ctx, orgID, recording.ID, models.InsightTypeTranscription)

		assert.ErrorIs(t, err, insighterrors.ErrNotFound)
	})
}

func TestInsightsService_UpdateUtteranceSpeaker(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.Must(uuid.NewV7())
	recording := &models.Recording{ID: uuid.Must(uuid.NewV7()), OrganizationID: orgID}
	editorID := uuid.Must(uuid.NewV7())

	t.Run("missing insight returns nil, nil", func(t *testing.T) {
		svc := NewInsightsService(&mockInsightsRepo{}, &mockRecordingsResolver{recording: recording})

		insight, err := svc.UpdateUtteranceSpeaker(ctx, orgID, recording.ID, 2, 1, editorID)

		require.NoError(t, err)
		assert.Nil(t, insight)
	})

	t.Run("forwards index, speaker, and editor to the store", func(t *testing.T) {
		repo := &mockInsightsRepo{insight: &models.InsightRecord{ID: uuid.Must(uuid.NewV7())}}
		svc := NewInsightsService(repo, &mockRecordingsResolver{recording: recording})

		_, err := svc.UpdateUtteranceSpeaker(ctx, orgID, recording.ID, 2, 1, editorID)

		require.NoError(t, err)
		assert.Equal(t, 2, repo.utteranceIndex)
		assert.Equal(t, 1, repo.utteranceSpeaker)
		assert.Equal(t, editorID, repo.editorID)
	})
}

func TestInsightsService_UpdateSpeakerNames(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.Must(uuid.NewV7())
	recording := &models.Recording{ID: uuid.Must(uuid.NewV7()), OrganizationID: orgID}
	editorID := uuid.Must(uuid.NewV7())

	t.Run("missing insight is not-found", func(t *testing.T) {
		svc := NewInsightsService(&mockInsightsRepo{}, &mockRecordingsResolver{recording: recording})

		_, err := svc.UpdateSpeakerNames(ctx, orgID, recording.ID, map[string]string{"0": "Ada"}, editorID)

		assert.ErrorIs(t, err, insighterrors.ErrNotFound)
	})

	t.Run("forwards names to the store", func(t *testing.T) {
		repo := &mockInsightsRepo{insight: &models.InsightRecord{ID: uuid.Must(uuid.NewV7())}}
		svc := NewInsightsService(repo, &mockRecordingsResolver{recording: recording})

		names := map[string]string{"0": "Ada", "1": "Grace"}
		_, err := svc.UpdateSpeakerNames(ctx, orgID, recording.ID, names, editorID)

		require.NoError(t, err)
		assert.Equal(t, names, repo.speakerNames)
	})
}

func TestAssertOrganizationAccess(t *testing.T) {
	orgA := uuid.Must(uuid.NewV7())
	orgB := uuid.Must(uuid.NewV7())

	t.Run("same organization", func(t *testing.T) {
		assert.NoError(t, AssertOrganizationAccess(orgA, orgA, "recording"))
	})

	t.Run("different organization is not-found", func(t *testing.T) {
		err := AssertOrganizationAccess(orgA, orgB, "recording")

		require.Error(t, err)
		assert.ErrorIs(t, err, insighterrors.ErrNotFound)

		// Specifically not a generic error the caller might map to 403.
		var notFound *insighterrors.NotFoundError
		assert.True(t, errors.As(err, &notFound))
	})
}
