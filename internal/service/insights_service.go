package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/meetscribe/insights/internal/insighterrors"
	"github.com/meetscribe/insights/internal/models"
)

// InsightsRepository defines the interface for insight data access.
type InsightsRepository interface {
	Create(ctx context.Context, req *models.CreateInsightRequest) (*models.InsightRecord, error)
	GetByType(ctx context.Context, recordingID uuid.UUID, insightType models.InsightType) (*models.InsightRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ProcessingStatus, errorMessage *string) (*models.InsightRecord, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content json.RawMessage, confidenceScore *float64) (*models.InsightRecord, error)
	UpdateUtteranceSpeaker(ctx context.Context, id uuid.UUID, utteranceIndex, newSpeaker int, editorID uuid.UUID) (*models.InsightRecord, error)
	UpdateSpeakerNames(ctx context.Context, id uuid.UUID, names map[string]string, editorID uuid.UUID) (*models.InsightRecord, error)
	UpdateWithEditTracking(ctx context.Context, id uuid.UUID, content json.RawMessage, userNotes *string, editorID uuid.UUID) (*models.InsightRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// RecordingsStore is the slice of the recording store the insight service
// needs to resolve ownership.
type RecordingsStore interface {
	SelectByID(ctx context.Context, id uuid.UUID) (*models.Recording, error)
}

// InsightsService handles business logic for insight records.
//
// Methods without the Internal suffix are externally reachable: each one
// resolves the owning recording and applies the organization isolation guard
// before touching the store. Methods with the Internal suffix bypass the
// guard; they exist for the pipeline, which already operates within a known
// organization context. The naming split keeps the guarded surface auditable.
type InsightsService struct {
	insights   InsightsRepository
	recordings RecordingsStore
}

// NewInsightsService creates a new insights service.
func NewInsightsService(insights InsightsRepository, recordings RecordingsStore) *InsightsService {
	return &InsightsService{insights: insights, recordings: recordings}
}

// resolveRecording loads the recording and applies the isolation guard.
func (s *InsightsService) resolveRecording(ctx context.Context, recordingID, callerOrgID uuid.UUID) (*models.Recording, error) {
	recording, err := s.recordings.SelectByID(ctx, recordingID)
	if err != nil {
		return nil, err
	}

	if err := AssertOrganizationAccess(recording.OrganizationID, callerOrgID, "recording"); err != nil {
		return nil, err
	}

	return recording, nil
}

// GetByType retrieves the insight of the given type for a recording the
// caller's organization owns. A missing insight returns (nil, nil).
func (s *InsightsService) GetByType(ctx context.Context, callerOrgID, recordingID uuid.UUID, insightType models.InsightType) (*models.InsightRecord, error) {
	if _, err := s.resolveRecording(ctx, recordingID, callerOrgID); err != nil {
		return nil, err
	}

	return s.insights.GetByType(ctx, recordingID, insightType)
}

// Delete removes the insight of the given type for a recording the caller's
// organization owns.
func (s *InsightsService) Delete(ctx context.Context, callerOrgID, recordingID uuid.UUID, insightType models.InsightType) error {
	if _, err := s.resolveRecording(ctx, recordingID, callerOrgID); err != nil {
		return err
	}

	insight, err := s.insights.GetByType(ctx, recordingID, insightType)
	if err != nil {
		return err
	}

	if insight == nil {
		return insighterrors.NewNotFoundError("insight", "insight not found")
	}

	return s.insights.Delete(ctx, insight.ID)
}

// UpdateUtteranceSpeaker reassigns one utterance's speaker on the
// transcription insight. A missing insight or out-of-range index returns
// (nil, nil): a local, recoverable condition for the caller to map, not a
// failure.
func (s *InsightsService) UpdateUtteranceSpeaker(ctx context.Context, callerOrgID, recordingID uuid.UUID, utteranceIndex, newSpeaker int, editorID uuid.UUID) (*models.InsightRecord, error) {
	if _, err := s.resolveRecording(ctx, recordingID, callerOrgID); err != nil {
		return nil, err
	}

	insight, err := s.insights.GetByType(ctx, recordingID, models.InsightTypeTranscription)
	if err != nil {
		return nil, err
	}

	if insight == nil {
		return nil, nil
	}

	return s.insights.UpdateUtteranceSpeaker(ctx, insight.ID, utteranceIndex, newSpeaker, editorID)
}

// UpdateSpeakerNames replaces the speaker display-name mapping on the
// transcription insight.
func (s *InsightsService) UpdateSpeakerNames(ctx context.Context, callerOrgID, recordingID uuid.UUID, names map[string]string, editorID uuid.UUID) (*models.InsightRecord, error) {
	if _, err := s.resolveRecording(ctx, recordingID, callerOrgID); err != nil {
		return nil, err
	}

	insight, err := s.insights.GetByType(ctx, recordingID, models.InsightTypeTranscription)
	if err != nil {
		return nil, err
	}

	if insight == nil {
		return nil, insighterrors.NewNotFoundError("insight", "insight not found")
	}

	return s.insights.UpdateSpeakerNames(ctx, insight.ID, names, editorID)
}

// UpdateWithEditTracking stores a user's content edit with provenance.
func (s *InsightsService) UpdateWithEditTracking(ctx context.Context, callerOrgID, recordingID uuid.UUID, insightType models.InsightType, content json.RawMessage, userNotes *string, editorID uuid.UUID) (*models.InsightRecord, error) {
	if _, err := s.resolveRecording(ctx, recordingID, callerOrgID); err != nil {
		return nil, err
	}

	insight, err := s.insights.GetByType(ctx, recordingID, insightType)
	if err != nil {
		return nil, err
	}

	if insight == nil {
		return nil, insighterrors.NewNotFoundError("insight", "insight not found")
	}

	return s.insights.UpdateWithEditTracking(ctx, insight.ID, content, userNotes, editorID)
}

// CreateInternal inserts an insight record. Pipeline use only.
func (s *InsightsService) CreateInternal(ctx context.Context, req *models.CreateInsightRequest) (*models.InsightRecord, error) {
	return s.insights.Create(ctx, req)
}

// GetByTypeInternal retrieves an insight without the isolation guard.
// Pipeline use only. A missing insight returns (nil, nil).
func (s *InsightsService) GetByTypeInternal(ctx context.Context, recordingID uuid.UUID, insightType models.InsightType) (*models.InsightRecord, error) {
	return s.insights.GetByType(ctx, recordingID, insightType)
}

// UpdateStatusInternal sets an insight's processing status. Pipeline use only.
func (s *InsightsService) UpdateStatusInternal(ctx context.Context, id uuid.UUID, status models.ProcessingStatus, errorMessage *string) (*models.InsightRecord, error) {
	return s.insights.UpdateStatus(ctx, id, status, errorMessage)
}

// UpdateContentInternal stores content and forces completed status.
// Pipeline use only.
func (s *InsightsService) UpdateContentInternal(ctx context.Context, id uuid.UUID, content json.RawMessage, confidenceScore *float64) (*models.InsightRecord, error) {
	return s.insights.UpdateContent(ctx, id, content, confidenceScore)
}
