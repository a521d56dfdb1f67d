package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meetscribe/insights/internal/asr"
	"github.com/meetscribe/insights/internal/diarization"
	"github.com/meetscribe/insights/internal/insighterrors"
	"github.com/meetscribe/insights/internal/jobs"
	"github.com/meetscribe/insights/internal/models"
	"github.com/meetscribe/insights/internal/observability"
)

// KnowledgeSource supplies applicable terminology entries for a project.
type KnowledgeSource interface {
	GetApplicableKnowledge(ctx context.Context, projectID, organizationID uuid.UUID) ([]models.KnowledgeEntry, error)
}

// insightsStore is the pipeline-internal slice of the insight service.
type insightsStore interface {
	CreateInternal(ctx context.Context, req *models.CreateInsightRequest) (*models.InsightRecord, error)
	GetByTypeInternal(ctx context.Context, recordingID uuid.UUID, insightType models.InsightType) (*models.InsightRecord, error)
	UpdateStatusInternal(ctx context.Context, id uuid.UUID, status models.ProcessingStatus, errorMessage *string) (*models.InsightRecord, error)
	UpdateContentInternal(ctx context.Context, id uuid.UUID, content json.RawMessage, confidenceScore *float64) (*models.InsightRecord, error)
}

// recordingsStore is the pipeline's view of the recording store.
type recordingsStore interface {
	SelectByID(ctx context.Context, id uuid.UUID) (*models.Recording, error)
	UpdateTranscriptionStatus(ctx context.Context, id uuid.UUID, status models.ProcessingStatus) error
	UpdateTranscription(ctx context.Context, id uuid.UUID, text string, status models.ProcessingStatus) error
}

const defaultVocabularyMax = 100

// TranscriptionServiceConfig holds the pipeline's tunables.
type TranscriptionServiceConfig struct {
	// ASRTimeout bounds the provider call; zero means the caller's context
	// deadline alone applies.
	ASRTimeout time.Duration
	// VocabularyMax caps the number of knowledge terms sent as recognition
	// hints (hosted providers limit keyword counts). Default 100.
	VocabularyMax int
}

// TranscriptionService drives one recording from uploaded to transcribed:
// provider call, diarization, persistence, notification, and the
// fire-and-forget hand-off to the knowledge correction queue.
type TranscriptionService struct {
	insights    insightsStore
	recordings  recordingsStore
	knowledge   KnowledgeSource
	provider    asr.Provider
	corrections jobs.CorrectionInserter
	notifier    NotificationDispatcher
	metrics     observability.PipelineMetrics
	cfg         TranscriptionServiceConfig
}

// NewTranscriptionService creates the pipeline service.
// metrics may be nil when metrics are disabled.
func NewTranscriptionService(
	insights insightsStore,
	recordings recordingsStore,
	knowledge KnowledgeSource,
	provider asr.Provider,
	corrections jobs.CorrectionInserter,
	notifier NotificationDispatcher,
	metrics observability.PipelineMetrics,
	cfg TranscriptionServiceConfig,
) *TranscriptionService {
	if cfg.VocabularyMax <= 0 {
		cfg.VocabularyMax = defaultVocabularyMax
	}

	return &TranscriptionService{
		insights:    insights,
		recordings:  recordings,
		knowledge:   knowledge,
		provider:    provider,
		corrections: corrections,
		notifier:    notifier,
		metrics:     metrics,
		cfg:         cfg,
	}
}

// Transcribe runs the full pipeline for one recording and returns the
// completed transcription insight.
//
// Provider failure and empty provider output are fatal: the insight and the
// recording are marked failed with the provider's message, one failure
// notification is dispatched, and the error is returned. There is no
// automatic retry; re-invoking Transcribe starts a fresh attempt on the same
// record unless that record already completed, in which case it is returned
// untouched. Knowledge lookup failure degrades to an empty vocabulary, and a
// failed correction enqueue is logged and swallowed — neither can fail the
// transcription.
func (s *TranscriptionService) Transcribe(ctx context.Context, recordingID uuid.UUID) (*models.InsightRecord, error) {
	start := time.Now()

	recording, err := s.recordings.SelectByID(ctx, recordingID)
	if err != nil {
		s.recordRun(ctx, "recording_not_found", start)

		return nil, err
	}

	insight, claimed, err := s.claimInsight(ctx, recording.ID)
	if err != nil {
		s.recordRun(ctx, "store_failed", start)

		return nil, err
	}

	if !claimed {
		// A duplicate run after success is a no-op; completed never walks
		// back to processing.
		slog.Info("transcription already completed, skipping duplicate run",
			"recording_id", recording.ID,
			"insight_id", insight.ID,
		)
		s.recordRun(ctx, "already_completed", start)

		return insight, nil
	}

	// Mark the recording in progress before anything expensive runs, so a
	// crash mid-pipeline leaves it visibly processing rather than stuck at
	// not-started.
	if err := s.recordings.UpdateTranscriptionStatus(ctx, recording.ID, models.StatusProcessing); err != nil {
		s.recordRun(ctx, "store_failed", start)

		return nil, fmt.Errorf("mark recording processing: %w", err)
	}

	vocabulary, knowledgeIDs := s.vocabularyHints(ctx, recording)

	result, err := s.callProvider(ctx, recording, vocabulary)
	if err != nil {
		s.failTranscription(ctx, recording, insight.ID, err.Error())
		s.recordRun(ctx, "provider_failed", start)

		return nil, err
	}

	speakers := diarization.ExtractSpeakers(result.Words)
	utterances := diarization.ExtractUtterances(result.Utterances)

	content := models.TranscriptionContent{
		Text:              result.Transcript,
		Confidence:        result.Confidence,
		Speakers:          speakers,
		Utterances:        utterances,
		KnowledgeEntryIDs: knowledgeIDs,
	}

	payload, err := json.Marshal(content)
	if err != nil {
		s.failTranscription(ctx, recording, insight.ID, "failed to encode transcription content")
		s.recordRun(ctx, "store_failed", start)

		return nil, fmt.Errorf("encode transcription content: %w", err)
	}

	confidence := result.Confidence
	updated, err := s.insights.UpdateContentInternal(ctx, insight.ID, payload, &confidence)
	if err != nil {
		s.failTranscription(ctx, recording, insight.ID, "failed to store transcription")
		s.recordRun(ctx, "store_failed", start)

		return nil, fmt.Errorf("store transcription content: %w", err)
	}
	insight = updated

	if err := s.recordings.UpdateTranscription(ctx, recording.ID, result.Transcript, models.StatusCompleted); err != nil {
		s.failTranscription(ctx, recording, insight.ID, "failed to store transcript on recording")
		s.recordRun(ctx, "store_failed", start)

		return nil, fmt.Errorf("store transcript on recording: %w", err)
	}

	s.enqueueCorrection(ctx, recording, result.Transcript)

	s.notifier.Notify(ctx, Notification{
		RecordingID:    recording.ID,
		ProjectID:      recording.ProjectID,
		UserID:         recording.CreatedByID,
		OrganizationID: recording.OrganizationID,
		Type:           NotificationTypeTranscriptionCompleted,
		Title:          "Transcription ready",
		Message:        fmt.Sprintf("Your recording was transcribed: %d speakers, %d utterances.", len(speakers), len(utterances)),
		Metadata: map[string]any{
			"speakers":   len(speakers),
			"utterances": len(utterances),
			"confidence": result.Confidence,
		},
	})

	slog.Info("transcription completed",
		"recording_id", recording.ID,
		"insight_id", insight.ID,
		"speakers", len(speakers),
		"utterances", len(utterances),
		"duration", time.Since(start),
	)
	s.recordRun(ctx, "success", start)

	return insight, nil
}

// claimInsight creates the transcription insight in processing state, or
// reclaims an existing non-completed record for a fresh attempt (the
// failed -> processing edge of the state machine; pending and stale
// processing records are claimed the same way). A completed insight is
// returned unclaimed: the state machine has no completed -> processing edge,
// so a duplicate job after success must not restart the pipeline. The unique
// constraint closes the race between two concurrent claims for the same
// recording.
func (s *TranscriptionService) claimInsight(ctx context.Context, recordingID uuid.UUID) (*models.InsightRecord, bool, error) {
	existing, err := s.insights.GetByTypeInternal(ctx, recordingID, models.InsightTypeTranscription)
	if err != nil {
		return nil, false, fmt.Errorf("look up existing insight: %w", err)
	}

	if existing != nil {
		return s.reclaimInsight(ctx, existing)
	}

	insight, err := s.insights.CreateInternal(ctx, &models.CreateInsightRequest{
		RecordingID:      recordingID,
		InsightType:      models.InsightTypeTranscription,
		ProcessingStatus: models.StatusProcessing,
	})
	if err == nil {
		return insight, true, nil
	}

	// Lost the creation race; claim the record the winner inserted.
	if errors.Is(err, insighterrors.ErrConflict) {
		existing, lookupErr := s.insights.GetByTypeInternal(ctx, recordingID, models.InsightTypeTranscription)
		if lookupErr == nil && existing != nil {
			return s.reclaimInsight(ctx, existing)
		}
	}

	return nil, false, fmt.Errorf("create insight: %w", err)
}

func (s *TranscriptionService) reclaimInsight(ctx context.Context, existing *models.InsightRecord) (*models.InsightRecord, bool, error) {
	if existing.ProcessingStatus == models.StatusCompleted {
		return existing, false, nil
	}

	insight, err := s.insights.UpdateStatusInternal(ctx, existing.ID, models.StatusProcessing, nil)
	if err != nil {
		return nil, false, fmt.Errorf("reclaim insight: %w", err)
	}

	return insight, true, nil
}

// vocabularyHints fetches applicable knowledge best-effort. A lookup failure
// degrades to an empty vocabulary: hints are an enhancement, not a
// prerequisite for transcription.
func (s *TranscriptionService) vocabularyHints(ctx context.Context, recording *models.Recording) (vocabulary []string, knowledgeIDs []string) {
	entries, err := s.knowledge.GetApplicableKnowledge(ctx, recording.ProjectID, recording.OrganizationID)
	if err != nil {
		slog.Warn("knowledge lookup failed, transcribing without vocabulary hints",
			"recording_id", recording.ID,
			"error", err,
		)

		return nil, nil
	}

	if len(entries) > s.cfg.VocabularyMax {
		entries = entries[:s.cfg.VocabularyMax]
	}

	vocabulary = make([]string, 0, len(entries))
	knowledgeIDs = make([]string, 0, len(entries))
	for _, entry := range entries {
		vocabulary = append(vocabulary, entry.Term)
		knowledgeIDs = append(knowledgeIDs, entry.ID.String())
	}

	return vocabulary, knowledgeIDs
}

// callProvider invokes the ASR provider under the configured timeout.
// A successful call with no usable transcript text is indistinguishable from
// a provider contract violation and is reported as a provider error, never
// accepted as a completed empty transcription.
func (s *TranscriptionService) callProvider(ctx context.Context, recording *models.Recording, vocabulary []string) (*asr.Result, error) {
	callCtx := ctx
	if s.cfg.ASRTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.ASRTimeout)
		defer cancel()
	}

	result, err := s.provider.Transcribe(callCtx, asr.Request{
		FileURL:    recording.FileURL,
		Language:   recording.Language,
		Diarize:    true,
		Vocabulary: vocabulary,
	})
	if err != nil {
		s.recordProviderError(ctx, "asr", "call_failed")

		return nil, err
	}

	if strings.TrimSpace(result.Transcript) == "" {
		s.recordProviderError(ctx, "asr", "empty_transcript")

		return nil, insighterrors.NewProviderError("asr", "transcription provider returned no transcript text")
	}

	return result, nil
}

// failTranscription flips insight and recording to failed, stores the
// message, and dispatches exactly one failure notification. Follow-up store
// errors are logged; there is nothing further to fall back to.
func (s *TranscriptionService) failTranscription(ctx context.Context, recording *models.Recording, insightID uuid.UUID, message string) {
	if _, err := s.insights.UpdateStatusInternal(ctx, insightID, models.StatusFailed, &message); err != nil {
		slog.Error("failed to mark insight failed", "insight_id", insightID, "error", err)
	}

	if err := s.recordings.UpdateTranscriptionStatus(ctx, recording.ID, models.StatusFailed); err != nil {
		slog.Error("failed to mark recording failed", "recording_id", recording.ID, "error", err)
	}

	s.notifier.Notify(ctx, Notification{
		RecordingID:    recording.ID,
		ProjectID:      recording.ProjectID,
		UserID:         recording.CreatedByID,
		OrganizationID: recording.OrganizationID,
		Type:           NotificationTypeTranscriptionFailed,
		Title:          "Transcription failed",
		Message:        message,
	})
}

// enqueueCorrection hands the transcript to the correction queue without
// waiting for it. Correction is strictly best-effort: an enqueue failure is
// logged and swallowed, never surfaced to the transcription caller.
func (s *TranscriptionService) enqueueCorrection(ctx context.Context, recording *models.Recording, transcript string) {
	err := s.corrections.InsertCorrectionJob(ctx, jobs.CorrectionArgs{
		RecordingID:    recording.ID,
		ProjectID:      recording.ProjectID,
		OrganizationID: recording.OrganizationID,
		TranscriptText: transcript,
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordEnqueueError(ctx)
		}

		slog.Error("correction enqueue failed",
			"recording_id", recording.ID,
			"error", err,
		)
	}
}

func (s *TranscriptionService) recordRun(ctx context.Context, outcome string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordTranscription(ctx, outcome, time.Since(start))
	}
}

func (s *TranscriptionService) recordProviderError(ctx context.Context, provider, reason string) {
	if s.metrics != nil {
		s.metrics.RecordProviderError(ctx, provider, reason)
	}
}
