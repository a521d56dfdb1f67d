package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// InsightType identifies the kind of derived artifact stored for a recording.
// The enumeration is fixed; it is not user-extensible.
type InsightType string

// Insight type constants.
const (
	InsightTypeTranscription InsightType = "transcription"
	InsightTypeSummary       InsightType = "summary"
	InsightTypeActionItems   InsightType = "action_items"
	InsightTypeDecisions     InsightType = "decisions"
	InsightTypeRisks         InsightType = "risks"
	InsightTypeNextSteps     InsightType = "next_steps"
)

// Valid reports whether t is one of the known insight types.
func (t InsightType) Valid() bool {
	switch t {
	case InsightTypeTranscription, InsightTypeSummary, InsightTypeActionItems,
		InsightTypeDecisions, InsightTypeRisks, InsightTypeNextSteps:
		return true
	}

	return false
}

// ProcessingStatus is the lifecycle state of an insight or of a recording's transcription.
//
// Transitions move forward only (pending -> processing -> completed|failed),
// except that a failed record may re-enter processing when the pipeline is
// re-invoked for a new attempt on the same record.
type ProcessingStatus string

// Processing status constants.
const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// Utterance is a contiguous speech segment attributed to one speaker.
type Utterance struct {
	Speaker    int     `json:"speaker"`
	Text       string  `json:"text"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Speaker summarizes one diarized speaker. Utterances is the number of words
// the provider attributed to the speaker, not the number of utterance spans.
type Speaker struct {
	ID         int `json:"id"`
	Utterances int `json:"utterances"`
}

// Correction is a non-destructive overlay proposing a replacement for a
// suspected mis-transcribed term. It annotates the transcript; it never
// rewrites the original text.
type Correction struct {
	Original         string  `json:"original"`
	Corrected        string  `json:"corrected"`
	KnowledgeEntryID string  `json:"knowledgeEntryId"`
	Confidence       float64 `json:"confidence"`
}

// TranscriptionContent is the content payload for transcription-type insights.
// Other insight types carry their own shapes; content is stored as the raw
// variant payload on InsightRecord and decoded per type.
type TranscriptionContent struct {
	Text              string       `json:"text"`
	Confidence        float64      `json:"confidence"`
	Speakers          []Speaker    `json:"speakers"`
	Utterances        []Utterance  `json:"utterances"`
	KnowledgeEntryIDs []string     `json:"knowledgeEntryIds,omitempty"`
	Corrections       []Correction `json:"corrections,omitempty"`
}

// InsightRecord is one derived artifact for a recording. At most one record
// exists per (recording_id, insight_type); the unique constraint in
// schema.sql enforces it.
type InsightRecord struct {
	ID               uuid.UUID         `json:"id"`
	RecordingID      uuid.UUID         `json:"recording_id"`
	InsightType      InsightType       `json:"insight_type"`
	Content          json.RawMessage   `json:"content,omitempty"`
	ConfidenceScore  *float64          `json:"confidence_score,omitempty"`
	ProcessingStatus ProcessingStatus  `json:"processing_status"`
	ErrorMessage     *string           `json:"error_message,omitempty"`
	SpeakersDetected []Speaker         `json:"speakers_detected,omitempty"`
	Utterances       []Utterance       `json:"utterances,omitempty"`
	SpeakerNames     map[string]string `json:"speaker_names,omitempty"`
	IsManuallyEdited bool              `json:"is_manually_edited"`
	LastEditedByID   *uuid.UUID        `json:"last_edited_by_id,omitempty"`
	LastEditedAt     *time.Time        `json:"last_edited_at,omitempty"`
	UserNotes        *string           `json:"user_notes,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// TranscriptionContent decodes the record's content as a transcription payload.
func (r *InsightRecord) TranscriptionContent() (*TranscriptionContent, error) {
	if len(r.Content) == 0 {
		return &TranscriptionContent{}, nil
	}

	var content TranscriptionContent
	if err := json.Unmarshal(r.Content, &content); err != nil {
		return nil, err
	}

	return &content, nil
}

// CreateInsightRequest carries the fields for inserting a new insight record.
type CreateInsightRequest struct {
	RecordingID      uuid.UUID        `json:"recording_id"`
	InsightType      InsightType      `json:"insight_type"`
	Content          json.RawMessage  `json:"content,omitempty"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`
}
