// Package jobs provides River job definitions and inserters for the
// pipeline's background work.
package jobs

import (
	"github.com/google/uuid"
	"github.com/riverqueue/river"
)

const (
	correctionKind    = "knowledge_correction"
	transcriptionKind = "transcription_request"
)

// CorrectionsQueueName is the River queue used for knowledge correction jobs.
const CorrectionsQueueName = "corrections"

// TranscriptionsQueueName is the River queue used for transcription jobs.
// Upstream services insert transcription_request jobs here when a recording
// upload finishes.
const TranscriptionsQueueName = "transcriptions"

// CorrectionArgs is the job payload for one knowledge-correction pass over a
// completed transcript. Uniqueness is by RecordingID so a re-transcribed
// recording does not pile up duplicate correction jobs.
type CorrectionArgs struct {
	RecordingID    uuid.UUID `json:"recording_id" river:"unique"`
	ProjectID      uuid.UUID `json:"project_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	TranscriptText string    `json:"transcript_text"`
}

// Kind returns the River job kind.
func (CorrectionArgs) Kind() string { return correctionKind }

var _ river.JobArgs = CorrectionArgs{}

// TranscriptionArgs is the job payload for transcribing one recording.
// Uniqueness is by RecordingID so repeated upload notifications collapse into
// a single transcription run.
type TranscriptionArgs struct {
	RecordingID uuid.UUID `json:"recording_id" river:"unique"`
}

// Kind returns the River job kind.
func (TranscriptionArgs) Kind() string { return transcriptionKind }

var _ river.JobArgs = TranscriptionArgs{}
