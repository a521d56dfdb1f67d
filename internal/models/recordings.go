package models

import (
	"time"

	"github.com/google/uuid"
)

// Recording is the owning entity for insight records. The pipeline reads it
// to resolve project/organization scoping and writes back the transcription
// status plus a denormalized transcript copy.
type Recording struct {
	ID                  uuid.UUID        `json:"id"`
	ProjectID           uuid.UUID        `json:"project_id"`
	OrganizationID      uuid.UUID        `json:"organization_id"`
	CreatedByID         uuid.UUID        `json:"created_by_id"`
	FileURL             string           `json:"file_url"`
	Language            string           `json:"language"`
	Transcription       *string          `json:"transcription,omitempty"`
	TranscriptionStatus ProcessingStatus `json:"transcription_status"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}
