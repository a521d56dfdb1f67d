package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetscribe/insights/internal/insighterrors"
	"github.com/meetscribe/insights/internal/models"
)

const recordingColumns = `
	id, project_id, organization_id, created_by_id, file_url, language,
	transcription, transcription_status, created_at, updated_at
`

// RecordingsRepository handles the pipeline's reads and writes on recordings.
// Recording lifecycle (upload, deletion) is owned by the surrounding system.
type RecordingsRepository struct {
	db *pgxpool.Pool
}

// NewRecordingsRepository creates a new recordings repository.
func NewRecordingsRepository(db *pgxpool.Pool) *RecordingsRepository {
	return &RecordingsRepository{db: db}
}

func scanRecording(row rowScanner) (*models.Recording, error) {
	var recording models.Recording
	err := row.Scan(
		&recording.ID, &recording.ProjectID, &recording.OrganizationID,
		&recording.CreatedByID, &recording.FileURL, &recording.Language,
		&recording.Transcription, &recording.TranscriptionStatus,
		&recording.CreatedAt, &recording.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &recording, nil
}

// SelectByID retrieves a single recording.
func (r *RecordingsRepository) SelectByID(ctx context.Context, id uuid.UUID) (*models.Recording, error) {
	query := `SELECT ` + recordingColumns + ` FROM recordings WHERE id = $1`

	recording, err := scanRecording(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, insighterrors.NewNotFoundError("recording", "recording not found")
		}

		return nil, fmt.Errorf("failed to get recording: %w", err)
	}

	return recording, nil
}

// UpdateTranscriptionStatus sets the recording's transcription status.
func (r *RecordingsRepository) UpdateTranscriptionStatus(ctx context.Context, id uuid.UUID, status models.ProcessingStatus) error {
	query := `UPDATE recordings SET transcription_status = $2, updated_at = now() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update transcription status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return insighterrors.NewNotFoundError("recording", "recording not found")
	}

	return nil
}

// UpdateTranscription stores the denormalized transcript copy on the
// recording together with the final transcription status.
func (r *RecordingsRepository) UpdateTranscription(ctx context.Context, id uuid.UUID, text string, status models.ProcessingStatus) error {
	query := `
		UPDATE recordings
		SET transcription = $2, transcription_status = $3, updated_at = now()
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, id, text, status)
	if err != nil {
		return fmt.Errorf("failed to update transcription: %w", err)
	}

	if result.RowsAffected() == 0 {
		return insighterrors.NewNotFoundError("recording", "recording not found")
	}

	return nil
}
