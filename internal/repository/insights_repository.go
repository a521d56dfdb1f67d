package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetscribe/insights/internal/insighterrors"
	"github.com/meetscribe/insights/internal/models"
)

// pgUniqueViolation is the Postgres error code for unique constraint violations.
const pgUniqueViolation = "23505"

const insightColumns = `
	id, recording_id, insight_type, content, confidence_score, processing_status,
	error_message, speakers_detected, utterances, speaker_names,
	is_manually_edited, last_edited_by_id, last_edited_at, user_notes,
	created_at, updated_at
`

// InsightsRepository handles data access for insight records.
type InsightsRepository struct {
	db *pgxpool.Pool
}

// NewInsightsRepository creates a new insights repository.
func NewInsightsRepository(db *pgxpool.Pool) *InsightsRepository {
	return &InsightsRepository{db: db}
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanInsight(row rowScanner) (*models.InsightRecord, error) {
	var record models.InsightRecord
	err := row.Scan(
		&record.ID, &record.RecordingID, &record.InsightType, &record.Content,
		&record.ConfidenceScore, &record.ProcessingStatus, &record.ErrorMessage,
		&record.SpeakersDetected, &record.Utterances, &record.SpeakerNames,
		&record.IsManuallyEdited, &record.LastEditedByID, &record.LastEditedAt,
		&record.UserNotes, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &record, nil
}

// Create inserts a new insight record with the status given by the caller.
// A duplicate (recording_id, insight_type) pair is reported as a ConflictError.
func (r *InsightsRepository) Create(ctx context.Context, req *models.CreateInsightRequest) (*models.InsightRecord, error) {
	if !req.InsightType.Valid() {
		return nil, insighterrors.NewValidationError("insight_type", fmt.Sprintf("unknown insight type: %s", req.InsightType))
	}

	query := `
		INSERT INTO insights (recording_id, insight_type, content, processing_status)
		VALUES ($1, $2, $3::jsonb, $4)
		RETURNING ` + insightColumns

	record, err := scanInsight(r.db.QueryRow(ctx, query,
		req.RecordingID, req.InsightType, []byte(req.Content), req.ProcessingStatus,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, insighterrors.NewConflictError(
				fmt.Sprintf("insight of type %s already exists for recording %s", req.InsightType, req.RecordingID))
		}

		return nil, fmt.Errorf("failed to create insight: %w", err)
	}

	return record, nil
}

// GetByType retrieves the insight of the given type for a recording.
// A missing record is a valid result and returns (nil, nil), not an error.
func (r *InsightsRepository) GetByType(ctx context.Context, recordingID uuid.UUID, insightType models.InsightType) (*models.InsightRecord, error) {
	query := `
		SELECT ` + insightColumns + `
		FROM insights
		WHERE recording_id = $1 AND insight_type = $2
	`

	record, err := scanInsight(r.db.QueryRow(ctx, query, recordingID, insightType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get insight: %w", err)
	}

	return record, nil
}

// UpdateStatus sets the processing status and bumps updated_at. The error
// message is stored only for failed status and cleared otherwise.
func (r *InsightsRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ProcessingStatus, errorMessage *string) (*models.InsightRecord, error) {
	query := `
		UPDATE insights
		SET processing_status = $2,
		    error_message = CASE WHEN $2 = 'failed' THEN $3 ELSE NULL END,
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + insightColumns

	record, err := scanInsight(r.db.QueryRow(ctx, query, id, status, errorMessage))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, insighterrors.NewNotFoundError("insight", "insight not found")
		}

		return nil, fmt.Errorf("failed to update insight status: %w", err)
	}

	return record, nil
}

// UpdateContent stores the content payload and forces processing_status to
// completed. It is the only path through which processing results become
// visible; it does not require the record to already be processing, so
// externally sourced content can jump straight to completed.
//
// The denormalized speakers_detected and utterances columns are refreshed
// from the payload's "speakers" and "utterances" keys when present, and kept
// as-is otherwise. A nil confidenceScore keeps the stored score.
func (r *InsightsRepository) UpdateContent(ctx context.Context, id uuid.UUID, content json.RawMessage, confidenceScore *float64) (*models.InsightRecord, error) {
	query := `
		UPDATE insights
		SET content = $2::jsonb,
		    confidence_score = COALESCE($3, confidence_score),
		    speakers_detected = COALESCE($2::jsonb -> 'speakers', speakers_detected),
		    utterances = COALESCE($2::jsonb -> 'utterances', utterances),
		    processing_status = 'completed',
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + insightColumns

	record, err := scanInsight(r.db.QueryRow(ctx, query, id, []byte(content), confidenceScore))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, insighterrors.NewNotFoundError("insight", "insight not found")
		}

		return nil, fmt.Errorf("failed to update insight content: %w", err)
	}

	return record, nil
}

// UpdateUtteranceSpeaker reassigns the speaker of a single utterance inside
// one transaction. The row is locked for the duration of the read-modify-write,
// so two concurrent edits to different indices of the same record cannot
// overwrite each other's array snapshot.
//
// A missing record or out-of-range index returns (nil, nil): a local,
// recoverable condition, not an error. The stored array is left untouched.
func (r *InsightsRepository) UpdateUtteranceSpeaker(ctx context.Context, id uuid.UUID, utteranceIndex, newSpeaker int, editorID uuid.UUID) (*models.InsightRecord, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var utterances []models.Utterance
	err = tx.QueryRow(ctx, `SELECT utterances FROM insights WHERE id = $1 FOR UPDATE`, id).Scan(&utterances)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read utterances: %w", err)
	}

	if utteranceIndex < 0 || utteranceIndex >= len(utterances) {
		return nil, nil
	}

	utterances[utteranceIndex].Speaker = newSpeaker

	query := `
		UPDATE insights
		SET utterances = $2,
		    is_manually_edited = TRUE,
		    last_edited_by_id = $3,
		    last_edited_at = now(),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + insightColumns

	record, err := scanInsight(tx.QueryRow(ctx, query, id, utterances, editorID))
	if err != nil {
		return nil, fmt.Errorf("failed to write utterances: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit utterance update: %w", err)
	}

	return record, nil
}

// UpdateSpeakerNames replaces the speaker index -> display name mapping.
// The mapping is independent of diarization output and editable post-hoc.
func (r *InsightsRepository) UpdateSpeakerNames(ctx context.Context, id uuid.UUID, names map[string]string, editorID uuid.UUID) (*models.InsightRecord, error) {
	query := `
		UPDATE insights
		SET speaker_names = $2,
		    is_manually_edited = TRUE,
		    last_edited_by_id = $3,
		    last_edited_at = now(),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + insightColumns

	record, err := scanInsight(r.db.QueryRow(ctx, query, id, names, editorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, insighterrors.NewNotFoundError("insight", "insight not found")
		}

		return nil, fmt.Errorf("failed to update speaker names: %w", err)
	}

	return record, nil
}

// UpdateWithEditTracking stores user-edited content and notes together with
// the manual-edit provenance fields. Only explicit user edits go through
// here; the pipeline itself never sets these fields.
func (r *InsightsRepository) UpdateWithEditTracking(ctx context.Context, id uuid.UUID, content json.RawMessage, userNotes *string, editorID uuid.UUID) (*models.InsightRecord, error) {
	query := `
		UPDATE insights
		SET content = $2::jsonb,
		    user_notes = COALESCE($3, user_notes),
		    is_manually_edited = TRUE,
		    last_edited_by_id = $4,
		    last_edited_at = now(),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + insightColumns

	record, err := scanInsight(r.db.QueryRow(ctx, query, id, []byte(content), userNotes, editorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, insighterrors.NewNotFoundError("insight", "insight not found")
		}

		return nil, fmt.Errorf("failed to update insight with edit tracking: %w", err)
	}

	return record, nil
}

// Delete removes an insight record.
func (r *InsightsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM insights WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete insight: %w", err)
	}

	if result.RowsAffected() == 0 {
		return insighterrors.NewNotFoundError("insight", "insight not found")
	}

	return nil
}
