package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meetscribe/insights/internal/models"
)

// KnowledgeRepository reads the terminology knowledge base. The pipeline is
// a read-only consumer; entry lifecycle belongs to the surrounding system.
type KnowledgeRepository struct {
	db *pgxpool.Pool
}

// NewKnowledgeRepository creates a new knowledge repository.
func NewKnowledgeRepository(db *pgxpool.Pool) *KnowledgeRepository {
	return &KnowledgeRepository{db: db}
}

// GetApplicableKnowledge returns all knowledge entries scoped to the given
// project and organization, oldest first.
func (r *KnowledgeRepository) GetApplicableKnowledge(ctx context.Context, projectID, organizationID uuid.UUID) ([]models.KnowledgeEntry, error) {
	query := `
		SELECT id, project_id, organization_id, term, definition, created_at, updated_at
		FROM knowledge_entries
		WHERE project_id = $1 AND organization_id = $2
		ORDER BY created_at
	`

	rows, err := r.db.Query(ctx, query, projectID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge entries: %w", err)
	}
	defer rows.Close()

	entries := []models.KnowledgeEntry{}
	for rows.Next() {
		var entry models.KnowledgeEntry
		err := rows.Scan(
			&entry.ID, &entry.ProjectID, &entry.OrganizationID,
			&entry.Term, &entry.Definition, &entry.CreatedAt, &entry.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan knowledge entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating knowledge entries: %w", err)
	}

	return entries, nil
}
