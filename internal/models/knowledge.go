package models

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeEntry is a project-scoped term/definition pair. The pipeline
// consumes entries read-only: terms become ASR vocabulary hints and the
// term+definition pairs form the correction reference context.
type KnowledgeEntry struct {
	ID             uuid.UUID `json:"id"`
	ProjectID      uuid.UUID `json:"project_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Term           string    `json:"term"`
	Definition     string    `json:"definition"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
