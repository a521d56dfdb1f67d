package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetscribe/insights/internal/models"
)

type countingKnowledgeSource struct {
	entries []models.KnowledgeEntry
	calls   int
}

func (c *countingKnowledgeSource) GetApplicableKnowledge(_ context.Context, _, _ uuid.UUID) ([]models.KnowledgeEntry, error) {
	c.calls++
	return c.entries, nil
}

func TestCachingKnowledgeSource(t *testing.T) {
	ctx := context.Background()
	projectID := uuid.Must(uuid.NewV7())
	orgID := uuid.Must(uuid.NewV7())
	entries := []models.KnowledgeEntry{{ID: uuid.Must(uuid.NewV7()), Term: "Kubernetes"}}

	t.Run("caches per project and organization", func(t *testing.T) {
		inner := &countingKnowledgeSource{entries: entries}
		source, err := NewCachingKnowledgeSource(inner, 8)
		require.NoError(t, err)

		for range 3 {
			got, err := source.GetApplicableKnowledge(ctx, projectID, orgID)
			require.NoError(t, err)
			assert.Equal(t, entries, got)
		}

		assert.Equal(t, 1, inner.calls)
	})

	t.Run("different scopes load separately", func(t *testing.T) {
		inner := &countingKnowledgeSource{entries: entries}
		source, err := NewCachingKnowledgeSource(inner, 8)
		require.NoError(t, err)

		_, err = source.GetApplicableKnowledge(ctx, projectID, orgID)
		require.NoError(t, err)
		_, err = source.GetApplicableKnowledge(ctx, uuid.Must(uuid.NewV7()), orgID)
		require.NoError(t, err)

		assert.Equal(t, 2, inner.calls)
	})
}
