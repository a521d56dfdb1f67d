package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/meetscribe/insights/internal/models"
	"github.com/meetscribe/insights/pkg/cache"
)

// knowledgeKey identifies one applicable-knowledge lookup.
type knowledgeKey struct {
	projectID      uuid.UUID
	organizationID uuid.UUID
}

func (k knowledgeKey) String() string {
	return k.projectID.String() + "/" + k.organizationID.String()
}

// CachingKnowledgeSource caches applicable-knowledge lookups. The
// transcription pipeline hits the knowledge base once per recording for
// vocabulary hints; caching absorbs bursts of recordings from the same
// project. The correction worker reads the repository directly instead —
// there, a stale term list would produce corrections against entries the
// model never saw.
type CachingKnowledgeSource struct {
	inner KnowledgeSource
	cache *cache.LoaderCache[knowledgeKey, []models.KnowledgeEntry]
}

// NewCachingKnowledgeSource wraps inner with an LRU of maxEntries project scopes.
func NewCachingKnowledgeSource(inner KnowledgeSource, maxEntries int) (*CachingKnowledgeSource, error) {
	loaderCache, err := cache.NewLoaderCache[knowledgeKey, []models.KnowledgeEntry](
		maxEntries,
		func(k knowledgeKey) string { return k.String() },
	)
	if err != nil {
		return nil, err
	}

	return &CachingKnowledgeSource{inner: inner, cache: loaderCache}, nil
}

// GetApplicableKnowledge returns the cached entry list for the scope,
// loading it from the inner source on miss.
func (s *CachingKnowledgeSource) GetApplicableKnowledge(ctx context.Context, projectID, organizationID uuid.UUID) ([]models.KnowledgeEntry, error) {
	key := knowledgeKey{projectID: projectID, organizationID: organizationID}

	return s.cache.Get(ctx, key, func(ctx context.Context, k knowledgeKey) ([]models.KnowledgeEntry, error) {
		return s.inner.GetApplicableKnowledge(ctx, k.projectID, k.organizationID)
	})
}
