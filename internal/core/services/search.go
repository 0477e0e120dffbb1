package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/lookalike/internal/core/domain"
	"github.com/custodia-labs/lookalike/internal/core/ports/driven"
	"github.com/custodia-labs/lookalike/internal/core/ports/driving"
	"github.com/custodia-labs/lookalike/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchService finds gallery images similar to an uploaded image.
type SearchService struct {
	embedder    driven.ImageEmbedder
	indexes     driving.IndexService
	defaultTopK int
}

// NewSearchService creates a new search service.
// A non-positive defaultTopK falls back to domain.DefaultTopK.
func NewSearchService(embedder driven.ImageEmbedder, indexes driving.IndexService, defaultTopK int) *SearchService {
	if defaultTopK <= 0 {
		defaultTopK = domain.DefaultTopK
	}
	return &SearchService{
		embedder:    embedder,
		indexes:     indexes,
		defaultTopK: defaultTopK,
	}
}

// SearchByImage embeds image and returns the ids of its nearest gallery
// images, nearest first.
func (s *SearchService) SearchByImage(ctx context.Context, image domain.Image, topK int) ([]string, error) {
	logger.Section("Search Execution")

	if image.IsEmpty() {
		return nil, fmt.Errorf("%w: no image provided", domain.ErrInvalidInput)
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if topK <= 0 {
		topK = s.defaultTopK
	}

	query, err := s.embedder.Embed(ctx, image.Data)
	if err != nil {
		logger.Warn("Embedding query image %q failed: %v", image.Filename, err)
		return nil, &domain.ExtractionError{Err: err}
	}
	logger.Debug("Query embedded: %d dimensions (%s)", len(query), s.embedder.ModelName())

	index, err := currentIndex(s.indexes)
	if err != nil {
		return nil, err
	}

	k := min(topK, index.Len())
	hits, err := index.Search(query, k)
	if err != nil {
		if errors.Is(err, domain.ErrDimensionMismatch) {
			// The model and the stored gallery disagree.
			return nil, &domain.ExtractionError{Err: err}
		}
		return nil, fmt.Errorf("search index: %w", err)
	}

	ids := make([]string, len(hits))
	for i, hit := range hits {
		ids[i] = hit.ImageID
		logger.Debug("  %d. %s (distance %.6f)", i+1, hit.ImageID, hit.Distance)
	}
	return ids, nil
}
