package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/lookalike/internal/core/domain"
	"github.com/custodia-labs/lookalike/internal/core/ports/driven"
	"github.com/custodia-labs/lookalike/internal/core/ports/driving"
	"github.com/custodia-labs/lookalike/internal/logger"
)

// Ensure ExtractionService implements the interface.
var _ driving.ExtractionService = (*ExtractionService)(nil)

// ExtractionService embeds batches of uploaded images.
//
// A batch either succeeds as a whole or fails on the first image that
// cannot be processed; partial results are never returned.
type ExtractionService struct {
	embedder    driven.ImageEmbedder
	concurrency int
	sink        driven.FeatureStore
}

// NewExtractionService creates a new extraction service.
// concurrency bounds parallel embedding calls; values below 1 mean 1.
func NewExtractionService(embedder driven.ImageEmbedder, concurrency int) *ExtractionService {
	return &ExtractionService{
		embedder:    embedder,
		concurrency: max(concurrency, 1),
	}
}

// SetFeatureSink makes successful batches persist their vectors.
func (s *ExtractionService) SetFeatureSink(store driven.FeatureStore) {
	s.sink = store
}

// ExtractBatch returns one vector per image id.
//
// Images[i] is labelled IDs[i]. Items without image data are skipped and
// absent from the result. A count mismatch fails before any work starts.
// When an id repeats, the vector of its last image in batch order wins.
func (s *ExtractionService) ExtractBatch(
	ctx context.Context, batch domain.ExtractionBatch,
) (map[string][]float32, error) {
	logger.Section("Batch Extraction")

	if len(batch.Images) == 0 {
		return nil, fmt.Errorf("%w: no images provided", domain.ErrInvalidInput)
	}
	if len(batch.Images) != len(batch.IDs) {
		return nil, fmt.Errorf("%w: %d images but %d image ids",
			domain.ErrInvalidInput, len(batch.Images), len(batch.IDs))
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	// Each item writes only its own slot.
	vectors := make([][]float32, len(batch.Images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, image := range batch.Images {
		id := batch.IDs[i]
		if image.IsEmpty() {
			logger.Debug("Skipping empty upload for image %s", id)
			continue
		}
		// Stop scheduling once an earlier item has failed.
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			vec, err := s.embedder.Embed(gctx, image.Data)
			if err != nil {
				return &domain.ExtractionError{ImageID: id, Err: err}
			}
			vectors[i] = vec
			logger.Debug("Extracted %d features for image %s", len(vec), id)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Warn("Batch extraction aborted: %v", err)
		return nil, err
	}
	// A cancelled caller may have stopped scheduling without any item failing.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	features := make(map[string][]float32, len(batch.Images))
	for i, vec := range vectors {
		if vec != nil {
			features[batch.IDs[i]] = vec
		}
	}

	if s.sink != nil && len(features) > 0 {
		if err := s.persist(ctx, batch.IDs, features); err != nil {
			return nil, err
		}
	}

	logger.Info("Extracted features for %d of %d images", len(features), len(batch.Images))
	return features, nil
}

// persist saves rows in batch order.
func (s *ExtractionService) persist(ctx context.Context, ids []string, features map[string][]float32) error {
	rows := make([]domain.FeatureRow, 0, len(features))
	seen := make(map[string]bool, len(features))
	for _, id := range ids {
		vec, ok := features[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		rows = append(rows, domain.NewFeatureRow(id, vec))
	}
	if err := s.sink.Save(ctx, rows); err != nil {
		return fmt.Errorf("save features: %w", err)
	}
	logger.Debug("Persisted %d feature rows", len(rows))
	return nil
}
