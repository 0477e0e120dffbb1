package driving

import (
	"context"

	"github.com/custodia-labs/lookalike/internal/core/domain"
)

// ExtractionService turns batches of uploaded images into feature vectors.
type ExtractionService interface {
	// ExtractBatch returns a vector per image id. The batch fails as a
	// whole on the first image that cannot be processed.
	ExtractBatch(ctx context.Context, batch domain.ExtractionBatch) (map[string][]float32, error)
}
