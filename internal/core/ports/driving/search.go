package driving

import (
	"context"

	"github.com/custodia-labs/lookalike/internal/core/domain"
)

// SearchService finds gallery images similar to a query image.
type SearchService interface {
	// SearchByImage returns the ids of the topK nearest gallery images,
	// nearest first. A non-positive topK uses the configured default.
	SearchByImage(ctx context.Context, image domain.Image, topK int) ([]string, error)
}
