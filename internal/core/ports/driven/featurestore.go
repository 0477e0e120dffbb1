package driven

import (
	"context"

	"github.com/custodia-labs/lookalike/internal/core/domain"
)

// FeatureRowSource reads the persisted gallery.
type FeatureRowSource interface {
	// FetchAll returns every row of the feature table in storage order.
	// Rows are returned as stored; decoding happens in the core.
	FetchAll(ctx context.Context) ([]domain.FeatureRow, error)
}

// FeatureStore is a FeatureRowSource that also accepts new rows.
type FeatureStore interface {
	FeatureRowSource

	// Save upserts one row per image id.
	Save(ctx context.Context, rows []domain.FeatureRow) error

	// Count returns the number of stored rows.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
