package driving

import (
	"context"

	"github.com/custodia-labs/lookalike/internal/core/domain"
	"github.com/custodia-labs/lookalike/internal/core/ports/driven"
)

// IndexService manages the lifecycle of the in-memory index.
type IndexService interface {
	// Rebuild reloads the gallery and installs a new index.
	// On failure the current index stays in place.
	Rebuild(ctx context.Context) (*domain.RebuildResult, error)

	// Current returns the installed snapshot without waiting for rebuilds.
	Current() (*driven.IndexSnapshot, error)

	// Status reports the index state.
	Status(ctx context.Context) domain.IndexStatus
}
