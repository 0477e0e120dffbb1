package driven

import (
	"time"

	"github.com/custodia-labs/lookalike/internal/core/domain"
)

// VectorIndex is an immutable nearest-neighbour snapshot over a gallery.
// Implementations must be safe for concurrent Search calls.
type VectorIndex interface {
	// Len returns the number of indexed vectors.
	Len() int

	// Dimension returns the vector length accepted by Search.
	Dimension() int

	// Search returns the min(k, Len()) nearest vectors to query by squared
	// Euclidean distance, ascending. Equal distances are ordered by
	// insertion position.
	Search(query []float32, k int) ([]VectorHit, error)
}

// VectorHit is one search result.
type VectorHit struct {
	// ImageID labels the matched vector.
	ImageID string

	// Distance is the squared Euclidean distance to the query.
	Distance float32

	// Position is the insertion position of the vector in the gallery.
	Position int
}

// IndexBuilder constructs a VectorIndex from a prepared gallery.
type IndexBuilder interface {
	// Build returns a new index over gallery. The gallery is not retained.
	Build(gallery *domain.Gallery) (VectorIndex, error)
}

// IndexSnapshot is one installed index with its build metadata.
// Snapshots are never modified after installation.
type IndexSnapshot struct {
	Index      VectorIndex
	Generation uint64
	BuiltAt    time.Time
	Skipped    int
}
