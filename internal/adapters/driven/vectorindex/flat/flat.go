// Package flat provides an exact brute-force vector index.
//
// The index is built once from a prepared gallery and never modified.
// All vectors live in one contiguous buffer and every search scans it.
package flat

import (
	"fmt"

	"github.com/custodia-labs/lookalike/internal/core/domain"
	"github.com/custodia-labs/lookalike/internal/core/ports/driven"
)

// Compile-time checks.
var (
	_ driven.VectorIndex  = (*Index)(nil)
	_ driven.IndexBuilder = Builder{}
)

// Builder builds flat indexes.
type Builder struct{}

// NewBuilder returns a flat index builder.
func NewBuilder() Builder {
	return Builder{}
}

// Build copies the gallery into a new Index.
func (Builder) Build(gallery *domain.Gallery) (driven.VectorIndex, error) {
	if gallery == nil {
		return nil, fmt.Errorf("%w: nil gallery", domain.ErrInvalidInput)
	}
	return New(gallery.IDs, gallery.Vectors, gallery.Dimension)
}

// Index is an immutable flat index. It is safe for concurrent use.
type Index struct {
	dim  int
	ids  []string
	data []float32 // row-major, len(ids)*dim
}

// New builds an index over vectors labelled by ids.
// ids[i] labels vectors[i]; every vector must have length dim.
func New(ids []string, vectors [][]float32, dim int) (*Index, error) {
	if len(ids) != len(vectors) {
		return nil, fmt.Errorf("%w: %d ids for %d vectors", domain.ErrInvalidInput, len(ids), len(vectors))
	}
	if len(vectors) > 0 && dim <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive", domain.ErrInvalidInput)
	}

	idx := &Index{
		dim:  dim,
		ids:  make([]string, len(ids)),
		data: make([]float32, 0, len(vectors)*dim),
	}
	copy(idx.ids, ids)

	for i, vec := range vectors {
		if len(vec) != dim {
			return nil, fmt.Errorf("%w: vector %d: %w", domain.ErrInvalidInput, i,
				&domain.DimensionMismatchError{Expected: dim, Actual: len(vec)})
		}
		idx.data = append(idx.data, vec...)
	}

	return idx, nil
}

// Len returns the number of indexed vectors.
func (x *Index) Len() int {
	return len(x.ids)
}

// Dimension returns the vector length.
func (x *Index) Dimension() int {
	return x.dim
}

// Search returns the min(k, Len()) nearest vectors by squared Euclidean
// distance. Ties are ordered by insertion position.
func (x *Index) Search(query []float32, k int) ([]driven.VectorHit, error) {
	if len(x.ids) == 0 {
		return nil, domain.ErrIndexUnavailable
	}
	if len(query) != x.dim {
		return nil, &domain.DimensionMismatchError{Expected: x.dim, Actual: len(query)}
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	k = min(k, len(x.ids))

	q := make(maxQueue, 0, k)
	for pos := range x.ids {
		row := x.data[pos*x.dim : (pos+1)*x.dim]
		q.offer(candidate{position: pos, distance: squaredL2(query, row)}, k)
	}

	ranked := q.drain()
	hits := make([]driven.VectorHit, len(ranked))
	for i, c := range ranked {
		hits[i] = driven.VectorHit{
			ImageID:  x.ids[c.position],
			Distance: c.distance,
			Position: c.position,
		}
	}
	return hits, nil
}

// squaredL2 assumes len(a) == len(b).
func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
