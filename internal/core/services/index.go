package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/lookalike/internal/core/domain"
	"github.com/custodia-labs/lookalike/internal/core/ports/driven"
	"github.com/custodia-labs/lookalike/internal/core/ports/driving"
	"github.com/custodia-labs/lookalike/internal/logger"
)

// Ensure IndexManager implements the interface.
var _ driving.IndexService = (*IndexManager)(nil)

const rebuildKey = "rebuild"

// IndexManager owns the current index snapshot.
//
// Searches load the snapshot without locking. A rebuild prepares a complete
// replacement off to the side and installs it with a single pointer store,
// so readers see either the old index or the new one. Concurrent Rebuild
// calls share one in-flight build.
type IndexManager struct {
	source    driven.FeatureRowSource
	builder   driven.IndexBuilder
	dimension int

	current    atomic.Pointer[driven.IndexSnapshot]
	generation atomic.Uint64
	rebuilding atomic.Bool
	group      singleflight.Group

	mu      sync.Mutex
	lastErr error

	now func() time.Time
}

// NewIndexManager creates an index manager with no installed index.
// A positive dimension fixes the vector length of every build; zero infers
// it from the first decodable row.
func NewIndexManager(source driven.FeatureRowSource, builder driven.IndexBuilder, dimension int) *IndexManager {
	return &IndexManager{
		source:    source,
		builder:   builder,
		dimension: dimension,
		now:       time.Now,
	}
}

// Rebuild reloads all feature rows and installs a new index.
//
// If a rebuild is already running the call waits for it and returns its
// outcome. The shared build is not cancelled when one caller gives up; a
// caller whose context ends stops waiting and gets the context error.
func (m *IndexManager) Rebuild(ctx context.Context) (*domain.RebuildResult, error) {
	buildCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(rebuildKey, func() (any, error) {
		return m.rebuild(buildCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		result := *res.Val.(*domain.RebuildResult)
		if res.Shared {
			logger.Debug("Joined in-flight rebuild (generation %d)", result.Generation)
		}
		return &result, nil
	}
}

func (m *IndexManager) rebuild(ctx context.Context) (*domain.RebuildResult, error) {
	m.rebuilding.Store(true)
	defer m.rebuilding.Store(false)

	logger.Section("Index Rebuild")
	start := m.now()

	result, err := m.build(ctx, start)
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()

	if err != nil {
		logger.Warn("Index rebuild failed, keeping current index: %v", err)
		return nil, err
	}

	logger.Info("Index rebuilt: %d vectors (dim %d), %d rows skipped, generation %d in %s",
		result.Indexed, result.Dimension, result.Skipped, result.Generation, result.Duration)
	return result, nil
}

func (m *IndexManager) build(ctx context.Context, start time.Time) (*domain.RebuildResult, error) {
	rows, err := m.source.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feature rows: %w", err)
	}
	logger.Debug("Fetched %d feature rows", len(rows))

	gallery := domain.NewGallery(rows, m.dimension)
	for _, skipped := range gallery.Skipped {
		logger.Warn("Skipping row for image %s (%s): %s", skipped.ImageID, skipped.Reason, skipped.Detail)
	}
	if gallery.IsEmpty() {
		return nil, fmt.Errorf("%w: %d rows fetched, %d skipped", domain.ErrIndexEmpty, len(rows), len(gallery.Skipped))
	}

	index, err := m.builder.Build(gallery)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	builtAt := m.now()
	snapshot := &driven.IndexSnapshot{
		Index:      index,
		Generation: m.generation.Add(1),
		BuiltAt:    builtAt,
		Skipped:    len(gallery.Skipped),
	}
	m.current.Store(snapshot)

	return &domain.RebuildResult{
		Indexed:    index.Len(),
		Skipped:    snapshot.Skipped,
		Dimension:  index.Dimension(),
		Generation: snapshot.Generation,
		Duration:   builtAt.Sub(start),
	}, nil
}

// Current returns the installed snapshot. It never waits for a rebuild.
func (m *IndexManager) Current() (*driven.IndexSnapshot, error) {
	snapshot := m.current.Load()
	if snapshot == nil {
		return nil, domain.ErrIndexNotReady
	}
	return snapshot, nil
}

// Status reports the index state.
func (m *IndexManager) Status(_ context.Context) domain.IndexStatus {
	status := domain.IndexStatus{
		Rebuilding: m.rebuilding.Load(),
	}

	if snapshot := m.current.Load(); snapshot != nil {
		status.Ready = snapshot.Index.Len() > 0
		status.Size = snapshot.Index.Len()
		status.Dimension = snapshot.Index.Dimension()
		status.Generation = snapshot.Generation
		status.Skipped = snapshot.Skipped
		status.BuiltAt = snapshot.BuiltAt
	}

	m.mu.Lock()
	if m.lastErr != nil {
		status.LastError = m.lastErr.Error()
	}
	m.mu.Unlock()

	return status
}

// IsReady reports whether a non-empty index is installed.
func (m *IndexManager) IsReady() bool {
	snapshot, err := m.Current()
	return err == nil && snapshot.Index.Len() > 0
}

// currentIndex returns the installed index, or ErrIndexUnavailable when
// none is installed or it holds no vectors.
func currentIndex(indexes driving.IndexService) (driven.VectorIndex, error) {
	snapshot, err := indexes.Current()
	if err != nil {
		if errors.Is(err, domain.ErrIndexUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
	}
	if snapshot.Index.Len() == 0 {
		return nil, fmt.Errorf("%w: index is empty", domain.ErrIndexUnavailable)
	}
	return snapshot.Index, nil
}
