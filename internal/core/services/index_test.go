package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lookalike/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/lookalike/internal/core/domain"
)

func newManager(source *mockRowSource) *IndexManager {
	return NewIndexManager(source, flat.NewBuilder(), 0)
}

func searchIDs(t *testing.T, m *IndexManager, q []float32, k int) []string {
	t.Helper()
	snap, err := m.Current()
	require.NoError(t, err)
	hits, err := snap.Index.Search(q, k)
	require.NoError(t, err)
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ImageID
	}
	return ids
}

func TestIndexManager_CurrentBeforeRebuild(t *testing.T) {
	m := newManager(&mockRowSource{})

	_, err := m.Current()
	assert.ErrorIs(t, err, domain.ErrIndexNotReady)
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
	assert.False(t, m.IsReady())
	assert.False(t, m.Status(context.Background()).Ready)
}

func TestIndexManager_Rebuild(t *testing.T) {
	source := &mockRowSource{rows: rows(
		"1", "[0, 0]",
		"2", "[1, 0]",
		"3", "oops",
		"4", "[1, 0, 0]",
	)}
	m := newManager(source)

	result, err := m.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Indexed)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 2, result.Dimension)
	assert.Equal(t, uint64(1), result.Generation)

	status := m.Status(context.Background())
	assert.True(t, status.Ready)
	assert.Equal(t, 2, status.Size)
	assert.Equal(t, 2, status.Skipped)
	assert.Equal(t, uint64(1), status.Generation)
	assert.False(t, status.BuiltAt.IsZero())
	assert.Empty(t, status.LastError)

	assert.Equal(t, []string{"1", "2"}, searchIDs(t, m, []float32{0, 0}, 5))
}

func TestIndexManager_FailedRebuildKeepsPreviousIndex(t *testing.T) {
	source := &mockRowSource{rows: rows("a", "[0, 0]", "b", "[5, 5]")}
	m := newManager(source)
	_, err := m.Rebuild(context.Background())
	require.NoError(t, err)
	before, err := m.Current()
	require.NoError(t, err)

	t.Run("fetch error", func(t *testing.T) {
		source.set(nil, errors.New("connection refused"))
		_, err := m.Rebuild(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("empty source", func(t *testing.T) {
		source.set(nil, nil)
		_, err := m.Rebuild(context.Background())
		assert.ErrorIs(t, err, domain.ErrIndexEmpty)
	})

	t.Run("all rows malformed", func(t *testing.T) {
		source.set(rows("x", "{}", "y", "[null]", "z", `["1"]`), nil)
		_, err := m.Rebuild(context.Background())
		assert.ErrorIs(t, err, domain.ErrIndexEmpty)
	})

	after, err := m.Current()
	require.NoError(t, err)
	assert.Same(t, before, after)
	assert.Equal(t, []string{"a", "b"}, searchIDs(t, m, []float32{0, 0}, 2))

	status := m.Status(context.Background())
	assert.True(t, status.Ready)
	assert.Equal(t, uint64(1), status.Generation)
	assert.Contains(t, status.LastError, "no valid feature rows")
}

func TestIndexManager_BuildErrorKeepsPreviousIndex(t *testing.T) {
	source := &mockRowSource{rows: rows("a", "[1]")}
	m := newManager(source)
	_, err := m.Rebuild(context.Background())
	require.NoError(t, err)
	before, _ := m.Current()

	m.builder = failingBuilder{}
	_, err = m.Rebuild(context.Background())
	require.Error(t, err)

	after, _ := m.Current()
	assert.Same(t, before, after)
}

func TestIndexManager_EmptyFirstRebuildStaysNotReady(t *testing.T) {
	m := newManager(&mockRowSource{})

	_, err := m.Rebuild(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexEmpty)

	_, err = m.Current()
	assert.ErrorIs(t, err, domain.ErrIndexNotReady)
}

func TestIndexManager_RebuildIsIdempotent(t *testing.T) {
	source := &mockRowSource{rows: rows(
		"a", "[0, 0]", "b", "[1, 0]", "c", "[1, 0]", "d", "[3, 3]", "e", "bad",
	)}
	m := newManager(source)
	queries := [][]float32{{0, 0}, {1, 0}, {2, 2}, {9, 9}}

	_, err := m.Rebuild(context.Background())
	require.NoError(t, err)
	first := make([][]string, len(queries))
	for i, q := range queries {
		first[i] = searchIDs(t, m, q, 3)
	}

	result, err := m.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Generation)
	for i, q := range queries {
		assert.Equal(t, first[i], searchIDs(t, m, q, 3))
	}
}

func TestIndexManager_ConfiguredDimensionIsOrderIndependent(t *testing.T) {
	base := rows("short", "[1]", "a", "[0, 0]", "b", "[1, 1]", "long", "[1, 2, 3]")
	reversed := make([]domain.FeatureRow, len(base))
	for i, r := range base {
		reversed[len(base)-1-i] = r
	}

	for _, input := range [][]domain.FeatureRow{base, reversed} {
		m := NewIndexManager(&mockRowSource{rows: input}, flat.NewBuilder(), 2)
		result, err := m.Rebuild(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, result.Indexed)
		assert.Equal(t, 2, result.Skipped)
		assert.ElementsMatch(t, []string{"a", "b"}, searchIDs(t, m, []float32{0, 0}, 2))
	}
}

func TestIndexManager_ConcurrentRebuildsShareOneBuild(t *testing.T) {
	source := &mockRowSource{
		rows:    rows("a", "[1]"),
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	m := newManager(source)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]uint64, callers)
	errs := make([]error, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		r, err := m.Rebuild(context.Background())
		errs[0] = err
		if r != nil {
			results[0] = r.Generation
		}
	}()
	<-source.entered
	assert.True(t, m.Status(context.Background()).Rebuilding)

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := m.Rebuild(context.Background())
			errs[i] = err
			if r != nil {
				results[i] = r.Generation
			}
		}()
	}
	// Let the joiners reach the in-flight call before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(source.gate)
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, uint64(1), results[i])
	}
	assert.Equal(t, int32(1), source.calls.Load())
	assert.False(t, m.Status(context.Background()).Rebuilding)
}

func TestIndexManager_CancelledWaiterDoesNotCancelBuild(t *testing.T) {
	source := &mockRowSource{
		rows:    rows("a", "[1]"),
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	m := newManager(source)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.Rebuild(ctx)
		done <- err
	}()
	<-source.entered
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(source.gate)
	require.Eventually(t, m.IsReady, time.Second, 5*time.Millisecond)
}

func TestIndexManager_ReadersSeeWholeSnapshots(t *testing.T) {
	// Generation one labels every vector "old-*", generation two "new-*".
	oldRows := rows("old-0", "[0]", "old-1", "[1]", "old-2", "[2]")
	newRows := rows("new-0", "[0]", "new-1", "[1]", "new-2", "[2]", "new-3", "[3]")

	source := &mockRowSource{rows: oldRows}
	m := newManager(source)
	_, err := m.Rebuild(context.Background())
	require.NoError(t, err)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	var mixed sync.Once
	var sawMix bool

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap, err := m.Current()
				if err != nil {
					continue
				}
				hits, err := snap.Index.Search([]float32{0}, snap.Index.Len())
				if err != nil {
					continue
				}
				prefix := hits[0].ImageID[:3]
				for _, h := range hits {
					if h.ImageID[:3] != prefix {
						mixed.Do(func() { sawMix = true })
					}
				}
				if (prefix == "old" && len(hits) != 3) || (prefix == "new" && len(hits) != 4) {
					mixed.Do(func() { sawMix = true })
				}
			}
		}()
	}

	for i := range 50 {
		if i%2 == 0 {
			source.set(newRows, nil)
		} else {
			source.set(oldRows, nil)
		}
		_, err := m.Rebuild(context.Background())
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()

	assert.False(t, sawMix)
	assert.Equal(t, uint64(51), m.Status(context.Background()).Generation)
}

func TestIndexManager_PositionalPairingUnderPermutation(t *testing.T) {
	base := rows("a", "[0, 0]", "b", "[1, 0]", "c", "[0, 2]", "d", "[3, 3]")
	permutations := [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {2, 0, 3, 1}}

	for _, perm := range permutations {
		input := make([]domain.FeatureRow, len(perm))
		for i, p := range perm {
			input[i] = base[p]
		}
		m := newManager(&mockRowSource{rows: input})
		_, err := m.Rebuild(context.Background())
		require.NoError(t, err)

		// Every stored vector is its own nearest neighbour.
		for _, row := range base {
			vec, err := domain.DecodeVector(row.Encoded)
			require.NoError(t, err)
			assert.Equal(t, []string{row.ImageID}, searchIDs(t, m, vec, 1))
		}
	}
}
