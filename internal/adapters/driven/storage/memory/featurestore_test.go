package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lookalike/internal/core/domain"
)

func TestFeatureStore_SeedAndFetch(t *testing.T) {
	store := NewFeatureStore(
		domain.FeatureRow{ImageID: "b", Encoded: "[1]"},
		domain.FeatureRow{ImageID: "a", Encoded: "[2]"},
	)

	rows, err := store.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.FeatureRow{
		{ImageID: "b", Encoded: "[1]"},
		{ImageID: "a", Encoded: "[2]"},
	}, rows)
}

func TestFeatureStore_UpdateKeepsPosition(t *testing.T) {
	ctx := context.Background()
	store := NewFeatureStore(
		domain.FeatureRow{ImageID: "1", Encoded: "[1]"},
		domain.FeatureRow{ImageID: "2", Encoded: "[2]"},
	)

	require.NoError(t, store.Save(ctx, []domain.FeatureRow{{ImageID: "1", Encoded: "[9]"}}))

	rows, err := store.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", rows[0].ImageID)
	assert.Equal(t, "[9]", rows[0].Encoded)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, store.Close())
}

func TestFeatureStore_FetchAllReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewFeatureStore(domain.FeatureRow{ImageID: "1", Encoded: "[1]"})

	rows, _ := store.FetchAll(ctx)
	rows[0].Encoded = "changed"

	again, _ := store.FetchAll(ctx)
	assert.Equal(t, "[1]", again[0].Encoded)
}

func TestFeatureStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewFeatureStore()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Save(ctx, []domain.FeatureRow{{ImageID: string(rune('a' + i)), Encoded: "[1]"}})
		}()
		go func() {
			defer wg.Done()
			_, _ = store.FetchAll(ctx)
		}()
	}
	wg.Wait()

	n, _ := store.Count(ctx)
	assert.Equal(t, 20, n)
}
