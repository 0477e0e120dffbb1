package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/lookalike/internal/core/domain"
	"github.com/custodia-labs/lookalike/internal/core/ports/driven"
)

// Ensure FeatureStore implements the interface.
var _ driven.FeatureStore = (*FeatureStore)(nil)

// FeatureStore is an in-memory implementation of driven.FeatureStore.
// Rows keep their first insertion position when updated.
type FeatureStore struct {
	mu    sync.RWMutex
	order []string
	rows  map[string]string
}

// NewFeatureStore creates a new in-memory feature store seeded with rows.
func NewFeatureStore(rows ...domain.FeatureRow) *FeatureStore {
	s := &FeatureStore{
		rows: make(map[string]string),
	}
	_ = s.Save(context.Background(), rows)
	return s
}

// FetchAll returns all rows in insertion order.
func (s *FeatureStore) FetchAll(_ context.Context) ([]domain.FeatureRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.FeatureRow, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, domain.FeatureRow{ImageID: id, Encoded: s.rows[id]})
	}
	return result, nil
}

// Save stores or updates rows.
func (s *FeatureStore) Save(_ context.Context, rows []domain.FeatureRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		if _, ok := s.rows[row.ImageID]; !ok {
			s.order = append(s.order, row.ImageID)
		}
		s.rows[row.ImageID] = row.Encoded
	}
	return nil
}

// Count returns the number of stored rows.
func (s *FeatureStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}

// Close is a no-op.
func (s *FeatureStore) Close() error {
	return nil
}
