package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/lookalike/internal/core/domain"
	"github.com/custodia-labs/lookalike/internal/core/ports/driven"
)

// mockRowSource returns a configurable set of rows.
type mockRowSource struct {
	mu    sync.Mutex
	rows  []domain.FeatureRow
	err   error
	calls atomic.Int32

	// gate, when set, blocks FetchAll until it is closed.
	gate    chan struct{}
	entered chan struct{}
}

func (m *mockRowSource) FetchAll(_ context.Context) ([]domain.FeatureRow, error) {
	m.calls.Add(1)
	if m.entered != nil {
		select {
		case m.entered <- struct{}{}:
		default:
		}
	}
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.FeatureRow(nil), m.rows...), nil
}

func (m *mockRowSource) set(rows []domain.FeatureRow, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = rows
	m.err = err
}

// mockFeatureStore records saved rows.
type mockFeatureStore struct {
	mockRowSource
	saved   []domain.FeatureRow
	saveErr error
}

func (m *mockFeatureStore) Save(_ context.Context, rows []domain.FeatureRow) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, rows...)
	return nil
}

func (m *mockFeatureStore) Count(_ context.Context) (int, error) {
	return len(m.saved), nil
}

func (m *mockFeatureStore) Close() error { return nil }

// failingBuilder always fails.
type failingBuilder struct{}

func (failingBuilder) Build(*domain.Gallery) (driven.VectorIndex, error) {
	return nil, errors.New("out of memory")
}

// mockEmbedder maps image bytes to vectors.
type mockEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	fail    map[string]error
	calls   []string
}

var errUndecodable = errors.New("cannot identify image file")

func (m *mockEmbedder) Embed(ctx context.Context, image []byte) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := string(image)
	m.mu.Lock()
	m.calls = append(m.calls, key)
	m.mu.Unlock()
	if err, ok := m.fail[key]; ok {
		return nil, err
	}
	if vec, ok := m.vectors[key]; ok {
		return vec, nil
	}
	return nil, fmt.Errorf("%w: %q", errUndecodable, key)
}

func (m *mockEmbedder) ModelName() string            { return "mock" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func rows(pairs ...string) []domain.FeatureRow {
	out := make([]domain.FeatureRow, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.FeatureRow{ImageID: pairs[i], Encoded: pairs[i+1]})
	}
	return out
}
