package httpapi

import (
	"context"
	"sync"

	"github.com/custodia-labs/lookalike/internal/core/domain"
	"github.com/custodia-labs/lookalike/internal/core/ports/driven"
)

type mockSearch struct {
	mu       sync.Mutex
	ids      []string
	err      error
	gotImage domain.Image
	gotTopK  int
}

func (m *mockSearch) SearchByImage(_ context.Context, image domain.Image, topK int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gotImage = image
	m.gotTopK = topK
	return m.ids, m.err
}

type mockIndex struct {
	result *domain.RebuildResult
	err    error
	status domain.IndexStatus
}

func (m *mockIndex) Rebuild(context.Context) (*domain.RebuildResult, error) {
	return m.result, m.err
}

func (m *mockIndex) Current() (*driven.IndexSnapshot, error) {
	return nil, domain.ErrIndexNotReady
}

func (m *mockIndex) Status(context.Context) domain.IndexStatus {
	return m.status
}

type mockExtraction struct {
	features map[string][]float32
	err      error
	got      domain.ExtractionBatch
}

func (m *mockExtraction) ExtractBatch(_ context.Context, batch domain.ExtractionBatch) (map[string][]float32, error) {
	m.got = batch
	return m.features, m.err
}
