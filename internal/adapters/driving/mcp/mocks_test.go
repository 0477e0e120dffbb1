package mcp

import (
	"context"

	"github.com/custodia-labs/lookalike/internal/core/domain"
	"github.com/custodia-labs/lookalike/internal/core/ports/driven"
	"github.com/custodia-labs/lookalike/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	ids      []string
	err      error
	gotImage domain.Image
	gotTopK  int
}

func (m *mockSearchService) SearchByImage(_ context.Context, image domain.Image, topK int) ([]string, error) {
	m.gotImage = image
	m.gotTopK = topK
	return m.ids, m.err
}

// mockIndexService is a mock implementation of driving.IndexService.
type mockIndexService struct {
	result *domain.RebuildResult
	err    error
	status domain.IndexStatus
}

func (m *mockIndexService) Rebuild(context.Context) (*domain.RebuildResult, error) {
	return m.result, m.err
}

func (m *mockIndexService) Current() (*driven.IndexSnapshot, error) {
	return nil, domain.ErrIndexNotReady
}

func (m *mockIndexService) Status(context.Context) domain.IndexStatus {
	return m.status
}

var (
	_ driving.SearchService = (*mockSearchService)(nil)
	_ driving.IndexService  = (*mockIndexService)(nil)
)
