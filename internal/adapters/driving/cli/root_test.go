package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lookalike/internal/core/domain"
	"github.com/custodia-labs/lookalike/internal/core/ports/driven"
)

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

type mockIndexService struct {
	mu       sync.Mutex
	result   *domain.RebuildResult
	err      error
	ready    bool
	rebuilds int
}

func (m *mockIndexService) Rebuild(context.Context) (*domain.RebuildResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rebuilds++
	if m.err != nil {
		return nil, m.err
	}
	m.ready = true
	return m.result, nil
}

func (m *mockIndexService) Current() (*driven.IndexSnapshot, error) {
	return nil, domain.ErrIndexNotReady
}

func (m *mockIndexService) Status(context.Context) domain.IndexStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.IndexStatus{Ready: m.ready}
}

type mockExtractionService struct {
	features map[string][]float32
	err      error
	got      domain.ExtractionBatch
}

func (m *mockExtractionService) ExtractBatch(_ context.Context, batch domain.ExtractionBatch) (map[string][]float32, error) {
	m.got = batch
	return m.features, m.err
}

type mockFeatureStore struct {
	saved []domain.FeatureRow
}

func (m *mockFeatureStore) FetchAll(context.Context) ([]domain.FeatureRow, error) {
	return m.saved, nil
}

func (m *mockFeatureStore) Save(_ context.Context, rows []domain.FeatureRow) error {
	m.saved = append(m.saved, rows...)
	return nil
}

func (m *mockFeatureStore) Count(context.Context) (int, error) { return len(m.saved), nil }

func (m *mockFeatureStore) Close() error { return nil }

type testServices struct {
	search     *mockSearchService
	index      *mockIndexService
	extraction *mockExtractionService
	features   *mockFeatureStore
	settings   *domain.Settings
}

// setupTestServices installs mock services and restores the previous
// package state on cleanup.
func setupTestServices() (*testServices, func()) {
	settings := domain.DefaultSettings()
	ts := &testServices{
		search:     &mockSearchService{ids: []string{"img-1", "img-2"}},
		index:      &mockIndexService{result: &domain.RebuildResult{Indexed: 3, Skipped: 1, Dimension: 4, Generation: 1}},
		extraction: &mockExtractionService{},
		features:   &mockFeatureStore{},
		settings:   &settings,
	}

	origBootstrap, origLoader, origServices := bootstrap, settingsLoader, services
	bootstrap = func(context.Context, string) (*Services, error) {
		return &Services{
			Settings:   ts.settings,
			Search:     ts.search,
			Index:      ts.index,
			Extraction: ts.extraction,
			Features:   ts.features,
		}, nil
	}
	settingsLoader = func(string) (*domain.Settings, string, error) {
		return ts.settings, "/tmp/lookalike/config.toml", nil
	}
	services = nil

	return ts, func() {
		bootstrap, settingsLoader, services = origBootstrap, origLoader, origServices
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("image-bytes"), 0600))
	return path
}
