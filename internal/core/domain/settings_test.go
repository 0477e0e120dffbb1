package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestStorageDriver_IsValid tests valid and invalid storage drivers
func TestStorageDriver_IsValid(t *testing.T) {
	assert.True(t, StorageDriverSQLite.IsValid())
	assert.True(t, StorageDriverMySQL.IsValid())
	assert.False(t, StorageDriver("postgres").IsValid())
	assert.False(t, StorageDriver("").IsValid())
	assert.Equal(t, "sqlite", StorageDriverSQLite.String())
}

// TestEmbeddingProvider tests provider helpers
func TestEmbeddingProvider(t *testing.T) {
	tests := []struct {
		provider    EmbeddingProvider
		valid       bool
		local       bool
		description string
	}{
		{EmbeddingProviderHistogram, true, true, "Colour histogram (local)"},
		{EmbeddingProviderInference, true, false, "Model server (remote)"},
		{EmbeddingProvider("openai"), false, false, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.provider.String(), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.provider.IsValid())
			assert.Equal(t, tt.local, tt.provider.IsLocal())
			assert.Equal(t, tt.description, tt.provider.Description())
		})
	}
}

func TestDefaultSettings_AreValid(t *testing.T) {
	s := DefaultSettings()
	assert.NoError(t, s.Validate())
	assert.Equal(t, ":5000", s.Server.Addr)
	assert.Equal(t, 5, s.Search.TopK)
	assert.Equal(t, 1, s.Extraction.Concurrency)
	assert.True(t, s.Index.RebuildOnStart)
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"unknown driver", func(s *Settings) { s.Storage.Driver = "oracle" }},
		{"mysql needs dsn", func(s *Settings) { s.Storage.Driver = StorageDriverMySQL }},
		{"empty table", func(s *Settings) { s.Storage.Table = "" }},
		{"unknown provider", func(s *Settings) { s.Embedding.Provider = "clip" }},
		{"inference needs url", func(s *Settings) {
			s.Embedding.Provider = EmbeddingProviderInference
			s.Embedding.BaseURL = ""
		}},
		{"too few bins", func(s *Settings) { s.Embedding.Bins = 1 }},
		{"negative dimension", func(s *Settings) { s.Index.Dimension = -3 }},
		{"negative interval", func(s *Settings) { s.Index.RebuildInterval = -1 }},
		{"zero top k", func(s *Settings) { s.Search.TopK = 0 }},
		{"zero concurrency", func(s *Settings) { s.Extraction.Concurrency = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidInput)
		})
	}
}
