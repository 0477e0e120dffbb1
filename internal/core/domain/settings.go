package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// StorageDriver identifies the database holding the feature table.
type StorageDriver string

// Available storage drivers.
const (
	// StorageDriverSQLite is an embedded SQLite database file.
	StorageDriverSQLite StorageDriver = "sqlite"

	// StorageDriverMySQL is a MySQL server, as used by the web tier.
	StorageDriverMySQL StorageDriver = "mysql"
)

// IsValid returns true if the storage driver is recognised.
func (d StorageDriver) IsValid() bool {
	switch d {
	case StorageDriverSQLite, StorageDriverMySQL:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (d StorageDriver) String() string {
	return string(d)
}

// EmbeddingProvider identifies the image embedding backend.
type EmbeddingProvider string

// Available embedding providers.
const (
	// EmbeddingProviderHistogram is the built-in colour histogram embedder.
	EmbeddingProviderHistogram EmbeddingProvider = "histogram"

	// EmbeddingProviderInference is a remote model server over HTTP.
	EmbeddingProviderInference EmbeddingProvider = "inference"
)

// IsValid returns true if the embedding provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case EmbeddingProviderHistogram, EmbeddingProviderInference:
		return true
	default:
		return false
	}
}

// IsLocal returns true if this provider runs in-process.
func (p EmbeddingProvider) IsLocal() bool {
	return p == EmbeddingProviderHistogram
}

// String returns the string representation.
func (p EmbeddingProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p EmbeddingProvider) Description() string {
	switch p {
	case EmbeddingProviderHistogram:
		return "Colour histogram (local)"
	case EmbeddingProviderInference:
		return "Model server (remote)"
	default:
		return unknownDescription
	}
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string

	// MaxUploadMB caps the size of a multipart request body.
	MaxUploadMB int
}

// StorageSettings configures the feature table.
type StorageSettings struct {
	// Driver selects the database.
	Driver StorageDriver

	// Path is the SQLite data directory. Empty means ~/.lookalike/data.
	Path string

	// DSN is the MySQL data source name.
	DSN string

	// Table is the feature table name.
	Table string
}

// EmbeddingSettings configures the image embedder.
type EmbeddingSettings struct {
	// Provider selects the embedder.
	Provider EmbeddingProvider

	// BaseURL is the model server URL (inference provider only).
	BaseURL string

	// Model is an informational model name sent to the model server.
	Model string

	// Timeout bounds a single embedding request.
	Timeout time.Duration

	// RequestsPerSecond throttles calls to the model server. Zero disables.
	RequestsPerSecond float64

	// Burst is the token bucket size for RequestsPerSecond.
	Burst int

	// Bins is the per-channel bucket count of the histogram embedder.
	Bins int
}

// IndexSettings configures index lifecycle behaviour.
type IndexSettings struct {
	// Dimension fixes the vector length. Zero infers it from the first
	// decodable row of each build.
	Dimension int

	// RebuildOnStart builds the index when the server starts.
	RebuildOnStart bool

	// RebuildInterval rebuilds periodically. Zero disables.
	RebuildInterval time.Duration

	// Watch rebuilds when the SQLite database changes on disk.
	Watch bool
}

// SearchSettings configures query behaviour.
type SearchSettings struct {
	// TopK is the default number of neighbours returned.
	TopK int
}

// ExtractionSettings configures batch feature extraction.
type ExtractionSettings struct {
	// Concurrency bounds parallel embedding calls within a batch.
	Concurrency int

	// Persist stores extracted vectors in the feature table.
	Persist bool
}

// LogSettings configures logging.
type LogSettings struct {
	// Level is one of debug, info, warn, error.
	Level string

	// Format is text or json.
	Format string

	// File is an optional log file path. Empty logs to stderr.
	File string
}

// Settings is the complete application configuration.
type Settings struct {
	Server     ServerSettings
	Storage    StorageSettings
	Embedding  EmbeddingSettings
	Index      IndexSettings
	Search     SearchSettings
	Extraction ExtractionSettings
	Log        LogSettings
}

// Default values.
const (
	DefaultAddr            = ":5000"
	DefaultMaxUploadMB     = 32
	DefaultTable           = "product_features"
	DefaultTopK            = 5
	DefaultHistogramBins   = 4
	DefaultEmbedTimeout    = 30 * time.Second
	DefaultEmbedBurst      = 1
	DefaultExtractWorkers  = 1
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	maxExtractConcurrency  = 64
	maxHistogramBins       = 16
	minHistogramBins       = 2
	defaultInferenceModel  = "efficientnet-b0"
	defaultInferenceSocket = "http://127.0.0.1:8501"
)

// DefaultSettings returns sensible defaults for a local deployment.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			Addr:        DefaultAddr,
			MaxUploadMB: DefaultMaxUploadMB,
		},
		Storage: StorageSettings{
			Driver: StorageDriverSQLite,
			Table:  DefaultTable,
		},
		Embedding: EmbeddingSettings{
			Provider: EmbeddingProviderHistogram,
			BaseURL:  defaultInferenceSocket,
			Model:    defaultInferenceModel,
			Timeout:  DefaultEmbedTimeout,
			Burst:    DefaultEmbedBurst,
			Bins:     DefaultHistogramBins,
		},
		Index: IndexSettings{
			RebuildOnStart: true,
		},
		Search: SearchSettings{
			TopK: DefaultTopK,
		},
		Extraction: ExtractionSettings{
			Concurrency: DefaultExtractWorkers,
		},
		Log: LogSettings{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Validate checks the settings for values that cannot work.
func (s *Settings) Validate() error {
	if !s.Storage.Driver.IsValid() {
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalidInput, s.Storage.Driver)
	}
	if s.Storage.Driver == StorageDriverMySQL && s.Storage.DSN == "" {
		return fmt.Errorf("%w: storage.dsn is required for mysql", ErrInvalidInput)
	}
	if s.Storage.Table == "" {
		return fmt.Errorf("%w: storage.table must not be empty", ErrInvalidInput)
	}
	if !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidInput, s.Embedding.Provider)
	}
	if s.Embedding.Provider == EmbeddingProviderInference && s.Embedding.BaseURL == "" {
		return fmt.Errorf("%w: embedding.base_url is required for the inference provider", ErrInvalidInput)
	}
	if s.Embedding.Bins < minHistogramBins || s.Embedding.Bins > maxHistogramBins {
		return fmt.Errorf("%w: embedding.bins must be between %d and %d", ErrInvalidInput, minHistogramBins, maxHistogramBins)
	}
	if s.Index.Dimension < 0 {
		return fmt.Errorf("%w: index.dimension must not be negative", ErrInvalidInput)
	}
	if s.Index.RebuildInterval < 0 {
		return fmt.Errorf("%w: index.rebuild_interval must not be negative", ErrInvalidInput)
	}
	if s.Search.TopK <= 0 {
		return fmt.Errorf("%w: search.top_k must be positive", ErrInvalidInput)
	}
	if s.Extraction.Concurrency <= 0 || s.Extraction.Concurrency > maxExtractConcurrency {
		return fmt.Errorf("%w: extraction.concurrency must be between 1 and %d", ErrInvalidInput, maxExtractConcurrency)
	}
	return nil
}
