package services

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/lookalike/internal/core/domain"
	"github.com/custodia-labs/lookalike/internal/core/ports/driven"
	"github.com/custodia-labs/lookalike/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// EnvPrefix prefixes environment overrides, e.g. LOOKALIKE_SERVER_ADDR.
const EnvPrefix = "LOOKALIKE_"

// Config keys for settings storage.
const (
	keyServerAddr        = "server.addr"
	keyServerMaxUploadMB = "server.max_upload_mb"
	keyStorageDriver     = "storage.driver"
	keyStoragePath       = "storage.path"
	keyStorageDSN        = "storage.dsn"
	keyStorageTable      = "storage.table"
	keyEmbedProvider     = "embedding.provider"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedModel        = "embedding.model"
	keyEmbedTimeout      = "embedding.timeout"
	keyEmbedRPS          = "embedding.requests_per_second"
	keyEmbedBurst        = "embedding.burst"
	keyEmbedBins         = "embedding.bins"
	keyIndexDimension    = "index.dimension"
	keyIndexOnStart      = "index.rebuild_on_start"
	keyIndexInterval     = "index.rebuild_interval"
	keyIndexWatch        = "index.watch"
	keySearchTopK        = "search.top_k"
	keyExtractWorkers    = "extraction.concurrency"
	keyExtractPersist    = "extraction.persist"
	keyLogLevel          = "log.level"
	keyLogFormat         = "log.format"
	keyLogFile           = "log.file"
)

var settingKeys = []string{
	keyServerAddr, keyServerMaxUploadMB,
	keyStorageDriver, keyStoragePath, keyStorageDSN, keyStorageTable,
	keyEmbedProvider, keyEmbedBaseURL, keyEmbedModel, keyEmbedTimeout,
	keyEmbedRPS, keyEmbedBurst, keyEmbedBins,
	keyIndexDimension, keyIndexOnStart, keyIndexInterval, keyIndexWatch,
	keySearchTopK,
	keyExtractWorkers, keyExtractPersist,
	keyLogLevel, keyLogFormat, keyLogFile,
}

// SettingsService reads settings from the config store and environment.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
// configStore may be nil, in which case only defaults and the environment apply.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
}

// LoadSettings is a shorthand for NewSettingsService(store).Get().
func LoadSettings(configStore driven.ConfigStore) (*domain.Settings, error) {
	return NewSettingsService(configStore).Get()
}

// Keys lists every recognised configuration key.
func (s *SettingsService) Keys() []string {
	return append([]string(nil), settingKeys...)
}

// EnvVar returns the environment variable overriding key.
func EnvVar(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Get returns the effective settings. Environment variables take
// precedence over the config file, which takes precedence over defaults.
func (s *SettingsService) Get() (*domain.Settings, error) {
	st := domain.DefaultSettings()
	r := &reader{s: s}

	r.readString(keyServerAddr, &st.Server.Addr)
	r.readInt(keyServerMaxUploadMB, &st.Server.MaxUploadMB)

	var driver string
	if r.readString(keyStorageDriver, &driver) {
		st.Storage.Driver = domain.StorageDriver(strings.ToLower(driver))
	}
	r.readString(keyStoragePath, &st.Storage.Path)
	r.readString(keyStorageDSN, &st.Storage.DSN)
	r.readString(keyStorageTable, &st.Storage.Table)

	var provider string
	if r.readString(keyEmbedProvider, &provider) {
		st.Embedding.Provider = domain.EmbeddingProvider(strings.ToLower(provider))
	}
	r.readString(keyEmbedBaseURL, &st.Embedding.BaseURL)
	r.readString(keyEmbedModel, &st.Embedding.Model)
	r.readDuration(keyEmbedTimeout, &st.Embedding.Timeout)
	r.readFloat(keyEmbedRPS, &st.Embedding.RequestsPerSecond)
	r.readInt(keyEmbedBurst, &st.Embedding.Burst)
	r.readInt(keyEmbedBins, &st.Embedding.Bins)

	r.readInt(keyIndexDimension, &st.Index.Dimension)
	r.readBool(keyIndexOnStart, &st.Index.RebuildOnStart)
	r.readDuration(keyIndexInterval, &st.Index.RebuildInterval)
	r.readBool(keyIndexWatch, &st.Index.Watch)

	r.readInt(keySearchTopK, &st.Search.TopK)

	r.readInt(keyExtractWorkers, &st.Extraction.Concurrency)
	r.readBool(keyExtractPersist, &st.Extraction.Persist)

	r.readString(keyLogLevel, &st.Log.Level)
	r.readString(keyLogFormat, &st.Log.Format)
	r.readString(keyLogFile, &st.Log.File)

	if r.err != nil {
		return nil, r.err
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return &st, nil
}

// lookup returns the raw value for key: the environment override if set,
// otherwise the config store value.
func (s *SettingsService) lookup(key string) (any, bool) {
	if s.getenv != nil {
		if v := s.getenv(EnvVar(key)); v != "" {
			return v, true
		}
	}
	if s.configStore == nil {
		return nil, false
	}
	return s.configStore.Get(key)
}

// reader applies typed values onto settings fields, keeping the first error.
type reader struct {
	s   *SettingsService
	err error
}

func (r *reader) fail(key string, val any, want string) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s: cannot use %v as %s", domain.ErrInvalidInput, key, val, want)
	}
}

func (r *reader) readString(key string, dst *string) bool {
	val, ok := r.s.lookup(key)
	if !ok {
		return false
	}
	str, ok := val.(string)
	if !ok {
		r.fail(key, val, "string")
		return false
	}
	*dst = str
	return true
}

func (r *reader) readInt(key string, dst *int) {
	val, ok := r.s.lookup(key)
	if !ok {
		return
	}
	switch v := val.(type) {
	case int64:
		*dst = int(v)
	case int:
		*dst = v
	case float64:
		if v != math.Trunc(v) {
			r.fail(key, val, "integer")
			return
		}
		*dst = int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			r.fail(key, val, "integer")
			return
		}
		*dst = n
	default:
		r.fail(key, val, "integer")
	}
}

func (r *reader) readFloat(key string, dst *float64) {
	val, ok := r.s.lookup(key)
	if !ok {
		return
	}
	switch v := val.(type) {
	case float64:
		*dst = v
	case int64:
		*dst = float64(v)
	case int:
		*dst = float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			r.fail(key, val, "number")
			return
		}
		*dst = f
	default:
		r.fail(key, val, "number")
	}
}

func (r *reader) readBool(key string, dst *bool) {
	val, ok := r.s.lookup(key)
	if !ok {
		return
	}
	switch v := val.(type) {
	case bool:
		*dst = v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			r.fail(key, val, "boolean")
			return
		}
		*dst = b
	default:
		r.fail(key, val, "boolean")
	}
}

// readDuration accepts Go duration strings ("90s", "10m") or whole seconds.
func (r *reader) readDuration(key string, dst *time.Duration) {
	val, ok := r.s.lookup(key)
	if !ok {
		return
	}
	switch v := val.(type) {
	case int64:
		*dst = time.Duration(v) * time.Second
	case int:
		*dst = time.Duration(v) * time.Second
	case string:
		v = strings.TrimSpace(v)
		if secs, err := strconv.Atoi(v); err == nil {
			*dst = time.Duration(secs) * time.Second
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			r.fail(key, val, "duration")
			return
		}
		*dst = d
	default:
		r.fail(key, val, "duration")
	}
}
