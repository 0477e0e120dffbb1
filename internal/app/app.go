// Package app wires configuration, stores, embedders and services
// into the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/custodia-labs/lookalike/internal/adapters/driven/ai"
	"github.com/custodia-labs/lookalike/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lookalike/internal/adapters/driven/storage/mysql"
	"github.com/custodia-labs/lookalike/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/lookalike/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/lookalike/internal/adapters/driving/cli"
	"github.com/custodia-labs/lookalike/internal/core/domain"
	"github.com/custodia-labs/lookalike/internal/core/ports/driven"
	"github.com/custodia-labs/lookalike/internal/core/services"
	"github.com/custodia-labs/lookalike/internal/logger"
)

// logFallback receives log records once the log file is closed.
var logFallback io.Writer = os.Stderr

// logFileCloser points the logger back at logFallback before closing the
// file it was writing to.
type logFileCloser struct {
	*os.File
}

func (c logFileCloser) Close() error {
	logger.SetOutput(logFallback)
	return c.File.Close()
}

// LoadSettings resolves the effective settings and the config file path.
func LoadSettings(configDir string) (*domain.Settings, string, error) {
	store, err := openConfig(configDir)
	if err != nil {
		return nil, "", err
	}
	settings, err := services.LoadSettings(store)
	if err != nil {
		return nil, store.Path(), err
	}
	return settings, store.Path(), nil
}

// Bootstrap builds every service the commands use.
func Bootstrap(ctx context.Context, configDir string) (*cli.Services, error) {
	settings, configPath, err := LoadSettings(configDir)
	if err != nil {
		return nil, err
	}

	var closers []io.Closer
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i].Close())
		}
		return errors.Join(errs...)
	}

	logFile, err := configureLogging(settings.Log)
	if err != nil {
		return nil, err
	}
	if logFile != nil {
		closers = append(closers, logFileCloser{logFile})
	}

	features, dbPath, err := openFeatureStore(ctx, settings.Storage)
	if err != nil {
		_ = closeAll()
		return nil, err
	}
	closers = append(closers, features)

	embedder, err := ai.CreateEmbedder(&settings.Embedding)
	if err != nil {
		_ = closeAll()
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	closers = append(closers, embedder)
	if !settings.Embedding.Provider.IsLocal() {
		// The model server may come up later; requests fail until it does.
		if err := ai.ValidateEmbedder(ctx, embedder); err != nil {
			logger.Warn("%v", err)
		}
	}

	indexes := services.NewIndexManager(features, flat.NewBuilder(), settings.Index.Dimension)
	extraction := services.NewExtractionService(embedder, settings.Extraction.Concurrency)
	if settings.Extraction.Persist {
		extraction.SetFeatureSink(features)
	}

	svc := &cli.Services{
		Settings:     settings,
		ConfigPath:   configPath,
		Search:       services.NewSearchService(embedder, indexes, settings.Search.TopK),
		Index:        indexes,
		Extraction:   extraction,
		Features:     features,
		DatabasePath: dbPath,
		Close:        closeAll,
	}
	if settings.Index.RebuildInterval > 0 {
		svc.Scheduler = services.NewRebuildScheduler(settings.Index.RebuildInterval, indexes)
	}

	logger.Debug("Bootstrapped: storage=%s embedder=%s", settings.Storage.Driver, embedder.ModelName())
	return svc, nil
}

func openConfig(configDir string) (*file.ConfigStore, error) {
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}
	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	return store, nil
}

// openFeatureStore opens the configured feature table. The returned path
// is the SQLite database file, empty for MySQL.
func openFeatureStore(ctx context.Context, settings domain.StorageSettings) (driven.FeatureStore, string, error) {
	switch settings.Driver {
	case domain.StorageDriverMySQL:
		store, err := mysql.NewStore(ctx, settings.DSN, settings.Table)
		if err != nil {
			return nil, "", fmt.Errorf("open mysql feature store: %w", err)
		}
		return store, "", nil
	case domain.StorageDriverSQLite:
		store, err := sqlite.NewStore(settings.Path, settings.Table)
		if err != nil {
			return nil, "", fmt.Errorf("open sqlite feature store: %w", err)
		}
		return store, store.Path(), nil
	default:
		return nil, "", fmt.Errorf("%w: unknown storage driver %q", domain.ErrInvalidInput, settings.Driver)
	}
}

// configureLogging applies log settings. The returned file, if any, must
// be closed on exit.
func configureLogging(settings domain.LogSettings) (*os.File, error) {
	opts := logger.Options{
		Level:  settings.Level,
		Format: logger.Format(settings.Format),
	}
	var f *os.File
	if settings.File != "" {
		if err := os.MkdirAll(filepath.Dir(settings.File), 0700); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		var err error
		f, err = os.OpenFile(settings.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		opts.Output = f
	}
	logger.Configure(opts)
	return f, nil
}
