// Package cli provides the lookalike command line interface.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lookalike/internal/core/domain"
	"github.com/custodia-labs/lookalike/internal/core/ports/driven"
	"github.com/custodia-labs/lookalike/internal/core/ports/driving"
	"github.com/custodia-labs/lookalike/internal/logger"
)

// Services holds everything commands need, built once per invocation.
type Services struct {
	// Settings is the effective configuration.
	Settings *domain.Settings

	// ConfigPath is the config file location.
	ConfigPath string

	Search     driving.SearchService
	Index      driving.IndexService
	Extraction driving.ExtractionService

	// Scheduler rebuilds periodically. Nil when disabled.
	Scheduler driving.Scheduler

	// Features is the feature table. Nil when storage is unavailable.
	Features driven.FeatureStore

	// DatabasePath is the SQLite file, empty for other drivers.
	DatabasePath string

	// Close releases stores and clients.
	Close func() error
}

// Bootstrap builds the services for the given config directory.
type Bootstrap func(ctx context.Context, configDir string) (*Services, error)

// SettingsLoader resolves the settings and config file path without
// opening stores or clients.
type SettingsLoader func(configDir string) (*domain.Settings, string, error)

var (
	version        = "dev"
	bootstrap      Bootstrap
	settingsLoader SettingsLoader
	services       *Services

	configDir string
	verbose   bool
)

// skipBootstrapAnnotation marks commands that run without services.
const skipBootstrapAnnotation = "lookalike/skip-bootstrap"

var rootCmd = &cobra.Command{
	Use:   "lookalike",
	Short: "Find visually similar product images",
	Long: `lookalike keeps an in-memory index of product image feature vectors
and answers "which stored images look most like this one" over HTTP, MCP
or the command line.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default ~/.lookalike)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap installs the service factory.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetSettingsLoader installs the settings loader used by config commands.
func SetSettingsLoader(l SettingsLoader) {
	settingsLoader = l
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	if verbose {
		logger.SetVerbose(true)
	}
	if cmd.Annotations[skipBootstrapAnnotation] == "true" || services != nil {
		return nil
	}
	if bootstrap == nil {
		return errors.New("services not configured")
	}

	svc, err := bootstrap(cmd.Context(), configDir)
	if err != nil {
		return err
	}
	services = svc
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if services == nil || services.Close == nil {
		return nil
	}
	err := services.Close()
	services = nil
	return err
}

func requireServices() (*Services, error) {
	if services == nil {
		return nil, errors.New("services not configured")
	}
	return services, nil
}
