package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lookalike/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Inspect configuration",
	Long:        `Show where configuration is read from and the effective settings.`,
	Annotations: map[string]string{skipBootstrapAnnotation: "true"},
	RunE:        runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Print the config file path",
	Annotations: map[string]string{skipBootstrapAnnotation: "true"},
	RunE:        runConfigPath,
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show effective settings",
	Long:        `Show defaults overlaid with the config file and LOOKALIKE_* environment variables.`,
	Annotations: map[string]string{skipBootstrapAnnotation: "true"},
	RunE:        runConfigShow,
}

func init() {
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func loadSettings() (*domain.Settings, string, error) {
	if settingsLoader == nil {
		return nil, "", errors.New("settings loader not configured")
	}
	return settingsLoader(configDir)
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	_, path, err := loadSettings()
	if err != nil {
		return err
	}
	cmd.Println(path)
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	settings, path, err := loadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	st := newStyles(cmd.OutOrStderr())
	cmd.Println(st.title.Render("Current Settings"))
	cmd.Println(st.muted.Render(path))
	cmd.Println()

	cmd.Println("[server]")
	cmd.Printf("  addr: %s\n", settings.Server.Addr)
	cmd.Printf("  max_upload_mb: %d\n", settings.Server.MaxUploadMB)
	cmd.Println()

	cmd.Println("[storage]")
	cmd.Printf("  driver: %s\n", settings.Storage.Driver)
	switch settings.Storage.Driver {
	case domain.StorageDriverMySQL:
		cmd.Printf("  dsn: %s\n", maskDSN(settings.Storage.DSN))
	default:
		cmd.Printf("  path: %s\n", orDefault(settings.Storage.Path, "(default)"))
	}
	cmd.Printf("  table: %s\n", settings.Storage.Table)
	cmd.Println()

	cmd.Println("[embedding]")
	cmd.Printf("  provider: %s\n", settings.Embedding.Provider.Description())
	if settings.Embedding.Provider.IsLocal() {
		cmd.Printf("  bins: %d\n", settings.Embedding.Bins)
	} else {
		cmd.Printf("  base_url: %s\n", settings.Embedding.BaseURL)
		cmd.Printf("  model: %s\n", settings.Embedding.Model)
		cmd.Printf("  timeout: %s\n", settings.Embedding.Timeout)
		if settings.Embedding.RequestsPerSecond > 0 {
			cmd.Printf("  requests_per_second: %g (burst %d)\n",
				settings.Embedding.RequestsPerSecond, settings.Embedding.Burst)
		}
	}
	cmd.Println()

	cmd.Println("[index]")
	cmd.Printf("  dimension: %s\n", orDefault(positive(settings.Index.Dimension), "(inferred)"))
	cmd.Printf("  rebuild_on_start: %t\n", settings.Index.RebuildOnStart)
	cmd.Printf("  rebuild_interval: %s\n", orDefault(durationString(settings.Index.RebuildInterval), "(disabled)"))
	cmd.Printf("  watch: %t\n", settings.Index.Watch)
	cmd.Println()

	cmd.Println("[search]")
	cmd.Printf("  top_k: %d\n", settings.Search.TopK)
	cmd.Println()

	cmd.Println("[extraction]")
	cmd.Printf("  concurrency: %d\n", settings.Extraction.Concurrency)
	cmd.Printf("  persist: %t\n", settings.Extraction.Persist)
	cmd.Println()

	cmd.Println("[log]")
	cmd.Printf("  level: %s\n", settings.Log.Level)
	cmd.Printf("  format: %s\n", settings.Log.Format)
	cmd.Printf("  file: %s\n", orDefault(settings.Log.File, "(stderr)"))
	return nil
}

// maskDSN hides the password in a user:pass@tcp(host)/db DSN.
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	userinfo := dsn[:at]
	colon := strings.Index(userinfo, ":")
	if colon < 0 {
		return dsn
	}
	return userinfo[:colon] + ":****" + dsn[at:]
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func positive(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprint(n)
}

func durationString(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	return d.String()
}
