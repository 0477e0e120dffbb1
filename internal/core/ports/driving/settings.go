package driving

import "github.com/custodia-labs/lookalike/internal/core/domain"

// SettingsService resolves the effective application configuration.
type SettingsService interface {
	// Get returns defaults overlaid with the config file and environment.
	Get() (*domain.Settings, error)

	// Keys lists every recognised configuration key.
	Keys() []string
}
