package driving

import "github.com/custodia-labs/connectorctl/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, with environment overrides applied.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// AddRegistry appends a feed endpoint.
	AddRegistry(endpoint domain.RegistryEndpoint) error

	// RemoveRegistry removes the feed endpoint with uri.
	RemoveRegistry(uri string) error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// Path returns the settings file path.
	Path() string
}
