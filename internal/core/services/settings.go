package services

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/connectorctl/internal/core/domain"
	"github.com/custodia-labs/connectorctl/internal/core/ports/driven"
	"github.com/custodia-labs/connectorctl/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyConnectorPath     = "install.connector_path"
	keyConfigurationPath = "install.configuration_path"
	keyAutoDownload      = "install.auto_download"
	keyBinaryExtension   = "install.binary_extension"
	keyRequestsPerSecond = "registry.requests_per_second"
	keyVerbose           = "log.verbose"
	keyRegistries        = "registries"
)

// Environment variables that override stored settings.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	EnvConnectorPath     = "CONNECTORCTL_CONNECTOR_PATH"
	EnvConfigurationPath = "CONNECTORCTL_CONFIGURATION_PATH"
	EnvAutoDownload      = "CONNECTORCTL_AUTO_DOWNLOAD"
	EnvRegistryURI       = "CONNECTORCTL_REGISTRY_URI"
	EnvRegistryUser      = "CONNECTORCTL_REGISTRY_USER"
	EnvRegistryToken     = "CONNECTORCTL_REGISTRY_TOKEN"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	baseDir     string
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
// baseDir anchors default paths; environment overrides are read with os.LookupEnv.
func NewSettingsService(configStore driven.ConfigStore, baseDir string) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		baseDir:     baseDir,
		lookupEnv:   os.LookupEnv,
	}
}

// SetLookupEnv replaces the environment lookup. Used by tests.
func (s *SettingsService) SetLookupEnv(lookup func(string) (string, bool)) {
	s.lookupEnv = lookup
}

// Get retrieves current application settings.
// Stored values override defaults; environment variables override both.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	if s.configStore == nil {
		return nil, domain.ErrNotImplemented
	}

	defaults := s.GetDefaults()
	settings := &domain.AppSettings{
		Manager: domain.ManagerSettings{
			ConnectorPath:     s.getString(keyConnectorPath, defaults.Manager.ConnectorPath),
			ConfigurationPath: s.getString(keyConfigurationPath, defaults.Manager.ConfigurationPath),
			AutoDownload:      s.getBool(keyAutoDownload, defaults.Manager.AutoDownload),
			BinaryExtension:   s.getString(keyBinaryExtension, defaults.Manager.BinaryExtension),
		},
		RequestsPerSecond: s.getFloat(keyRequestsPerSecond, defaults.RequestsPerSecond),
		Verbose:           s.configStore.GetBool(keyVerbose),
	}

	registries, err := s.getRegistries()
	if err != nil {
		return nil, err
	}
	settings.Registries = registries

	if err := s.applyEnv(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if s.configStore == nil {
		return domain.ErrNotImplemented
	}

	if err := s.configStore.Set(keyConnectorPath, settings.Manager.ConnectorPath); err != nil {
		return fmt.Errorf("save connector_path: %w", err)
	}
	if err := s.configStore.Set(keyConfigurationPath, settings.Manager.ConfigurationPath); err != nil {
		return fmt.Errorf("save configuration_path: %w", err)
	}
	if err := s.configStore.Set(keyAutoDownload, settings.Manager.AutoDownload); err != nil {
		return fmt.Errorf("save auto_download: %w", err)
	}
	if err := s.configStore.Set(keyBinaryExtension, settings.Manager.BinaryExtension); err != nil {
		return fmt.Errorf("save binary_extension: %w", err)
	}
	if err := s.configStore.Set(keyRequestsPerSecond, settings.RequestsPerSecond); err != nil {
		return fmt.Errorf("save requests_per_second: %w", err)
	}
	if err := s.configStore.Set(keyVerbose, settings.Verbose); err != nil {
		return fmt.Errorf("save verbose: %w", err)
	}
	if err := s.saveRegistries(settings.Registries); err != nil {
		return err
	}

	return nil
}

// AddRegistry appends a feed endpoint. Adding a URI twice replaces the
// credentials of the existing endpoint.
func (s *SettingsService) AddRegistry(endpoint domain.RegistryEndpoint) error {
	if s.configStore == nil {
		return domain.ErrNotImplemented
	}
	if endpoint.URI == "" {
		return fmt.Errorf("registry uri is required: %w", domain.ErrInvalidInput)
	}

	registries, err := s.getRegistries()
	if err != nil {
		return err
	}

	i := slices.IndexFunc(registries, func(e domain.RegistryEndpoint) bool { return e.URI == endpoint.URI })
	if i >= 0 {
		registries[i] = endpoint
	} else {
		registries = append(registries, endpoint)
	}
	return s.saveRegistries(registries)
}

// RemoveRegistry removes the feed endpoint with uri.
func (s *SettingsService) RemoveRegistry(uri string) error {
	if s.configStore == nil {
		return domain.ErrNotImplemented
	}

	registries, err := s.getRegistries()
	if err != nil {
		return err
	}

	kept := slices.DeleteFunc(slices.Clone(registries), func(e domain.RegistryEndpoint) bool { return e.URI == uri })
	if len(kept) == len(registries) {
		return fmt.Errorf("registry %q is not configured: %w", uri, domain.ErrInvalidInput)
	}
	return s.saveRegistries(kept)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings(s.baseDir)
}

// Path returns the settings file path.
func (s *SettingsService) Path() string {
	if s.configStore == nil {
		return ""
	}
	return s.configStore.Path()
}

func (s *SettingsService) applyEnv(settings *domain.AppSettings) error {
	if v, ok := s.lookupEnv(EnvConnectorPath); ok && v != "" {
		settings.Manager.ConnectorPath = v
	}
	if v, ok := s.lookupEnv(EnvConfigurationPath); ok && v != "" {
		settings.Manager.ConfigurationPath = v
	}
	if v, ok := s.lookupEnv(EnvAutoDownload); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvAutoDownload, v, domain.ErrInvalidInput)
		}
		settings.Manager.AutoDownload = b
	}

	uri, _ := s.lookupEnv(EnvRegistryURI)
	if uri == "" {
		return nil
	}

	endpoint := domain.RegistryEndpoint{URI: uri}
	endpoint.User, _ = s.lookupEnv(EnvRegistryUser)
	endpoint.Token, _ = s.lookupEnv(EnvRegistryToken)

	// The environment endpoint is tried first.
	settings.Registries = slices.DeleteFunc(settings.Registries, func(e domain.RegistryEndpoint) bool {
		return strings.EqualFold(e.URI, uri)
	})
	settings.Registries = append([]domain.RegistryEndpoint{endpoint}, settings.Registries...)
	return nil
}

func (s *SettingsService) getRegistries() ([]domain.RegistryEndpoint, error) {
	tables := s.configStore.GetTables(keyRegistries)
	registries := make([]domain.RegistryEndpoint, 0, len(tables))
	for i, table := range tables {
		uri, _ := table["uri"].(string)
		if uri == "" {
			return nil, fmt.Errorf("registries[%d]: missing uri: %w", i, domain.ErrInvalidInput)
		}
		user, _ := table["user"].(string)
		token, _ := table["token"].(string)
		registries = append(registries, domain.RegistryEndpoint{URI: uri, User: user, Token: token})
	}
	return registries, nil
}

func (s *SettingsService) saveRegistries(registries []domain.RegistryEndpoint) error {
	tables := make([]map[string]any, 0, len(registries))
	for _, e := range registries {
		table := map[string]any{"uri": e.URI}
		if e.User != "" {
			table["user"] = e.User
		}
		if e.Token != "" {
			table["token"] = e.Token
		}
		tables = append(tables, table)
	}
	if err := s.configStore.Set(keyRegistries, tables); err != nil {
		return fmt.Errorf("save registries: %w", err)
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}
