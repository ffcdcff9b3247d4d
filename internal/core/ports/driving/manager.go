package driving

import (
	"context"
	"iter"

	"github.com/custodia-labs/connectorctl/internal/core/domain"
)

// AddOptions controls Add.
type AddOptions struct {
	// Name is the configuration name. Defaults to the connector id.
	Name string

	// Version to install. Defaults to the latest registry version.
	Version string

	// Prerelease includes prerelease versions when resolving.
	Prerelease bool

	// Force replaces an existing configuration entry and install directory.
	Force bool
}

// UpdateOptions controls Update.
type UpdateOptions struct {
	// Version to update to. Defaults to the latest registry version.
	Version string

	// Prerelease includes prerelease versions when resolving.
	Prerelease bool
}

// ConnectorManager manages the lifecycle of installed connectors.
type ConnectorManager interface {
	// Add installs id and registers it under a configuration name.
	Add(ctx context.Context, id string, opts AddOptions) (domain.ConnectorSettings, error)

	// Update moves the entry at name to another registry version.
	Update(ctx context.Context, name string, opts UpdateOptions) (domain.UpdateResult, domain.ConnectorSettings, error)

	// Remove deletes the entry at name and, unless configurationOnly,
	// its install directory.
	Remove(ctx context.Context, name string, configurationOnly bool) error

	// List loads every entry whose name matches pattern (a glob, empty for all).
	// Entries that fail to load are logged and skipped. Each iteration
	// re-reads the configuration.
	List(ctx context.Context, pattern string) (iter.Seq[domain.ConnectorData], error)

	// Verify checks every entry's install, repairing missing installs when
	// auto-download is enabled.
	Verify(ctx context.Context) (*domain.VerifyReport, error)

	// Find searches the registry. It does not touch the configuration.
	Find(ctx context.Context, search string, prerelease bool) ([]domain.ConnectorMetadata, error)

	// Versions lists the registry versions of id in ascending order.
	Versions(ctx context.Context, id string, prerelease bool) ([]string, error)

	// Configurations returns every configuration entry keyed by name.
	Configurations() map[string]domain.ConnectorSettings

	// SetEnabled sets the enable flag of the entry at name.
	SetEnabled(ctx context.Context, name string, enable bool) error

	// SetSettings replaces the settings blob of the entry at name.
	SetSettings(ctx context.Context, name string, settings map[string]any) error

	// GetEnabledConnectors verifies the installation and returns the loaded,
	// enabled connectors. Two enabled entries sharing an id is an error.
	GetEnabledConnectors(ctx context.Context) ([]domain.ConnectorData, error)

	// Populate seeds an empty configuration with the latest version of every
	// registry connector. It returns the number of entries added.
	Populate(ctx context.Context, prerelease bool) (int, error)
}
