package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/custodia-labs/connectorctl/internal/core/domain"
	"github.com/custodia-labs/connectorctl/internal/core/ports/driven"
	"github.com/custodia-labs/connectorctl/internal/core/ports/driving"
	"github.com/custodia-labs/connectorctl/internal/logger"
)

// Ensure ConnectorManager implements the interface.
var _ driving.ConnectorManager = (*ConnectorManager)(nil)

// ConnectorManager installs, updates, removes and loads connectors.
//
// The configuration entry is always written last, after a successful extract,
// so a failed install never leaves a configuration entry pointing at it.
type ConnectorManager struct {
	settings      domain.ManagerSettings
	registry      driven.ConnectorRegistry
	configuration driven.ConnectorConfiguration
	loader        driven.Loader
}

// NewConnectorManager creates a new connector manager.
func NewConnectorManager(
	settings domain.ManagerSettings,
	registry driven.ConnectorRegistry,
	configuration driven.ConnectorConfiguration,
	loader driven.Loader,
) *ConnectorManager {
	return &ConnectorManager{
		settings:      settings,
		registry:      registry,
		configuration: configuration,
		loader:        loader,
	}
}

// Settings returns the manager settings.
func (m *ConnectorManager) Settings() domain.ManagerSettings {
	return m.settings
}

// Add installs id and registers it under a configuration name.
func (m *ConnectorManager) Add(ctx context.Context, id string, opts driving.AddOptions) (domain.ConnectorSettings, error) {
	if m.registry == nil || m.configuration == nil {
		return domain.ConnectorSettings{}, domain.ErrNotImplemented
	}
	if id == "" {
		return domain.ConnectorSettings{}, fmt.Errorf("connector id is required: %w", domain.ErrInvalidInput)
	}

	version, err := m.resolveVersion(ctx, id, opts.Version, opts.Prerelease)
	if err != nil {
		return domain.ConnectorSettings{}, err
	}

	name := opts.Name
	if name == "" {
		name = id
	}

	if m.configuration.Contains(name) {
		if !opts.Force {
			return domain.ConnectorSettings{}, fmt.Errorf(
				"connector configuration '%s': %w, use --force to overwrite", name, domain.ErrAlreadyExists)
		}
		if _, err := m.configuration.Remove(ctx, name); err != nil {
			return domain.ConnectorSettings{}, fmt.Errorf("remove configuration '%s': %w", name, err)
		}
		logger.Debug("Removed '%s' from connector configuration", name)
	}

	metadata, err := m.install(ctx, id, version, opts.Force)
	if err != nil {
		return domain.ConnectorSettings{}, err
	}

	settings := domain.NewConnectorSettings(metadata.ID, metadata.Version)
	if err := m.configuration.Add(ctx, name, settings); err != nil {
		return domain.ConnectorSettings{}, fmt.Errorf("add configuration '%s': %w", name, err)
	}

	logger.Info("Successfully installed connector '%s' - '%s'", metadata.ID, metadata.Version)
	return settings, nil
}

// Update moves the entry at name to another registry version.
func (m *ConnectorManager) Update(
	ctx context.Context,
	name string,
	opts driving.UpdateOptions,
) (domain.UpdateResult, domain.ConnectorSettings, error) {
	if m.registry == nil || m.configuration == nil {
		return "", domain.ConnectorSettings{}, domain.ErrNotImplemented
	}

	current, ok := m.configuration.TryGet(name)
	if !ok {
		return "", domain.ConnectorSettings{}, fmt.Errorf(
			"connector configuration '%s' does not exist, to install use add: %w", name, domain.ErrConfigurationNotFound)
	}

	if opts.Version != "" && strings.EqualFold(current.Version, opts.Version) {
		logger.Info("Connector configuration '%s' already has version '%s'", name, current.Version)
		return domain.UpdateResultAlreadyAtVersion, current, nil
	}

	version, err := m.resolveVersion(ctx, current.ID, opts.Version, opts.Prerelease)
	if err != nil {
		return "", current, err
	}

	if strings.EqualFold(current.Version, version) {
		logger.Info("Connector configuration '%s' already has the latest version '%s' installed", name, current.Version)
		return domain.UpdateResultAlreadyLatest, current, nil
	}

	metadata, err := m.install(ctx, current.ID, version, false)
	if err != nil {
		return "", current, err
	}

	updated := current.WithVersion(metadata.Version)
	if err := m.configuration.Set(ctx, name, updated); err != nil {
		return "", current, fmt.Errorf("update configuration '%s': %w", name, err)
	}

	logger.Info("Connector configuration '%s' successfully updated to '%s'", name, metadata.Version)
	return domain.UpdateResultUpdated, updated, nil
}

// Remove deletes the entry at name and, unless configurationOnly, its install
// directory. A missing install directory is logged as a warning.
func (m *ConnectorManager) Remove(ctx context.Context, name string, configurationOnly bool) error {
	if m.configuration == nil {
		return domain.ErrNotImplemented
	}

	current, ok := m.configuration.TryGet(name)
	if !ok {
		return fmt.Errorf("connector configuration '%s': %w", name, domain.ErrConfigurationNotFound)
	}

	if !configurationOnly {
		dir := m.settings.InstallPath(current.ID, current.Version)
		if err := removeDir(dir); err != nil {
			if !errors.Is(err, domain.ErrDirectoryNotFound) {
				return err
			}
			logger.Warn("Connector directory '%s' not found", dir)
		}
	}

	if _, err := m.configuration.Remove(ctx, name); err != nil {
		return fmt.Errorf("remove configuration '%s': %w", name, err)
	}

	logger.Debug("Connector configuration '%s' removed", name)
	return nil
}

// List loads every entry whose name matches pattern.
// The returned sequence re-reads the configuration each time it is ranged over.
func (m *ConnectorManager) List(ctx context.Context, pattern string) (iter.Seq[domain.ConnectorData], error) {
	if m.configuration == nil || m.loader == nil {
		return nil, domain.ErrNotImplemented
	}

	var filter glob.Glob
	if pattern != "" {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid name filter %q: %w", pattern, domain.ErrInvalidInput)
		}
		filter = g
	}

	return func(yield func(domain.ConnectorData) bool) {
		for _, name := range m.configuration.Keys() {
			if ctx.Err() != nil {
				return
			}
			if filter != nil && !filter.Match(name) {
				continue
			}

			settings, ok := m.configuration.TryGet(name)
			if !ok {
				continue
			}

			path := m.settings.BinaryPath(settings.ID, settings.Version)
			module, err := m.loader.Load(ctx, path)
			if err != nil {
				logger.Error("Failed to load connector configuration '%s' from '%s': %v",
					name, m.settings.InstallPath(settings.ID, settings.Version), err)
				continue
			}

			if !yield(domain.ConnectorData{Name: name, Settings: settings, Module: module}) {
				return
			}
		}
	}, nil
}

// Verify checks that every entry's install directory and binary exist.
// Missing installs are downloaded when auto-download is enabled; a directory
// without its binary is reported and never repaired.
func (m *ConnectorManager) Verify(ctx context.Context) (*domain.VerifyReport, error) {
	if m.configuration == nil {
		return nil, domain.ErrNotImplemented
	}

	report := &domain.VerifyReport{}
	for _, name := range m.configuration.Keys() {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		settings, ok := m.configuration.TryGet(name)
		if !ok {
			continue
		}

		logger.Debug("Checking connector configuration '%s'", name)
		entry := m.verifyEntry(ctx, name, settings)
		if entry.Status == domain.VerifyStatusRepairFailed && ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Entries = append(report.Entries, entry)
	}

	return report, nil
}

func (m *ConnectorManager) verifyEntry(ctx context.Context, name string, settings domain.ConnectorSettings) domain.VerifyEntry {
	entry := domain.VerifyEntry{Name: name, Settings: settings}
	dir := m.settings.InstallPath(settings.ID, settings.Version)
	binary := m.settings.BinaryPath(settings.ID, settings.Version)

	if dirExists(dir) {
		if fileExists(binary) {
			logger.Debug("Verified connector '%s' binary exists: %s", settings.ID, binary)
			entry.Status = domain.VerifyStatusOK
			return entry
		}
		logger.Error("Configuration '%s' connector binary missing: %s", name, binary)
		entry.Status = domain.VerifyStatusMissingBinary
		entry.Err = fmt.Errorf("%s: %w", binary, domain.ErrPartialInstall)
		return entry
	}

	if !m.settings.AutoDownload {
		logger.Error("Configuration '%s' installation path missing: %s", name, dir)
		entry.Status = domain.VerifyStatusMissingDirectory
		entry.Err = fmt.Errorf("%s: %w", dir, domain.ErrInstallationMissing)
		return entry
	}

	if m.registry == nil {
		entry.Status = domain.VerifyStatusRepairFailed
		entry.Err = domain.ErrNotImplemented
		return entry
	}

	if _, err := m.install(ctx, settings.ID, settings.Version, false); err != nil {
		logger.Error("Configuration '%s' could not be installed: %v", name, err)
		entry.Status = domain.VerifyStatusRepairFailed
		entry.Err = err
		return entry
	}

	entry.Status = domain.VerifyStatusRepaired
	return entry
}

// Find searches the registry.
func (m *ConnectorManager) Find(ctx context.Context, search string, prerelease bool) ([]domain.ConnectorMetadata, error) {
	if m.registry == nil {
		return nil, domain.ErrNotImplemented
	}
	return m.registry.Find(ctx, search, prerelease)
}

// Versions lists the registry versions of id.
func (m *ConnectorManager) Versions(ctx context.Context, id string, prerelease bool) ([]string, error) {
	if m.registry == nil {
		return nil, domain.ErrNotImplemented
	}
	return m.registry.GetVersions(ctx, id, prerelease)
}

// Configurations returns every configuration entry keyed by name.
func (m *ConnectorManager) Configurations() map[string]domain.ConnectorSettings {
	if m.configuration == nil {
		return map[string]domain.ConnectorSettings{}
	}
	return m.configuration.Settings()
}

// SetEnabled sets the enable flag of the entry at name.
func (m *ConnectorManager) SetEnabled(ctx context.Context, name string, enable bool) error {
	if m.configuration == nil {
		return domain.ErrNotImplemented
	}
	current, err := m.configuration.Get(name)
	if err != nil {
		return err
	}
	return m.configuration.Set(ctx, name, current.WithEnable(enable))
}

// SetSettings replaces the settings blob of the entry at name.
func (m *ConnectorManager) SetSettings(ctx context.Context, name string, settings map[string]any) error {
	if m.configuration == nil {
		return domain.ErrNotImplemented
	}
	current, err := m.configuration.Get(name)
	if err != nil {
		return err
	}
	return m.configuration.Set(ctx, name, current.WithSettings(settings))
}

// GetEnabledConnectors verifies the installation and returns the loaded,
// enabled connectors.
func (m *ConnectorManager) GetEnabledConnectors(ctx context.Context) ([]domain.ConnectorData, error) {
	report, err := m.Verify(ctx)
	if err != nil {
		return nil, err
	}
	if !report.OK() {
		return nil, fmt.Errorf("%w: %d of %d entries failed",
			domain.ErrVerificationFailed, len(report.Failed()), len(report.Entries))
	}

	seq, err := m.List(ctx, "")
	if err != nil {
		return nil, err
	}

	var enabled []domain.ConnectorData
	seen := make(map[string]string)
	for data := range seq {
		if !data.Settings.Enable {
			continue
		}
		if other, ok := seen[data.Settings.ID]; ok {
			return nil, fmt.Errorf("%w: '%s' is used by '%s' and '%s'",
				domain.ErrDuplicateConnectorID, data.Settings.ID, other, data.Name)
		}
		seen[data.Settings.ID] = data.Name
		enabled = append(enabled, data)
	}
	return enabled, ctx.Err()
}

// Populate seeds an empty configuration with the latest version of every
// registry connector, keyed by id. Nothing is installed; Verify does that.
func (m *ConnectorManager) Populate(ctx context.Context, prerelease bool) (int, error) {
	if m.registry == nil || m.configuration == nil {
		return 0, domain.ErrNotImplemented
	}
	if m.configuration.Count() > 0 {
		return 0, nil
	}

	found, err := m.registry.Find(ctx, "", prerelease)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, metadata := range found {
		if m.configuration.Contains(metadata.ID) {
			continue
		}
		if err := m.configuration.Add(ctx, metadata.ID, domain.NewConnectorSettings(metadata.ID, metadata.Version)); err != nil {
			return added, fmt.Errorf("add configuration '%s': %w", metadata.ID, err)
		}
		added++
	}
	return added, nil
}

// resolveVersion returns the version to install: the latest registry version
// when version is empty, otherwise the registry's spelling of version.
func (m *ConnectorManager) resolveVersion(ctx context.Context, id, version string, prerelease bool) (string, error) {
	versions, err := m.registry.GetVersions(ctx, id, prerelease)
	if err != nil {
		return "", err
	}

	if len(versions) == 0 {
		logger.Debug("Could not find connector '%s' in the registry", id)
		return "", fmt.Errorf("connector '%s': %w", id, domain.ErrConnectorNotFound)
	}

	if version == "" {
		return versions[len(versions)-1], nil
	}

	i := slices.IndexFunc(versions, func(v string) bool { return strings.EqualFold(v, version) })
	if i < 0 {
		return "", fmt.Errorf("connector '%s' version '%s': %w", id, version, domain.ErrVersionNotFound)
	}
	return versions[i], nil
}

// install downloads id at version and extracts it to its install path.
// An existing directory is an error unless force is set, in which case it is
// deleted first.
func (m *ConnectorManager) install(ctx context.Context, id, version string, force bool) (domain.ConnectorMetadata, error) {
	dir := m.settings.InstallPath(id, version)
	if err := prepareDir(dir, force); err != nil {
		return domain.ConnectorMetadata{}, err
	}

	logger.Debug("Installing connector %s - %s to: %s", id, version, dir)

	pkg, err := m.registry.GetPackage(ctx, id, version)
	if err != nil {
		return domain.ConnectorMetadata{}, err
	}
	defer pkg.Close()

	metadata := pkg.Metadata()

	// The registry reports canonical casing; install where Verify and List will look.
	if canonical := m.settings.InstallPath(metadata.ID, metadata.Version); canonical != dir {
		dir = canonical
		if err := prepareDir(dir, force); err != nil {
			return domain.ConnectorMetadata{}, err
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.ConnectorMetadata{}, fmt.Errorf("create install directory: %w", err)
	}
	if err := pkg.Extract(ctx, dir); err != nil {
		return domain.ConnectorMetadata{}, fmt.Errorf("extract %s: %w", metadata, err)
	}

	logger.Debug("Successfully downloaded and extracted '%s' - '%s'", metadata.ID, metadata.Version)
	return metadata, nil
}

func prepareDir(dir string, force bool) error {
	if !dirExists(dir) {
		return nil
	}
	if !force {
		return fmt.Errorf("connector directory '%s': %w, use --force to overwrite", dir, domain.ErrDirectoryExists)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove connector directory: %w", err)
	}
	return nil
}

func removeDir(dir string) error {
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrDirectoryNotFound
		}
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove connector directory: %w", err)
	}
	return nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
