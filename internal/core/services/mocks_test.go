package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/custodia-labs/connectorctl/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/connectorctl/internal/core/domain"
	"github.com/custodia-labs/connectorctl/internal/core/ports/driven"
)

const (
	fileSystemID     = "Reductech.Sequence.Connectors.FileSystem"
	structuredDataID = "Reductech.Sequence.Connectors.StructuredData"
	nuixID           = "Reductech.Sequence.Connectors.Nuix"
)

// registryFixture lists packages in ascending version order per id.
var registryFixture = []domain.ConnectorMetadata{
	{ID: fileSystemID, Version: "0.13.0-a.master.2105052158"},
	{ID: fileSystemID, Version: "0.13.0"},
	{ID: structuredDataID, Version: "0.7.0"},
	{ID: structuredDataID, Version: "0.8.0"},
	{ID: structuredDataID, Version: "0.13.0"},
	{ID: nuixID, Version: "0.13.0-a.master.2105052200"},
	{ID: nuixID, Version: "0.13.0-beta.1"},
	{ID: nuixID, Version: "0.13.0-beta.2"},
}

// fakeRegistry serves registryFixture.
type fakeRegistry struct {
	mu         sync.Mutex
	connectors []domain.ConnectorMetadata
	binaryExt  string
	downloads  []domain.ConnectorMetadata
	extractErr error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{connectors: registryFixture}
}

var _ driven.ConnectorRegistry = (*fakeRegistry)(nil)

func (r *fakeRegistry) Find(_ context.Context, search string, prerelease bool) ([]domain.ConnectorMetadata, error) {
	var order []string
	latest := make(map[string]domain.ConnectorMetadata)
	for _, c := range r.connectors {
		if !strings.Contains(strings.ToLower(c.ID), strings.ToLower(search)) {
			continue
		}
		if !prerelease && strings.Contains(c.Version, "-") {
			continue
		}
		if _, ok := latest[c.ID]; !ok {
			order = append(order, c.ID)
		}
		latest[c.ID] = c
	}

	out := make([]domain.ConnectorMetadata, 0, len(order))
	for _, id := range order {
		out = append(out, latest[id])
	}
	return out, nil
}

func (r *fakeRegistry) Exists(ctx context.Context, id, version string) (bool, error) {
	versions, err := r.GetVersions(ctx, id, true)
	if err != nil || len(versions) == 0 {
		return false, err
	}
	if version == "" {
		return true, nil
	}
	for _, v := range versions {
		if strings.EqualFold(v, version) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRegistry) GetVersions(_ context.Context, id string, prerelease bool) ([]string, error) {
	var versions []string
	for _, c := range r.connectors {
		if strings.EqualFold(c.ID, id) && (prerelease || !strings.Contains(c.Version, "-")) {
			versions = append(versions, c.Version)
		}
	}
	return versions, nil
}

func (r *fakeRegistry) GetPackage(_ context.Context, id, version string) (driven.ConnectorPackage, error) {
	for _, c := range r.connectors {
		if c.Matches(id, version) {
			r.mu.Lock()
			r.downloads = append(r.downloads, c)
			r.mu.Unlock()
			return &fakePackage{metadata: c, binaryExt: r.binaryExt, extractErr: r.extractErr}, nil
		}
	}
	return nil, fmt.Errorf("can't find connector %s (%s): %w", id, version, domain.ErrPackageNotFound)
}

func (r *fakeRegistry) downloadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.downloads)
}

// fakePackage extracts a connector binary and one dependency file.
type fakePackage struct {
	metadata   domain.ConnectorMetadata
	binaryExt  string
	extractErr error
	closed     bool
}

func (p *fakePackage) Metadata() domain.ConnectorMetadata { return p.metadata }

func (p *fakePackage) Extract(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.extractErr != nil {
		return p.extractErr
	}
	binary := filepath.Join(dir, p.metadata.ID+p.binaryExt)
	if err := os.WriteFile(binary, []byte(p.metadata.String()), 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "dependency.dat"), []byte("dep"), 0o644)
}

func (p *fakePackage) Close() error {
	p.closed = true
	return nil
}

// fakeLoader loads any existing file, except paths listed in broken.
type fakeLoader struct {
	mu     sync.Mutex
	broken map[string]bool
	loads  []string
}

var _ driven.Loader = (*fakeLoader)(nil)

func (l *fakeLoader) Load(_ context.Context, path string) (*domain.Module, error) {
	l.mu.Lock()
	l.loads = append(l.loads, path)
	l.mu.Unlock()

	if l.broken[path] {
		return nil, fmt.Errorf("%s: invalid manifest: %w", path, domain.ErrLoadFailed)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s: %w", path, errors.Join(domain.ErrLoadFailed, err))
	}
	return &domain.Module{
		Path:     path,
		Dir:      filepath.Dir(path),
		Manifest: domain.Manifest{ID: filepath.Base(filepath.Dir(filepath.Dir(path)))},
	}, nil
}

// testManager bundles a manager and its collaborators.
type testManager struct {
	*ConnectorManager
	settings      domain.ManagerSettings
	registry      *fakeRegistry
	configuration *memory.ConnectorConfiguration
	loader        *fakeLoader
}

// newTestManager seeds the configuration with Nuix and StructuredData, the way
// a host ships a default connectors.json.
func newTestManager(t *testing.T) *testManager {
	t.Helper()

	settings := domain.ManagerSettings{
		ConnectorPath:     filepath.Join(t.TempDir(), "connectors"),
		ConfigurationPath: ":memory:",
		AutoDownload:      true,
		BinaryExtension:   domain.DefaultBinaryExtension(),
	}
	registry := newFakeRegistry()
	registry.binaryExt = settings.BinaryExtension

	configuration := memory.NewConnectorConfiguration(map[string]domain.ConnectorSettings{
		nuixID:           domain.NewConnectorSettings(nuixID, "0.13.0-beta.1"),
		structuredDataID: domain.NewConnectorSettings(structuredDataID, "0.8.0"),
	})
	loader := &fakeLoader{broken: map[string]bool{}}

	return &testManager{
		ConnectorManager: NewConnectorManager(settings, registry, configuration, loader),
		settings:         settings,
		registry:         registry,
		configuration:    configuration,
		loader:           loader,
	}
}

// installFiles lays out id at version on disk without going through the registry.
func (tm *testManager) installFiles(t *testing.T, id, version string, withBinary bool) string {
	t.Helper()
	dir := tm.settings.InstallPath(id, version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if withBinary {
		if err := os.WriteFile(tm.settings.BinaryPath(id, version), []byte("bin"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func emptyConfiguration() *memory.ConnectorConfiguration {
	return memory.NewConnectorConfiguration(nil)
}
