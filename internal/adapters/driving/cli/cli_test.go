package cli

import (
	"bytes"
	"context"
	"iter"
	"maps"
	"slices"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/connectorctl/internal/core/domain"
	"github.com/custodia-labs/connectorctl/internal/core/ports/driving"
)

const (
	fileSystemID = "Reductech.Sequence.Connectors.FileSystem"
	nuixID       = "Reductech.Sequence.Connectors.Nuix"
)

// fakeManager records calls and returns canned results.
type fakeManager struct {
	addOpts    driving.AddOptions
	addID      string
	addErr     error
	updateOpts driving.UpdateOptions
	result     domain.UpdateResult
	updateErr  error

	removed           string
	configurationOnly bool

	enabled map[string]bool

	entries  []domain.ConnectorData
	pattern  string
	found    []domain.ConnectorMetadata
	versions []string
	report   *domain.VerifyReport

	prerelease bool
	populated  int
}

var _ driving.ConnectorManager = (*fakeManager)(nil)

func (m *fakeManager) Add(_ context.Context, id string, opts driving.AddOptions) (domain.ConnectorSettings, error) {
	m.addID, m.addOpts = id, opts
	if m.addErr != nil {
		return domain.ConnectorSettings{}, m.addErr
	}
	version := opts.Version
	if version == "" {
		version = "0.13.0"
	}
	return domain.NewConnectorSettings(id, version), nil
}

func (m *fakeManager) Update(_ context.Context, name string, opts driving.UpdateOptions) (domain.UpdateResult, domain.ConnectorSettings, error) {
	m.updateOpts = opts
	if m.updateErr != nil {
		return "", domain.ConnectorSettings{}, m.updateErr
	}
	return m.result, domain.NewConnectorSettings(name, opts.Version), nil
}

func (m *fakeManager) Remove(_ context.Context, name string, configurationOnly bool) error {
	m.removed, m.configurationOnly = name, configurationOnly
	return nil
}

func (m *fakeManager) List(_ context.Context, pattern string) (iter.Seq[domain.ConnectorData], error) {
	m.pattern = pattern
	return slices.Values(m.entries), nil
}

func (m *fakeManager) Verify(context.Context) (*domain.VerifyReport, error) {
	return m.report, nil
}

func (m *fakeManager) Find(_ context.Context, _ string, prerelease bool) ([]domain.ConnectorMetadata, error) {
	m.prerelease = prerelease
	return m.found, nil
}

func (m *fakeManager) Versions(_ context.Context, _ string, prerelease bool) ([]string, error) {
	m.prerelease = prerelease
	return m.versions, nil
}

func (m *fakeManager) Configurations() map[string]domain.ConnectorSettings {
	out := make(map[string]domain.ConnectorSettings)
	for _, e := range m.entries {
		out[e.Name] = e.Settings
	}
	return out
}

func (m *fakeManager) SetEnabled(_ context.Context, name string, enable bool) error {
	if m.enabled == nil {
		m.enabled = make(map[string]bool)
	}
	m.enabled[name] = enable
	return nil
}

func (m *fakeManager) SetSettings(context.Context, string, map[string]any) error {
	return nil
}

func (m *fakeManager) GetEnabledConnectors(context.Context) ([]domain.ConnectorData, error) {
	return m.entries, nil
}

func (m *fakeManager) Populate(_ context.Context, prerelease bool) (int, error) {
	m.prerelease = prerelease
	return m.populated, nil
}

// fakeSettings keeps settings in memory.
type fakeSettings struct {
	settings domain.AppSettings
	saved    bool
}

var _ driving.SettingsService = (*fakeSettings)(nil)

func newFakeSettings() *fakeSettings {
	return &fakeSettings{settings: domain.DefaultAppSettings("/home/user/.connectorctl")}
}

func (s *fakeSettings) Get() (*domain.AppSettings, error) {
	out := s.settings
	out.Registries = slices.Clone(s.settings.Registries)
	return &out, nil
}

func (s *fakeSettings) Save(settings *domain.AppSettings) error {
	s.settings = *settings
	s.saved = true
	return nil
}

func (s *fakeSettings) AddRegistry(endpoint domain.RegistryEndpoint) error {
	s.settings.Registries = append(s.settings.Registries, endpoint)
	return nil
}

func (s *fakeSettings) RemoveRegistry(uri string) error {
	n := len(s.settings.Registries)
	s.settings.Registries = slices.DeleteFunc(s.settings.Registries, func(e domain.RegistryEndpoint) bool {
		return e.URI == uri
	})
	if len(s.settings.Registries) == n {
		return domain.ErrInvalidInput
	}
	return nil
}

func (s *fakeSettings) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings("/home/user/.connectorctl")
}

func (s *fakeSettings) Path() string {
	return "/home/user/.connectorctl/config.toml"
}

// execute runs the root command with fresh flag state and injected services.
func execute(t *testing.T, m driving.ConnectorManager, s driving.SettingsService, args ...string) (string, error) {
	t.Helper()

	resetFlags(rootCmd)
	SetServices(&Services{Manager: m, Settings: s})
	t.Cleanup(func() {
		SetServices(nil)
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func sortedNames(m map[string]bool) []string {
	return slices.Sorted(maps.Keys(m))
}
