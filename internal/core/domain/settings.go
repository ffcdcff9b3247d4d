package domain

import (
	"path/filepath"
	"runtime"
	"strings"
)

// RegistryEndpoint describes one remote package feed.
type RegistryEndpoint struct {
	// URI of the feed. The scheme selects the protocol
	// (https/http for NuGet v3 service indexes, s3 for buckets).
	URI string `toml:"uri"`

	// User for private feeds.
	User string `toml:"user,omitempty"`

	// Token or password for private feeds.
	Token string `toml:"token,omitempty"`
}

// HasCredentials returns true if a user or token is set.
func (e RegistryEndpoint) HasCredentials() bool {
	return e.User != "" || e.Token != ""
}

// String returns the endpoint URI without credentials.
func (e RegistryEndpoint) String() string {
	return e.URI
}

// ManagerSettings controls where connectors are installed and how Verify behaves.
type ManagerSettings struct {
	// ConnectorPath is the root install directory: <ConnectorPath>/<id>/<version>.
	ConnectorPath string

	// ConfigurationPath is the path to the configuration backing store.
	ConfigurationPath string

	// AutoDownload installs missing connectors during Verify.
	AutoDownload bool

	// BinaryExtension is appended to the connector id to name its binary.
	BinaryExtension string
}

// DefaultBinaryExtension returns the executable suffix for the host platform.
func DefaultBinaryExtension() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}

// InstallPath returns <ConnectorPath>/<id>/<version>.
func (s ManagerSettings) InstallPath(id, version string) string {
	return filepath.Join(s.ConnectorPath, id, version)
}

// BinaryName returns the file name of the connector binary for id.
func (s ManagerSettings) BinaryName(id string) string {
	return id + s.BinaryExtension
}

// BinaryPath returns the expected binary path for id at version.
func (s ManagerSettings) BinaryPath(id, version string) string {
	return filepath.Join(s.InstallPath(id, version), s.BinaryName(id))
}

// UsesSQLite returns true if the configuration path names a SQLite database.
func (s ManagerSettings) UsesSQLite() bool {
	ext := strings.ToLower(filepath.Ext(s.ConfigurationPath))
	return ext == ".db" || ext == ".sqlite"
}

// Default settings values.
const (
	DefaultDirName           = ".connectorctl"
	DefaultRequestsPerSecond = 10.0
)

// AppSettings holds all application settings.
type AppSettings struct {
	// Manager holds install and verification settings.
	Manager ManagerSettings

	// Registries are the feed endpoints, tried in declared order.
	Registries []RegistryEndpoint

	// RequestsPerSecond limits requests to each HTTP feed. Zero disables the limit.
	RequestsPerSecond float64

	// Verbose enables debug logging.
	Verbose bool
}

// DefaultAppSettings returns settings rooted at baseDir.
// No registry endpoints are configured by default.
func DefaultAppSettings(baseDir string) AppSettings {
	return AppSettings{
		Manager: ManagerSettings{
			ConnectorPath:     filepath.Join(baseDir, "connectors"),
			ConfigurationPath: filepath.Join(baseDir, "connectors.json"),
			AutoDownload:      true,
			BinaryExtension:   DefaultBinaryExtension(),
		},
		RequestsPerSecond: DefaultRequestsPerSecond,
	}
}
