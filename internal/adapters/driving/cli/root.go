// Package cli provides the connectorctl command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/connectorctl/internal/core/domain"
	"github.com/custodia-labs/connectorctl/internal/core/ports/driving"
	"github.com/custodia-labs/connectorctl/internal/logger"
)

// version is set at build time.
var version = "dev"

// Services are the driving ports the commands call.
type Services struct {
	Manager  driving.ConnectorManager
	Settings driving.SettingsService

	// Close releases resources held by the services. May be nil.
	Close func() error
}

// Bootstrap builds the services for a config directory.
// An empty configDir selects the default location.
type Bootstrap func(ctx context.Context, configDir string) (*Services, error)

var (
	bootstrap        Bootstrap
	services         *Services
	connectorManager driving.ConnectorManager
	settingsService  driving.SettingsService
)

// Global flags.
var (
	verboseFlag bool
	configDir   string
)

var rootCmd = &cobra.Command{
	Use:   "connectorctl",
	Short: "Install, update and verify connectors from package registries",
	Long: `connectorctl manages connector plugins: it finds them in NuGet or S3
package registries, installs them into versioned directories, keeps a
configuration of named connector entries, and verifies that every
configured connector is installed and loadable.`,
	SilenceUsage:      true,
	PersistentPreRunE: initServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "configuration directory (default ~/.connectorctl)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap registers the function that builds services before a command runs.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices injects ready-made services. Bootstrap is skipped while set.
func SetServices(s *Services) {
	services = s
	if s == nil {
		connectorManager = nil
		settingsService = nil
		return
	}
	connectorManager = s.Manager
	settingsService = s.Settings
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	defer closeServices()
	return rootCmd.ExecuteContext(ctx)
}

func initServices(cmd *cobra.Command, _ []string) error {
	if verboseFlag {
		logger.SetVerbose(true)
	}
	if services != nil || bootstrap == nil {
		return nil
	}

	loadDotEnv(configDir)

	s, err := bootstrap(cmd.Context(), configDir)
	if err != nil {
		return fmt.Errorf("failed to initialise: %w", err)
	}
	SetServices(s)
	return nil
}

func closeServices() {
	if services == nil || services.Close == nil {
		return
	}
	if err := services.Close(); err != nil {
		logger.Warn("close: %v", err)
	}
}

// loadDotEnv loads .env from the working directory and the config directory,
// which defaults to ~/.connectorctl. Variables already set in the environment
// win. Missing files are ignored.
func loadDotEnv(dir string) {
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, domain.DefaultDirName)
		}
	}
	candidates := []string{".env"}
	if dir != "" {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}
	for _, path := range candidates {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Failed to load %s: %v", path, err)
		}
	}
}

func requireManager() error {
	if connectorManager == nil {
		return errors.New("connector manager not configured")
	}
	return nil
}
