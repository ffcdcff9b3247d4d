// Command connectorctl installs and manages connector plugins.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/connectorctl/internal/adapters/driven/config/file"
	"github.com/custodia-labs/connectorctl/internal/adapters/driven/loader"
	"github.com/custodia-labs/connectorctl/internal/adapters/driven/registry"
	"github.com/custodia-labs/connectorctl/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/connectorctl/internal/adapters/driving/cli"
	"github.com/custodia-labs/connectorctl/internal/core/domain"
	"github.com/custodia-labs/connectorctl/internal/core/ports/driven"
	"github.com/custodia-labs/connectorctl/internal/core/services"
	"github.com/custodia-labs/connectorctl/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)

	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// bootstrap wires the adapters for configDir into the core services.
func bootstrap(ctx context.Context, configDir string) (*cli.Services, error) {
	baseDir, err := resolveConfigDir(configDir)
	if err != nil {
		return nil, err
	}

	configStore, err := file.NewConfigStore(baseDir)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, baseDir)

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if settings.Verbose {
		logger.SetVerbose(true)
	}
	logger.Debug("settings: %s", settingsService.Path())

	configuration, closeConfiguration, err := openConfiguration(settings.Manager)
	if err != nil {
		return nil, err
	}

	reg, err := registry.NewFromSettings(ctx, settings)
	if err != nil {
		_ = closeConfiguration()
		return nil, fmt.Errorf("configure registries: %w", err)
	}

	manager := services.NewConnectorManager(settings.Manager, reg, configuration, loader.New())

	return &cli.Services{
		Manager:  manager,
		Settings: settingsService,
		Close:    closeConfiguration,
	}, nil
}

// openConfiguration opens the JSON or SQLite configuration named by settings.
func openConfiguration(settings domain.ManagerSettings) (driven.ConnectorConfiguration, func() error, error) {
	logger.Debug("configuration: %s", settings.ConfigurationPath)

	if settings.UsesSQLite() {
		store, err := sqlite.NewStore(settings.ConfigurationPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open configuration: %w", err)
		}
		return store, store.Close, nil
	}

	store, err := file.NewConnectorConfiguration(settings.ConfigurationPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open configuration: %w", err)
	}
	return store, func() error { return nil }, nil
}

func resolveConfigDir(configDir string) (string, error) {
	if configDir != "" {
		return filepath.Abs(configDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, domain.DefaultDirName), nil
}
