package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/connectorctl/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/connectorctl/internal/core/domain"
	"github.com/custodia-labs/connectorctl/internal/core/ports/driven"
	"github.com/custodia-labs/connectorctl/internal/logger"
)

// Ensure ConnectorConfiguration implements the interface.
var _ driven.ConnectorConfiguration = (*ConnectorConfiguration)(nil)

// ConnectorConfiguration is a JSON file-backed driven.ConnectorConfiguration.
// The file holds one object keyed by configuration name and is rewritten
// in full after every mutation.
type ConnectorConfiguration struct {
	*memory.ConnectorConfiguration

	mu       sync.Mutex
	filePath string
}

// NewConnectorConfiguration opens the configuration file at filePath.
// A missing file is created containing an empty object.
func NewConnectorConfiguration(filePath string) (*ConnectorConfiguration, error) {
	entries, err := readConfiguration(filePath)
	if errors.Is(err, os.ErrNotExist) {
		logger.Debug("Creating connector configuration at '%s'", filePath)
		if err := writeConfiguration(filePath, map[string]domain.ConnectorSettings{}); err != nil {
			return nil, err
		}
		entries = nil
	} else if err != nil {
		return nil, err
	}

	return &ConnectorConfiguration{
		ConnectorConfiguration: memory.NewConnectorConfiguration(entries),
		filePath:               filePath,
	}, nil
}

// Path returns the configuration file path.
func (c *ConnectorConfiguration) Path() string {
	return c.filePath
}

// Add stores settings at name and rewrites the file.
func (c *ConnectorConfiguration) Add(ctx context.Context, name string, settings domain.ConnectorSettings) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ConnectorConfiguration.Add(ctx, name, settings); err != nil {
		return err
	}
	if err := c.save(); err != nil {
		_, _ = c.ConnectorConfiguration.Remove(context.Background(), name)
		return err
	}
	return nil
}

// Remove deletes the entry at name and rewrites the file.
func (c *ConnectorConfiguration) Remove(ctx context.Context, name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	previous, existed := c.ConnectorConfiguration.TryGet(name)
	removed, err := c.ConnectorConfiguration.Remove(ctx, name)
	if err != nil || !removed {
		return removed, err
	}
	if err := c.save(); err != nil {
		if existed {
			_ = c.ConnectorConfiguration.Add(context.Background(), name, previous)
		}
		return false, err
	}
	return true, nil
}

// Set overwrites the entry at name and rewrites the file.
func (c *ConnectorConfiguration) Set(ctx context.Context, name string, settings domain.ConnectorSettings) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	previous, _ := c.ConnectorConfiguration.TryGet(name)
	if err := c.ConnectorConfiguration.Set(ctx, name, settings); err != nil {
		return err
	}
	if err := c.save(); err != nil {
		_ = c.ConnectorConfiguration.Set(context.Background(), name, previous)
		return err
	}
	return nil
}

func (c *ConnectorConfiguration) save() error {
	return writeConfiguration(c.filePath, c.ConnectorConfiguration.Settings())
}

func readConfiguration(filePath string) (map[string]domain.ConnectorSettings, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]domain.ConnectorSettings)
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to load connector configuration '%s': %w: %w",
			filePath, domain.ErrMalformedConfiguration, err)
	}
	return entries, nil
}

func writeConfiguration(filePath string, entries map[string]domain.ConnectorSettings) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode connector configuration: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create configuration directory: %w", err)
		}
	}

	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil { //nolint:gosec // configuration is not secret
		return fmt.Errorf("write connector configuration: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write connector configuration: %w", err)
	}
	return nil
}
