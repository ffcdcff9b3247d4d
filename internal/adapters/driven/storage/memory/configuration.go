package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/connectorctl/internal/core/domain"
	"github.com/custodia-labs/connectorctl/internal/core/ports/driven"
)

// Ensure ConnectorConfiguration implements the interface.
var _ driven.ConnectorConfiguration = (*ConnectorConfiguration)(nil)

// ConnectorConfiguration is an in-memory implementation of driven.ConnectorConfiguration.
// Used for tests and for ephemeral managers that are seeded at startup.
type ConnectorConfiguration struct {
	mu      sync.RWMutex
	entries map[string]domain.ConnectorSettings
}

// NewConnectorConfiguration creates a store seeded with a copy of entries.
func NewConnectorConfiguration(entries map[string]domain.ConnectorSettings) *ConnectorConfiguration {
	c := &ConnectorConfiguration{entries: make(map[string]domain.ConnectorSettings, len(entries))}
	for name, s := range entries {
		c.entries[name] = s.WithSettings(s.Settings)
	}
	return c
}

// Keys returns the configuration names in sorted order.
func (c *ConnectorConfiguration) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.entries))
}

// Settings returns a copy of every entry.
func (c *ConnectorConfiguration) Settings() map[string]domain.ConnectorSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]domain.ConnectorSettings, len(c.entries))
	for name, s := range c.entries {
		out[name] = s.WithSettings(s.Settings)
	}
	return out
}

// Count returns the number of entries.
func (c *ConnectorConfiguration) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Contains reports whether name is present.
func (c *ConnectorConfiguration) Contains(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[name]
	return ok
}

// ContainsID reports whether any entry references id.
func (c *ConnectorConfiguration) ContainsID(id string) bool {
	_, ok := c.TryGetByID(id)
	return ok
}

// ContainsVersion reports whether any entry references id at version.
func (c *ConnectorConfiguration) ContainsVersion(id, version string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.entries {
		if strings.EqualFold(s.ID, id) && strings.EqualFold(s.Version, version) {
			return true
		}
	}
	return false
}

// TryGet returns the entry at name.
func (c *ConnectorConfiguration) TryGet(name string) (domain.ConnectorSettings, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[name]
	if !ok {
		return domain.ConnectorSettings{}, false
	}
	return s.WithSettings(s.Settings), true
}

// TryGetByID returns every entry referencing id.
func (c *ConnectorConfiguration) TryGetByID(id string) (map[string]domain.ConnectorSettings, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]domain.ConnectorSettings)
	for name, s := range c.entries {
		if strings.EqualFold(s.ID, id) {
			out[name] = s.WithSettings(s.Settings)
		}
	}
	return out, len(out) > 0
}

// Get returns the entry at name.
func (c *ConnectorConfiguration) Get(name string) (domain.ConnectorSettings, error) {
	s, ok := c.TryGet(name)
	if !ok {
		return domain.ConnectorSettings{}, fmt.Errorf("connector configuration %q: %w", name, domain.ErrConfigurationNotFound)
	}
	return s, nil
}

// Add stores settings at name.
func (c *ConnectorConfiguration) Add(ctx context.Context, name string, settings domain.ConnectorSettings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return domain.ErrInvalidInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[name]; ok {
		return fmt.Errorf("connector configuration %q: %w", name, domain.ErrAlreadyExists)
	}
	c.entries[name] = settings.WithSettings(settings.Settings)
	return nil
}

// Remove deletes the entry at name.
func (c *ConnectorConfiguration) Remove(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[name]; !ok {
		return false, nil
	}
	delete(c.entries, name)
	return true, nil
}

// Set overwrites the entry at name.
func (c *ConnectorConfiguration) Set(ctx context.Context, name string, settings domain.ConnectorSettings) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[name]; !ok {
		return fmt.Errorf("connector configuration %q: %w", name, domain.ErrConfigurationNotFound)
	}
	c.entries[name] = settings.WithSettings(settings.Settings)
	return nil
}
