package driven

import (
	"context"

	"github.com/custodia-labs/connectorctl/internal/core/domain"
)

// ConnectorConfiguration is the durable mapping of configuration name to
// connector settings.
//
// Names are unique; (id, version) pairs need not be. Add is not an upsert:
// callers check Contains first. Mutations persist before returning.
// Values returned by read methods are copies; write changes back with Set.
type ConnectorConfiguration interface {
	// Keys returns the configuration names in sorted order.
	Keys() []string

	// Settings returns every entry keyed by name.
	Settings() map[string]domain.ConnectorSettings

	// Count returns the number of entries.
	Count() int

	// Contains reports whether name is present.
	Contains(name string) bool

	// ContainsID reports whether any entry references id.
	ContainsID(id string) bool

	// ContainsVersion reports whether any entry references id at version.
	ContainsVersion(id, version string) bool

	// TryGet returns the entry at name.
	TryGet(name string) (domain.ConnectorSettings, bool)

	// TryGetByID returns every entry referencing id, keyed by name.
	TryGetByID(id string) (map[string]domain.ConnectorSettings, bool)

	// Get returns the entry at name or ErrConfigurationNotFound.
	Get(name string) (domain.ConnectorSettings, error)

	// Add stores settings at name. Fails with ErrAlreadyExists if name is present.
	Add(ctx context.Context, name string, settings domain.ConnectorSettings) error

	// Remove deletes the entry at name and reports whether it existed.
	Remove(ctx context.Context, name string) (bool, error)

	// Set overwrites the entry at name. Fails with ErrConfigurationNotFound if absent.
	Set(ctx context.Context, name string, settings domain.ConnectorSettings) error
}
