package memory

import (
	"maps"
	"sync"

	"github.com/custodia-labs/connectorctl/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore holds application settings in memory under the same flat dotted
// keys the TOML store uses ("install.connector_path", "registry.requests_per_second",
// "registries"). Tables are copied on the way in and out.
type ConfigStore struct {
	mu       sync.RWMutex
	values   map[string]any
	writeErr error
}

// NewConfigStore returns an empty store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{values: make(map[string]any)}
}

// FailWrites makes Set and Save return err until called again with nil.
func (s *ConfigStore) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeErr = err
}

// Get returns the raw value at key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok
}

// GetString returns the string at key, or "" for a missing or non-string value.
func (s *ConfigStore) GetString(key string) string {
	str, _ := s.getOK(key).(string)
	return str
}

// GetFloat returns the number at key. Integers are widened the way TOML
// decoding would present them.
func (s *ConfigStore) GetFloat(key string) float64 {
	switch v := s.getOK(key).(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// GetBool returns the bool at key, or false.
func (s *ConfigStore) GetBool(key string) bool {
	b, _ := s.getOK(key).(bool)
	return b
}

// GetTables returns a copy of the table array at key, e.g. the [[registries]] list.
func (s *ConfigStore) GetTables(key string) []map[string]any {
	switch v := s.getOK(key).(type) {
	case []map[string]any:
		return copyTables(v)
	case []any:
		tables := make([]map[string]any, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				tables = append(tables, maps.Clone(m))
			}
		}
		return tables
	default:
		return nil
	}
}

// Set stores value at key.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	if tables, ok := value.([]map[string]any); ok {
		value = copyTables(tables)
	}
	s.values[key] = value
	return nil
}

// Save is a no-op apart from injected failures.
func (s *ConfigStore) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writeErr
}

// Load is a no-op.
func (s *ConfigStore) Load() error {
	return nil
}

// Path returns ":memory:".
func (s *ConfigStore) Path() string {
	return ":memory:"
}

func (s *ConfigStore) getOK(key string) any {
	val, _ := s.Get(key)
	return val
}

func copyTables(tables []map[string]any) []map[string]any {
	out := make([]map[string]any, len(tables))
	for i, t := range tables {
		out[i] = maps.Clone(t)
	}
	return out
}
