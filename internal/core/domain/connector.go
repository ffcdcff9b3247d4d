package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ConnectorSettings is a single configuration entry.
// Values are replaced wholesale on update; use the With* helpers to derive
// a modified copy instead of mutating a shared value.
type ConnectorSettings struct {
	// ID is the package id of the connector in the registry.
	ID string `json:"id"`

	// Version is the exact version string that is installed.
	Version string `json:"version"`

	// Enable gates whether the connector participates in the host's runtime.
	Enable bool `json:"enable"`

	// Settings is passed through to the connector untouched.
	Settings map[string]any `json:"settings,omitempty"`
}

// NewConnectorSettings returns enabled settings for id at version.
func NewConnectorSettings(id, version string) ConnectorSettings {
	return ConnectorSettings{ID: id, Version: version, Enable: true}
}

// UnmarshalJSON decodes c, treating an absent "enable" field as true.
func (c *ConnectorSettings) UnmarshalJSON(data []byte) error {
	type plain ConnectorSettings
	decoded := plain{Enable: true}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*c = ConnectorSettings(decoded)
	return nil
}

// MarshalJSON encodes c. A nil settings map is omitted; an empty one is kept.
func (c ConnectorSettings) MarshalJSON() ([]byte, error) {
	out := struct {
		ID       string          `json:"id"`
		Version  string          `json:"version"`
		Enable   bool            `json:"enable"`
		Settings *map[string]any `json:"settings,omitempty"`
	}{ID: c.ID, Version: c.Version, Enable: c.Enable}
	if c.Settings != nil {
		out.Settings = &c.Settings
	}
	return json.Marshal(out)
}

// VersionString returns "<id> <version>".
func (c ConnectorSettings) VersionString() string {
	return fmt.Sprintf("%s %s", c.ID, c.Version)
}

// String implements fmt.Stringer.
func (c ConnectorSettings) String() string {
	return c.VersionString()
}

// WithVersion returns a copy of c pointing at version.
func (c ConnectorSettings) WithVersion(version string) ConnectorSettings {
	out := c.clone()
	out.Version = version
	return out
}

// WithEnable returns a copy of c with the enable flag set to enable.
func (c ConnectorSettings) WithEnable(enable bool) ConnectorSettings {
	out := c.clone()
	out.Enable = enable
	return out
}

// WithSettings returns a copy of c carrying settings.
func (c ConnectorSettings) WithSettings(settings map[string]any) ConnectorSettings {
	out := c
	out.Settings = copySettings(settings)
	return out
}

func (c ConnectorSettings) clone() ConnectorSettings {
	out := c
	out.Settings = copySettings(c.Settings)
	return out
}

// copySettings deep-copies nested maps and slices. Nil stays nil.
func copySettings(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return copySettings(v)
	case []any:
		if v == nil {
			return v
		}
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = copyValue(item)
		}
		return out
	case []map[string]any:
		if v == nil {
			return v
		}
		out := make([]map[string]any, len(v))
		for i, item := range v {
			out[i] = copySettings(item)
		}
		return out
	default:
		return v
	}
}

// ConnectorMetadata is the immutable identity of a package as resolved from a registry.
type ConnectorMetadata struct {
	ID      string `json:"id"      yaml:"id"`
	Version string `json:"version" yaml:"version"`
}

// String implements fmt.Stringer.
func (m ConnectorMetadata) String() string {
	return fmt.Sprintf("%s %s", m.ID, m.Version)
}

// Matches reports whether m identifies id at version, ignoring case.
func (m ConnectorMetadata) Matches(id, version string) bool {
	return strings.EqualFold(m.ID, id) && strings.EqualFold(m.Version, version)
}

// ConnectorData pairs a configuration entry with its loaded module.
type ConnectorData struct {
	// Name is the configuration name of the entry.
	Name string

	// Settings is a copy of the configuration entry.
	Settings ConnectorSettings

	// Module is the loaded connector binary.
	Module *Module
}

// String implements fmt.Stringer.
func (d ConnectorData) String() string {
	return d.Settings.String()
}
