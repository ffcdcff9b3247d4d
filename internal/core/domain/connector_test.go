package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnectorSettings(t *testing.T) {
	s := NewConnectorSettings("FileSystem", "0.13.0")

	assert.Equal(t, "FileSystem", s.ID)
	assert.Equal(t, "0.13.0", s.Version)
	assert.True(t, s.Enable)
	assert.Nil(t, s.Settings)
	assert.Equal(t, "FileSystem 0.13.0", s.VersionString())
	assert.Equal(t, "FileSystem 0.13.0", s.String())
}

func TestConnectorSettings_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantEnable bool
	}{
		{"enable absent defaults to true", `{"id":"Nuix","version":"0.13.0-beta.1"}`, true},
		{"enable true", `{"id":"Nuix","version":"0.13.0-beta.1","enable":true}`, true},
		{"enable false", `{"id":"Nuix","version":"0.13.0-beta.1","enable":false}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s ConnectorSettings
			require.NoError(t, json.Unmarshal([]byte(tt.input), &s))
			assert.Equal(t, "Nuix", s.ID)
			assert.Equal(t, "0.13.0-beta.1", s.Version)
			assert.Equal(t, tt.wantEnable, s.Enable)
		})
	}
}

func TestConnectorSettings_UnmarshalJSON_Settings(t *testing.T) {
	var s ConnectorSettings
	input := `{"id":"FileSystem","version":"0.13.0","settings":{"root":"/data","depth":3}}`
	require.NoError(t, json.Unmarshal([]byte(input), &s))

	assert.Equal(t, "/data", s.Settings["root"])
	assert.InDelta(t, 3, s.Settings["depth"], 0)
}

func TestConnectorSettings_UnmarshalJSON_Invalid(t *testing.T) {
	var s ConnectorSettings
	assert.Error(t, json.Unmarshal([]byte(`{"id":`), &s))
}

func TestConnectorSettings_MarshalJSON_OmitsNilSettings(t *testing.T) {
	data, err := json.Marshal(NewConnectorSettings("FileSystem", "0.13.0"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"FileSystem","version":"0.13.0","enable":true}`, string(data))
}

func TestConnectorSettings_MarshalJSON_KeepsEmptySettings(t *testing.T) {
	data, err := json.Marshal(NewConnectorSettings("FileSystem", "0.13.0").WithSettings(map[string]any{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"FileSystem","version":"0.13.0","enable":true,"settings":{}}`, string(data))

	var decoded ConnectorSettings
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.NotNil(t, decoded.Settings)
	assert.Empty(t, decoded.Settings)
}

func TestConnectorSettings_MarshalJSON_MapValue(t *testing.T) {
	entries := map[string]ConnectorSettings{
		"fs": NewConnectorSettings("FileSystem", "0.13.0").WithSettings(map[string]any{"root": "/data"}),
	}
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	assert.JSONEq(t, `{"fs":{"id":"FileSystem","version":"0.13.0","enable":true,"settings":{"root":"/data"}}}`, string(data))
}

func TestConnectorSettings_WithHelpers(t *testing.T) {
	orig := NewConnectorSettings("StructuredData", "0.7.0").
		WithSettings(map[string]any{"mode": "fast"})

	updated := orig.WithVersion("0.8.0")
	assert.Equal(t, "0.7.0", orig.Version)
	assert.Equal(t, "0.8.0", updated.Version)
	assert.Equal(t, "fast", updated.Settings["mode"])

	disabled := orig.WithEnable(false)
	assert.True(t, orig.Enable)
	assert.False(t, disabled.Enable)

	// Copies do not share the settings map.
	updated.Settings["mode"] = "slow"
	assert.Equal(t, "fast", orig.Settings["mode"])
}

func TestConnectorSettings_CopiesNestedValues(t *testing.T) {
	nested := map[string]any{
		"db":    map[string]any{"host": "orig"},
		"tags":  []any{"a", map[string]any{"k": "v"}},
		"hosts": []map[string]any{{"name": "one"}},
	}
	orig := NewConnectorSettings("Nuix", "0.13.0").WithSettings(nested)

	// The source map is not retained.
	nested["db"].(map[string]any)["host"] = "changed"
	assert.Equal(t, "orig", orig.Settings["db"].(map[string]any)["host"])

	copied := orig.WithEnable(false)
	copied.Settings["db"].(map[string]any)["host"] = "mutated"
	copied.Settings["tags"].([]any)[0] = "z"
	copied.Settings["tags"].([]any)[1].(map[string]any)["k"] = "w"
	copied.Settings["hosts"].([]map[string]any)[0]["name"] = "two"

	assert.Equal(t, "orig", orig.Settings["db"].(map[string]any)["host"])
	assert.Equal(t, "a", orig.Settings["tags"].([]any)[0])
	assert.Equal(t, "v", orig.Settings["tags"].([]any)[1].(map[string]any)["k"])
	assert.Equal(t, "one", orig.Settings["hosts"].([]map[string]any)[0]["name"])
}

func TestConnectorSettings_WithSettingsNil(t *testing.T) {
	s := NewConnectorSettings("Nuix", "0.13.0").WithSettings(nil)
	assert.Nil(t, s.Settings)

	s = s.WithSettings(map[string]any{})
	assert.NotNil(t, s.Settings)
}

func TestConnectorMetadata_Matches(t *testing.T) {
	m := ConnectorMetadata{ID: "FileSystem", Version: "0.13.0-a.master.2105052158"}

	assert.True(t, m.Matches("filesystem", "0.13.0-A.MASTER.2105052158"))
	assert.False(t, m.Matches("FileSystem", "0.13.0"))
	assert.False(t, m.Matches("Nuix", "0.13.0-a.master.2105052158"))
	assert.Equal(t, "FileSystem 0.13.0-a.master.2105052158", m.String())
}

func TestConnectorData_String(t *testing.T) {
	d := ConnectorData{Name: "fs", Settings: NewConnectorSettings("FileSystem", "0.13.0")}
	assert.Equal(t, "FileSystem 0.13.0", d.String())
}
