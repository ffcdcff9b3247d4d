package file

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".connectorctl", "config.toml"), store.Path())
}

func TestNewConfigStore_WithNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
}

func TestConfigStore_SetAndGet(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("install.connector_path", "/opt/connectors"))

	val, ok := store.Get("install.connector_path")
	assert.True(t, ok)
	assert.Equal(t, "/opt/connectors", val)
	assert.Equal(t, "/opt/connectors", store.GetString("install.connector_path"))
}

func TestConfigStore_Get_NotFound(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	val, ok := store.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, val)
	assert.Empty(t, store.GetString("missing"))
	assert.Zero(t, store.GetFloat("missing"))
	assert.False(t, store.GetBool("missing"))
	assert.Nil(t, store.GetTables("missing"))
}

func TestConfigStore_Persistence(t *testing.T) {
	tmpDir := t.TempDir()

	store1, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store1.Set("install.connector_path", "/opt/connectors"))
	require.NoError(t, store1.Set("install.auto_download", false))
	require.NoError(t, store1.Set("registry.requests_per_second", 2.5))
	require.NoError(t, store1.Set("registries", []map[string]any{
		{"uri": "https://feed.example.com/v3/index.json"},
		{"uri": "s3://bucket/prefix", "user": "AKIA", "token": "secret"},
	}))

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "/opt/connectors", store2.GetString("install.connector_path"))
	assert.False(t, store2.GetBool("install.auto_download"))
	_, ok := store2.Get("install.auto_download")
	assert.True(t, ok)
	assert.InDelta(t, 2.5, store2.GetFloat("registry.requests_per_second"), 0)

	tables := store2.GetTables("registries")
	require.Len(t, tables, 2)
	assert.Equal(t, "https://feed.example.com/v3/index.json", tables[0]["uri"])
	assert.Equal(t, "secret", tables[1]["token"])
}

func TestConfigStore_SavedFileUsesTables(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("install.connector_path", "/opt/connectors"))
	require.NoError(t, store.Set("registries", []map[string]any{{"uri": "https://a/index.json"}}))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "[install]")
	assert.Contains(t, content, "[[registries]]")
	assert.False(t, strings.Contains(content, "install.connector_path"))
}

func TestConfigStore_HandWrittenFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[install]
connector_path = "/srv/connectors"
auto_download = true

[registry]
requests_per_second = 4

[[registries]]
uri = "https://feed.example.com/v3/index.json"
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, "/srv/connectors", store.GetString("install.connector_path"))
	assert.True(t, store.GetBool("install.auto_download"))
	assert.InDelta(t, 4.0, store.GetFloat("registry.requests_per_second"), 0)
	assert.Len(t, store.GetTables("registries"), 1)
}

func TestConfigStore_WrongTypes(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("s", "text"))

	assert.Zero(t, store.GetFloat("s"))
	assert.False(t, store.GetBool("s"))
	assert.Nil(t, store.GetTables("s"))
	require.NoError(t, store.Set("n", int64(3)))
	assert.Empty(t, store.GetString("n"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on Windows")
	}
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("test", "value"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte{}, 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	_, ok := store.Get("any_key")
	assert.False(t, ok)
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[install\nbroken"), 0600))

	_, err := NewConfigStore(tmpDir)
	assert.Error(t, err)
}

func TestConfigStore_Save_Explicit(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save())
	assert.FileExists(t, store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			key := "key" + string(rune('0'+id))
			_ = store.Set(key, id)
			_ = store.GetFloat(key)
			_ = store.GetString(key)
			_, _ = store.Get(key)
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestFlattenUnflatten(t *testing.T) {
	nested := map[string]any{
		"install":    map[string]any{"connector_path": "/a", "auto_download": true},
		"registries": []any{map[string]any{"uri": "x"}},
	}

	flat := flattenMap(nested, "")
	assert.Equal(t, map[string]any{
		"install.connector_path": "/a",
		"install.auto_download":  true,
		"registries":             []any{map[string]any{"uri": "x"}},
	}, flat)
	assert.Equal(t, nested, unflattenMap(flat))
}
