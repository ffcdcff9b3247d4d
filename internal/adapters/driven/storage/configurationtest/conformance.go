// Package configurationtest provides a shared conformance test suite for
// driven.ConnectorConfiguration implementations. Each backend calls
// RunConformanceTests, and persistent backends also call RunPersistenceTests,
// from its own _test.go file.
package configurationtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/connectorctl/internal/core/domain"
	"github.com/custodia-labs/connectorctl/internal/core/ports/driven"
)

const (
	nuixID           = "Reductech.Sequence.Connectors.Nuix"
	structuredDataID = "Reductech.Sequence.Connectors.StructuredData"
)

// Seed adds the two-entry fixture used across the suite.
func Seed(t *testing.T, store driven.ConnectorConfiguration) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, nuixID, domain.NewConnectorSettings(nuixID, "0.13.0-beta.1")))
	require.NoError(t, store.Add(ctx, structuredDataID, domain.NewConnectorSettings(structuredDataID, "0.8.0")))
}

// RunConformanceTests exercises a ConnectorConfiguration implementation against
// the shared contract. newStore is called once per sub-test and must return an
// empty, isolated store.
func RunConformanceTests(t *testing.T, newStore func(t *testing.T) driven.ConnectorConfiguration) {
	t.Helper()

	t.Run("Empty", func(t *testing.T) {
		store := newStore(t)

		assert.Zero(t, store.Count())
		assert.Empty(t, store.Keys())
		assert.Empty(t, store.Settings())
		assert.False(t, store.Contains(nuixID))
	})

	t.Run("AddAndGet", func(t *testing.T) {
		store := newStore(t)
		Seed(t, store)

		assert.Equal(t, 2, store.Count())
		assert.Equal(t, []string{nuixID, structuredDataID}, store.Keys())

		got, err := store.Get(nuixID)
		require.NoError(t, err)
		assert.Equal(t, nuixID, got.ID)
		assert.Equal(t, "0.13.0-beta.1", got.Version)
		assert.True(t, got.Enable)

		got, ok := store.TryGet(structuredDataID)
		assert.True(t, ok)
		assert.Equal(t, "0.8.0", got.Version)
	})

	t.Run("AddExistingNameFails", func(t *testing.T) {
		store := newStore(t)
		Seed(t, store)

		err := store.Add(context.Background(), nuixID, domain.NewConnectorSettings(nuixID, "0.13.0-beta.2"))
		require.ErrorIs(t, err, domain.ErrAlreadyExists)

		got, err := store.Get(nuixID)
		require.NoError(t, err)
		assert.Equal(t, "0.13.0-beta.1", got.Version)
		assert.Equal(t, 2, store.Count())
	})

	t.Run("SameIDUnderDifferentNames", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Add(ctx, "nuix-new", domain.NewConnectorSettings(nuixID, "0.13.0-beta.2")))
		require.NoError(t, store.Add(ctx, "nuix-old", domain.NewConnectorSettings(nuixID, "0.13.0-beta.1").WithEnable(false)))
		require.NoError(t, store.Add(ctx, "nuix-copy", domain.NewConnectorSettings(nuixID, "0.13.0-beta.2")))

		byID, ok := store.TryGetByID(nuixID)
		assert.True(t, ok)
		assert.Len(t, byID, 3)
		assert.False(t, byID["nuix-old"].Enable)

		assert.True(t, store.ContainsID(nuixID))
		assert.False(t, store.ContainsID(structuredDataID))
		assert.True(t, store.ContainsVersion(nuixID, "0.13.0-beta.1"))
		assert.False(t, store.ContainsVersion(nuixID, "0.13.0"))

		_, ok = store.TryGetByID(structuredDataID)
		assert.False(t, ok)
	})

	t.Run("MissingName", func(t *testing.T) {
		store := newStore(t)

		_, ok := store.TryGet("missing")
		assert.False(t, ok)

		_, err := store.Get("missing")
		assert.ErrorIs(t, err, domain.ErrConfigurationNotFound)
	})

	t.Run("Remove", func(t *testing.T) {
		store := newStore(t)
		Seed(t, store)
		ctx := context.Background()

		removed, err := store.Remove(ctx, nuixID)
		require.NoError(t, err)
		assert.True(t, removed)
		assert.False(t, store.Contains(nuixID))
		assert.Equal(t, 1, store.Count())

		removed, err = store.Remove(ctx, nuixID)
		require.NoError(t, err)
		assert.False(t, removed)
	})

	t.Run("SetOverwrites", func(t *testing.T) {
		store := newStore(t)
		Seed(t, store)
		ctx := context.Background()

		current, err := store.Get(nuixID)
		require.NoError(t, err)

		updated := current.WithVersion("0.13.0-beta.2").
			WithEnable(false).
			WithSettings(map[string]any{"exeConsolePath": "/opt/nuix/nuix_console"})
		require.NoError(t, store.Set(ctx, nuixID, updated))

		got, err := store.Get(nuixID)
		require.NoError(t, err)
		assert.Equal(t, "0.13.0-beta.2", got.Version)
		assert.False(t, got.Enable)
		assert.Equal(t, "/opt/nuix/nuix_console", got.Settings["exeConsolePath"])
	})

	t.Run("SetMissingNameFails", func(t *testing.T) {
		store := newStore(t)

		err := store.Set(context.Background(), "missing", domain.NewConnectorSettings(nuixID, "0.13.0"))
		require.ErrorIs(t, err, domain.ErrConfigurationNotFound)
		assert.Zero(t, store.Count())
	})

	t.Run("ReturnedValuesAreCopies", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		s := domain.NewConnectorSettings(nuixID, "0.13.0-beta.1").WithSettings(map[string]any{"k": "v"})
		require.NoError(t, store.Add(ctx, "nuix", s))

		got, err := store.Get("nuix")
		require.NoError(t, err)
		got.Settings["k"] = "changed"
		got.Version = "changed"

		all := store.Settings()
		all["nuix"].Settings["k"] = "changed"

		again, err := store.Get("nuix")
		require.NoError(t, err)
		assert.Equal(t, "v", again.Settings["k"])
		assert.Equal(t, "0.13.0-beta.1", again.Version)
	})

	t.Run("NestedValuesAreCopies", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		s := domain.NewConnectorSettings(nuixID, "0.13.0").WithSettings(map[string]any{
			"db":   map[string]any{"host": "orig"},
			"tags": []any{"a", "b"},
		})
		require.NoError(t, store.Add(ctx, "nuix", s))

		got, ok := store.TryGet("nuix")
		require.True(t, ok)
		got.Settings["db"].(map[string]any)["host"] = "mutated"
		got.Settings["tags"].([]any)[0] = "z"

		all := store.Settings()
		all["nuix"].Settings["db"].(map[string]any)["host"] = "mutated"

		byID, ok := store.TryGetByID(nuixID)
		require.True(t, ok)
		byID["nuix"].Settings["db"].(map[string]any)["host"] = "mutated"

		again, err := store.Get("nuix")
		require.NoError(t, err)
		assert.Equal(t, "orig", again.Settings["db"].(map[string]any)["host"])
		assert.Equal(t, []any{"a", "b"}, again.Settings["tags"])
	})

	t.Run("CancelledContext", func(t *testing.T) {
		store := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := store.Add(ctx, "nuix", domain.NewConnectorSettings(nuixID, "0.13.0"))
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, store.Count())
	})
}

// RunPersistenceTests checks that mutations survive reopening the backing
// store. open is called with the same path to reopen it; ext is the file
// extension the backend expects.
func RunPersistenceTests(t *testing.T, ext string, open func(t *testing.T, path string) driven.ConnectorConfiguration) {
	t.Helper()

	t.Run("RoundTrip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "connectors"+ext)
		ctx := context.Background()

		store := open(t, path)
		Seed(t, store)
		require.NoError(t, store.Add(ctx, "disabled", domain.NewConnectorSettings(nuixID, "0.13.0-beta.2").
			WithEnable(false).
			WithSettings(map[string]any{
				"nested": map[string]any{"depth": float64(2), "tags": []any{"a", "b"}},
				"flag":   true,
			})))

		want := store.Settings()

		reopened := open(t, path)
		assert.Equal(t, want, reopened.Settings())
	})

	t.Run("EmptySettingsSurviveRewrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "connectors"+ext)
		ctx := context.Background()

		store := open(t, path)
		require.NoError(t, store.Add(ctx, "empty", domain.NewConnectorSettings(nuixID, "0.13.0").WithSettings(map[string]any{})))
		require.NoError(t, store.Add(ctx, "none", domain.NewConnectorSettings(nuixID, "0.13.0-beta.1")))
		require.NoError(t, store.Add(ctx, "other", domain.NewConnectorSettings(structuredDataID, "0.8.0")))

		reopened := open(t, path)
		empty, err := reopened.Get("empty")
		require.NoError(t, err)
		assert.NotNil(t, empty.Settings)
		assert.Empty(t, empty.Settings)

		none, err := reopened.Get("none")
		require.NoError(t, err)
		assert.Nil(t, none.Settings)
	})

	t.Run("EveryMutationPersists", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "connectors"+ext)
		ctx := context.Background()

		store := open(t, path)
		Seed(t, store)

		current, err := store.Get(structuredDataID)
		require.NoError(t, err)
		require.NoError(t, store.Set(ctx, structuredDataID, current.WithVersion("0.13.0")))

		removed, err := store.Remove(ctx, nuixID)
		require.NoError(t, err)
		require.True(t, removed)

		reopened := open(t, path)
		assert.Equal(t, []string{structuredDataID}, reopened.Keys())

		got, err := reopened.Get(structuredDataID)
		require.NoError(t, err)
		assert.Equal(t, "0.13.0", got.Version)
	})
}
