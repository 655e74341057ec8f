package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/trade-companion/internal/config"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLite(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Load(ctx, "session")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Save(ctx, "session", []byte(`{"v":1}`)))
			data, err := store.Load(ctx, "session")
			require.NoError(t, err)
			assert.Equal(t, []byte(`{"v":1}`), data)

			// Overwrite replaces the snapshot wholesale.
			require.NoError(t, store.Save(ctx, "session", []byte(`{"v":2}`)))
			data, err = store.Load(ctx, "session")
			require.NoError(t, err)
			assert.Equal(t, []byte(`{"v":2}`), data)

			// Keys are namespaced per container.
			require.NoError(t, store.Save(ctx, "tickets", []byte(`[]`)))
			data, err = store.Load(ctx, "session")
			require.NoError(t, err)
			assert.Equal(t, []byte(`{"v":2}`), data)

			require.NoError(t, store.Delete(ctx, "session"))
			_, err = store.Load(ctx, "session")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Delete(ctx, "session"), "delete is idempotent")
		})
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	ctx := context.Background()

	store, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "language", []byte(`{"language":"de"}`)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	data, err := reopened.Load(ctx, "language")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"language":"de"}`), data)
}

func TestOpenSelectsDriver(t *testing.T) {
	logger := zap.NewNop()

	store, err := Open(config.StorageConfig{Driver: "memory"}, logger)
	require.NoError(t, err)
	assert.NoError(t, store.Close())

	store, err = Open(config.StorageConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "open.db"),
	}, logger)
	require.NoError(t, err)
	assert.NoError(t, store.Close())

	_, err = Open(config.StorageConfig{Driver: "bolt"}, logger)
	assert.Error(t, err)
}
