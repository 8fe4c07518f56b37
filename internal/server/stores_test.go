package server

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/mansoorceksport/liftlog/internal/config"
	"github.com/mansoorceksport/liftlog/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	t.Run("sqlite", func(t *testing.T) {
		cfg := &config.Config{Store: config.StoreConfig{
			Driver:     config.StoreSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "nested", "liftlog.db"),
		}}
		store, closer, err := OpenStore(ctx, cfg, nil)
		require.NoError(t, err)
		defer closer()

		require.NoError(t, store.Set(ctx, domain.UserDocPath("u1"), map[string]any{"last_week_reset": "2024-03-04"}, true))
		doc, err := store.Get(ctx, domain.UserDocPath("u1"))
		require.NoError(t, err)
		assert.Equal(t, "2024-03-04", doc.Data["last_week_reset"])
	})

	t.Run("memory", func(t *testing.T) {
		store, closer, err := OpenStore(ctx, &config.Config{Store: config.StoreConfig{Driver: config.StoreMemory}}, nil)
		require.NoError(t, err)
		defer closer()
		assert.NotNil(t, store)
	})

	t.Run("firestore without firebase app", func(t *testing.T) {
		_, _, err := OpenStore(ctx, &config.Config{Store: config.StoreConfig{Driver: config.StoreFirestore}}, nil)
		assert.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, _, err := OpenStore(ctx, &config.Config{Store: config.StoreConfig{Driver: "etcd"}}, nil)
		assert.Error(t, err)
	})
}

func TestOpenRedis(t *testing.T) {
	ctx := context.Background()

	client, err := OpenRedis(ctx, &config.Config{})
	require.NoError(t, err)
	assert.Nil(t, client, "disabled without an address")

	mr := miniredis.RunT(t)
	client, err = OpenRedis(ctx, &config.Config{Redis: config.RedisConfig{Addr: mr.Addr()}})
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.NoError(t, client.Close())
}

func TestOpenArchiveDisabled(t *testing.T) {
	archive, err := OpenArchive(context.Background(), &config.Config{})
	require.NoError(t, err)
	assert.Nil(t, archive)
}
