package registry_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	_ "github.com/autom8ter/gamedb/backend/badger"
	_ "github.com/autom8ter/gamedb/backend/bolt"
	_ "github.com/autom8ter/gamedb/backend/jsonfile"
	_ "github.com/autom8ter/gamedb/backend/memory"
	_ "github.com/autom8ter/gamedb/backend/mongo"
	_ "github.com/autom8ter/gamedb/backend/pebble"
	_ "github.com/autom8ter/gamedb/backend/redis"
	"github.com/autom8ter/gamedb/backend/registry"
	"github.com/autom8ter/gamedb/errors"
	"github.com/autom8ter/gamedb/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenConnection(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	var providers = []string{"JSON", "Bolt", "Badger", "Pebble", "Memory"}
	for _, provider := range providers {
		t.Run(provider, func(t *testing.T) {
			conn := provider
			if provider != "Memory" {
				conn = fmt.Sprintf("%s %s", provider, filepath.Join(dir, provider))
			}
			db, err := registry.OpenConnection(conn)
			require.NoError(t, err)
			defer db.Close(ctx)
			assert.Equal(t, provider, db.Kind())
			assert.NoError(t, db.InsertRecord(ctx, "Players", 7, model.Document{"Name": model.String("Ann")}))
			assert.NoError(t, db.CommitRecords(ctx))
			doc, err := db.GetRecord(ctx, "Players", 7)
			assert.NoError(t, err)
			assert.Equal(t, "Ann", doc["Name"].Str())
		})
	}
}

func TestParseConnection(t *testing.T) {
	t.Run("case insensitive keyword", func(t *testing.T) {
		kind, params, err := registry.ParseConnection("  json   ./data ")
		require.NoError(t, err)
		assert.Equal(t, "JSON", kind)
		assert.Equal(t, map[string]any{"storage_dir": "./data"}, params)
	})
	t.Run("mongo", func(t *testing.T) {
		kind, params, err := registry.ParseConnection("MONGO mongodb://localhost:27017 game")
		require.NoError(t, err)
		assert.Equal(t, "Mongo", kind)
		assert.Equal(t, map[string]any{"uri": "mongodb://localhost:27017", "database": "game"}, params)
	})
	t.Run("memory takes no parameters", func(t *testing.T) {
		_, _, err := registry.ParseConnection("Memory extra")
		assert.True(t, errors.Is(err, errors.UnsupportedBackend), err)
	})
	t.Run("missing parameter", func(t *testing.T) {
		_, _, err := registry.ParseConnection("JSON")
		assert.True(t, errors.Is(err, errors.UnsupportedBackend), err)
	})
	t.Run("too many parameters", func(t *testing.T) {
		_, _, err := registry.ParseConnection("Bolt a b")
		assert.True(t, errors.Is(err, errors.UnsupportedBackend), err)
	})
	t.Run("unknown backend", func(t *testing.T) {
		_, _, err := registry.ParseConnection("Oracle scott tiger")
		assert.True(t, errors.Is(err, errors.UnsupportedBackend), err)
	})
	t.Run("storage dir with spaces", func(t *testing.T) {
		_, _, err := registry.ParseConnection("JSON ./game data")
		assert.True(t, errors.Is(err, errors.UnsupportedBackend), err)
	})
	t.Run("empty", func(t *testing.T) {
		_, _, err := registry.ParseConnection("   ")
		assert.True(t, errors.Is(err, errors.UnsupportedBackend), err)
	})
}

func TestOpen(t *testing.T) {
	t.Run("missing named parameter", func(t *testing.T) {
		_, err := registry.Open("JSON", map[string]any{})
		assert.True(t, errors.Is(err, errors.UnsupportedBackend), err)
	})
	t.Run("storage dir with spaces", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "game data")
		db, err := registry.Open("JSON", map[string]any{"storage_dir": dir})
		require.NoError(t, err)
		ctx := context.Background()
		require.NoError(t, db.InsertRecord(ctx, "Players", 7, model.Document{"Name": model.String("Ann")}))
		require.NoError(t, db.CommitRecords(ctx))
		ids, err := db.GetAllIDs(ctx, "Players")
		require.NoError(t, err)
		assert.Equal(t, []model.ID{7}, ids)
		assert.NoError(t, db.Close(ctx))
	})
	t.Run("kinds", func(t *testing.T) {
		assert.Equal(t, []string{"Badger", "Bolt", "JSON", "Memory", "Mongo", "Pebble", "Redis"}, registry.Kinds())
	})
	t.Run("usage", func(t *testing.T) {
		assert.Equal(t, "Mongo <uri> <database>", registry.Usage("mongo"))
		assert.Equal(t, "Memory", registry.Usage("Memory"))
		assert.Equal(t, "", registry.Usage("Oracle"))
	})
}
