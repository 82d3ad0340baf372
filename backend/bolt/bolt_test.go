package bolt_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/autom8ter/gamedb/backend"
	"github.com/autom8ter/gamedb/backend/backendtest"
	"github.com/autom8ter/gamedb/backend/bolt"
	"github.com/autom8ter/gamedb/errors"
	"github.com/autom8ter/gamedb/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBolt(t *testing.T) {
	dir := t.TempDir()
	backendtest.Run(t, func() (backend.Backend, error) {
		return bolt.Open(dir)
	}, true)
}

func TestStaging(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := bolt.Open(dir, bolt.WithLockTimeout(100*time.Millisecond))
	require.NoError(t, err)
	defer db.Close(ctx)

	t.Run("one file per collection", func(t *testing.T) {
		require.NoError(t, db.InsertRecord(ctx, "Players", 1, model.Document{"Level": model.Int(1)}))
		require.NoError(t, db.InsertRecord(ctx, "Items", 1, model.Document{"Count": model.Int(1)}))
		require.NoError(t, db.CommitRecords(ctx))
		_, err := os.Stat(filepath.Join(dir, "Players.bolt"))
		assert.NoError(t, err)
		_, err = os.Stat(filepath.Join(dir, "Items.bolt"))
		assert.NoError(t, err)
	})
	t.Run("staged writes are visible before commit", func(t *testing.T) {
		require.NoError(t, db.InsertRecord(ctx, "Players", 2, model.Document{"Level": model.Int(2)}))
		require.NoError(t, db.UpdateRecord(ctx, "Players", 2, model.Document{"Level": model.Int(3)}))
		doc, err := db.GetRecord(ctx, "Players", 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), doc["Level"].Int())
		require.NoError(t, db.CommitRecords(ctx))
	})
	t.Run("uncommitted writes are lost on close", func(t *testing.T) {
		other := t.TempDir()
		db2, err := bolt.Open(other)
		require.NoError(t, err)
		require.NoError(t, db2.InsertRecord(ctx, "Players", 5, model.Document{"Level": model.Int(1)}))
		require.NoError(t, db2.Close(ctx))
		db2, err = bolt.Open(other)
		require.NoError(t, err)
		defer db2.Close(ctx)
		doc, err := db2.GetRecord(ctx, "Players", 5)
		require.NoError(t, err)
		assert.True(t, doc.Empty())
	})
	t.Run("reading a missing collection creates no file", func(t *testing.T) {
		ids, err := db.GetAllIDs(ctx, "Ghosts")
		require.NoError(t, err)
		assert.Empty(t, ids)
		_, err = os.Stat(filepath.Join(dir, "Ghosts.bolt"))
		assert.True(t, os.IsNotExist(err))
	})
	t.Run("a locked file can't be shared", func(t *testing.T) {
		db2, err := bolt.Open(dir, bolt.WithLockTimeout(100*time.Millisecond))
		require.NoError(t, err)
		defer db2.Close(ctx)
		_, err = db2.GetAllIDs(ctx, "Players")
		assert.True(t, errors.Is(err, errors.Storage), err)
	})
	t.Run("unwritable directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, nil, 0o600))
		_, err := bolt.Open(filepath.Join(file, "data"))
		assert.True(t, errors.Is(err, errors.UnsupportedBackend), err)
	})
}
