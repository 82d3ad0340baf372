package pebble_test

import (
	"context"
	"testing"

	"github.com/autom8ter/gamedb/backend"
	"github.com/autom8ter/gamedb/backend/backendtest"
	"github.com/autom8ter/gamedb/backend/pebble"
	"github.com/autom8ter/gamedb/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPebble(t *testing.T) {
	dir := t.TempDir()
	backendtest.Run(t, func() (backend.Backend, error) {
		return pebble.Open(dir, pebble.WithCacheSize(1<<20))
	}, true)
}

func TestStaging(t *testing.T) {
	ctx := context.Background()
	db, err := pebble.Open(t.TempDir(), pebble.WithSync(false))
	require.NoError(t, err)
	defer db.Close(ctx)

	t.Run("staged writes are visible before commit", func(t *testing.T) {
		require.NoError(t, db.InsertRecord(ctx, "Players", 1, model.Document{"Level": model.Int(1)}))
		require.NoError(t, db.UpdateRecord(ctx, "Players", 1, model.Document{"Level": model.Int(2)}))
		doc, err := db.GetRecord(ctx, "Players", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), doc["Level"].Int())
		ids, err := db.GetAllIDs(ctx, "Players")
		require.NoError(t, err)
		assert.Equal(t, []model.ID{1}, ids)
		require.NoError(t, db.CommitRecords(ctx))
	})
	t.Run("deleting a staged insert", func(t *testing.T) {
		require.NoError(t, db.InsertRecord(ctx, "Players", 2, model.Document{"Level": model.Int(1)}))
		require.NoError(t, db.DeleteRecord(ctx, "Players", 2))
		require.NoError(t, db.CommitRecords(ctx))
		ids, err := db.GetAllIDs(ctx, "Players")
		require.NoError(t, err)
		assert.Equal(t, []model.ID{1}, ids)
	})
	t.Run("empty commit", func(t *testing.T) {
		assert.NoError(t, db.CommitRecords(ctx))
	})
}
