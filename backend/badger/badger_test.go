package badger_test

import (
	"context"
	"testing"

	"github.com/autom8ter/gamedb/backend"
	"github.com/autom8ter/gamedb/backend/backendtest"
	"github.com/autom8ter/gamedb/backend/badger"
	"github.com/autom8ter/gamedb/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadger(t *testing.T) {
	dir := t.TempDir()
	backendtest.Run(t, func() (backend.Backend, error) {
		return badger.Open(dir)
	}, true)
}

func TestInMemory(t *testing.T) {
	backendtest.Run(t, func() (backend.Backend, error) {
		return badger.Open("")
	}, false)
}

func TestStaging(t *testing.T) {
	ctx := context.Background()
	db, err := badger.Open("")
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
	t.Run("large jobs are split", func(t *testing.T) {
		big := model.Document{"Blob": model.String(string(make([]byte, 64<<10)))}
		for i := 1; i <= 400; i++ {
			require.NoError(t, db.InsertRecord(ctx, "Blobs", model.ID(i), big))
		}
		require.NoError(t, db.CommitRecords(ctx))
		ids, err := db.GetAllIDs(ctx, "Blobs")
		require.NoError(t, err)
		assert.Len(t, ids, 400)
	})
}
