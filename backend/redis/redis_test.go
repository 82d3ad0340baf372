package redis_test

import (
	"context"
	"os"
	"testing"

	"github.com/autom8ter/gamedb/backend"
	"github.com/autom8ter/gamedb/backend/backendtest"
	gredis "github.com/autom8ter/gamedb/backend/redis"
	"github.com/autom8ter/gamedb/backend/registry"
	"github.com/autom8ter/gamedb/errors"
	"github.com/autom8ter/gamedb/model"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAddr(t *testing.T) string {
	addr := os.Getenv("GAMEDB_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("GAMEDB_TEST_REDIS_ADDR is not set")
	}
	return addr
}

func TestRedis(t *testing.T) {
	addr := testAddr(t)
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 9})
	require.NoError(t, client.FlushDB(ctx).Err())
	defer client.Close()
	backendtest.Run(t, func() (backend.Backend, error) {
		return gredis.Open(ctx, &redis.Options{Addr: addr, DB: 9})
	}, true)
}

func TestStaging(t *testing.T) {
	addr := testAddr(t)
	ctx := context.Background()
	db, err := registry.OpenConnection("Redis " + addr + " 10")
	require.NoError(t, err)
	defer db.Close(ctx)

	t.Run("queued writes are visible before commit", func(t *testing.T) {
		require.NoError(t, db.InsertRecord(ctx, "Players", 1, model.Document{"Level": model.Int(1)}))
		require.NoError(t, db.UpdateRecord(ctx, "Players", 1, model.Document{"Level": model.Int(2)}))
		doc, err := db.GetRecord(ctx, "Players", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(2), doc["Level"].Int())
		ids, err := db.GetAllIDs(ctx, "Players")
		require.NoError(t, err)
		assert.Equal(t, []model.ID{1}, ids)
		require.NoError(t, db.DeleteRecord(ctx, "Players", 1))
		require.NoError(t, db.CommitRecords(ctx))
		ids, err = db.GetAllIDs(ctx, "Players")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})
}

func TestInvalidDatabaseNumber(t *testing.T) {
	_, err := registry.OpenConnection("Redis localhost:6379 zero")
	assert.True(t, errors.Is(err, errors.UnsupportedBackend), err)
}
