package mongo_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/autom8ter/gamedb/backend"
	"github.com/autom8ter/gamedb/backend/backendtest"
	"github.com/autom8ter/gamedb/backend/mongo"
	"github.com/autom8ter/gamedb/backend/registry"
	"github.com/autom8ter/gamedb/errors"
	"github.com/autom8ter/gamedb/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testURI(t *testing.T) string {
	uri := os.Getenv("GAMEDB_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("GAMEDB_TEST_MONGO_URI is not set")
	}
	return uri
}

func TestMongo(t *testing.T) {
	uri := testURI(t)
	database := fmt.Sprintf("gamedb_test_%d", time.Now().UnixNano())
	backendtest.Run(t, func() (backend.Backend, error) {
		return mongo.Open(context.Background(), uri, database)
	}, true)
}

func TestEscaping(t *testing.T) {
	uri := testURI(t)
	ctx := context.Background()
	db, err := registry.OpenConnection(fmt.Sprintf("Mongo %s gamedb_test_%d", uri, time.Now().UnixNano()))
	require.NoError(t, err)
	defer db.Close(ctx)

	t.Run("reserved characters in field names", func(t *testing.T) {
		doc := model.Document{
			"a.b":  model.Int(1),
			"$set": model.Dict(map[string]model.Value{"x.y": model.Bool(true)}),
		}
		require.NoError(t, db.InsertRecord(ctx, "Players", 1, doc))
		require.NoError(t, db.UpdateRecord(ctx, "Players", 1, model.Document{"c.d": model.String("e")}))
		back, err := db.GetRecord(ctx, "Players", 1)
		require.NoError(t, err)
		expected := doc.Clone()
		expected["c.d"] = model.String("e")
		assert.True(t, expected.Equal(back), "%#v", back)
	})
	t.Run("ids above the signed range", func(t *testing.T) {
		big := model.ID(1<<63 + 5)
		require.NoError(t, db.InsertRecord(ctx, "Items", big, model.Document{"Count": model.Int(1)}))
		require.NoError(t, db.InsertRecord(ctx, "Items", 3, model.Document{"Count": model.Int(1)}))
		ids, err := db.GetAllIDs(ctx, "Items")
		require.NoError(t, err)
		assert.Equal(t, []model.ID{3, big}, ids)
	})
}

func TestUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err := mongo.Open(ctx, "mongodb://127.0.0.1:1/?connectTimeoutMS=200&serverSelectionTimeoutMS=200", "game")
	assert.True(t, errors.Is(err, errors.UnsupportedBackend), err)
}
