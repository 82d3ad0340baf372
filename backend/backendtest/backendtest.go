// Package backendtest is a conformance suite every backend.Backend implementation runs from its tests
package backendtest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/autom8ter/gamedb/backend"
	"github.com/autom8ter/gamedb/errors"
	"github.com/autom8ter/gamedb/model"
	"github.com/autom8ter/gamedb/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Opener opens the backend under test. Durable backends must return a backend over the same storage on every call.
type Opener func() (backend.Backend, error)

var collectionSeq int64

func collection(name string) string {
	return fmt.Sprintf("%s%d", name, atomic.AddInt64(&collectionSeq, 1))
}

// Run runs the conformance suite against the backend returned by open. If durable is true, committed records must
// survive closing the backend and opening it again.
func Run(t *testing.T, open Opener, durable bool) {
	ctx := context.Background()
	db, err := open()
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, db.Close(ctx))
	}()

	t.Run("get missing record", func(t *testing.T) {
		doc, err := db.GetRecord(ctx, collection(testutil.PlayersCollection), 1)
		assert.NoError(t, err)
		assert.True(t, doc.Empty())
	})
	t.Run("insert and get", func(t *testing.T) {
		c := collection(testutil.PlayersCollection)
		player := testutil.NewPlayerDoc()
		assert.NoError(t, db.InsertRecord(ctx, c, 7, player))
		assert.NoError(t, db.CommitRecords(ctx))
		doc, err := db.GetRecord(ctx, c, 7)
		assert.NoError(t, err)
		assert.True(t, player.Equal(doc), "expected %#v got %#v", player, doc)
	})
	t.Run("insert empty document", func(t *testing.T) {
		c := collection(testutil.PlayersCollection)
		err := db.InsertRecord(ctx, c, 1, model.Document{})
		assert.True(t, errors.Is(err, errors.Storage), err)
		assert.NoError(t, db.CommitRecords(ctx))
	})
	t.Run("insert existing record", func(t *testing.T) {
		c := collection(testutil.ItemsCollection)
		assert.NoError(t, db.InsertRecord(ctx, c, 3, testutil.NewItemDoc()))
		assert.NoError(t, db.CommitRecords(ctx))
		err := db.InsertRecord(ctx, c, 3, testutil.NewItemDoc())
		assert.True(t, errors.Is(err, errors.Storage), err)
		assert.NoError(t, db.CommitRecords(ctx))
	})
	t.Run("update merges fields", func(t *testing.T) {
		c := collection(testutil.PlayersCollection)
		player := testutil.NewPlayerDoc()
		assert.NoError(t, db.InsertRecord(ctx, c, 2, player))
		assert.NoError(t, db.CommitRecords(ctx))
		changes := model.Document{
			"Level":    model.Int(100),
			"Guild":    model.String("Knights"),
			"Position": model.Dict(map[string]model.Value{"X": model.Float(1.5)}),
		}
		assert.NoError(t, db.UpdateRecord(ctx, c, 2, changes))
		assert.NoError(t, db.CommitRecords(ctx))
		doc, err := db.GetRecord(ctx, c, 2)
		assert.NoError(t, err)
		expected := player.Clone()
		expected.Merge(changes)
		assert.True(t, expected.Equal(doc), "expected %#v got %#v", expected, doc)
	})
	t.Run("update missing record", func(t *testing.T) {
		c := collection(testutil.PlayersCollection)
		err := db.UpdateRecord(ctx, c, 9, model.Document{"Level": model.Int(1)})
		assert.True(t, errors.Is(err, errors.Storage), err)
		assert.NoError(t, db.CommitRecords(ctx))
	})
	t.Run("delete", func(t *testing.T) {
		c := collection(testutil.ItemsCollection)
		assert.NoError(t, db.InsertRecord(ctx, c, 4, testutil.NewItemDoc()))
		assert.NoError(t, db.CommitRecords(ctx))
		assert.NoError(t, db.DeleteRecord(ctx, c, 4))
		assert.NoError(t, db.CommitRecords(ctx))
		doc, err := db.GetRecord(ctx, c, 4)
		assert.NoError(t, err)
		assert.True(t, doc.Empty())
	})
	t.Run("delete missing record", func(t *testing.T) {
		c := collection(testutil.ItemsCollection)
		err := db.DeleteRecord(ctx, c, 4)
		assert.True(t, errors.Is(err, errors.Storage), err)
		assert.NoError(t, db.CommitRecords(ctx))
	})
	t.Run("get all ids", func(t *testing.T) {
		c := collection(testutil.MapsCollection)
		ids, err := db.GetAllIDs(ctx, c)
		assert.NoError(t, err)
		assert.Empty(t, ids)
		for _, id := range []model.ID{300, 2, 1 << 33, 17} {
			assert.NoError(t, db.InsertRecord(ctx, c, id, testutil.NewItemDoc()))
		}
		assert.NoError(t, db.CommitRecords(ctx))
		assert.NoError(t, db.DeleteRecord(ctx, c, 17))
		assert.NoError(t, db.CommitRecords(ctx))
		ids, err = db.GetAllIDs(ctx, c)
		assert.NoError(t, err)
		assert.Equal(t, []model.ID{2, 300, 1 << 33}, ids)
	})
	t.Run("get all ids rejects id 0", func(t *testing.T) {
		c := collection(testutil.MapsCollection)
		assert.NoError(t, db.InsertRecord(ctx, c, 5, testutil.NewItemDoc()))
		assert.NoError(t, db.InsertRecord(ctx, c, 0, testutil.NewItemDoc()))
		assert.NoError(t, db.CommitRecords(ctx))
		_, err := db.GetAllIDs(ctx, c)
		assert.True(t, errors.Is(err, errors.Storage), err)
		assert.Equal(t, c, errors.Extract(err).Collection)
	})
	t.Run("collections are isolated", func(t *testing.T) {
		a, b := collection("A"), collection("A")
		assert.NoError(t, db.InsertRecord(ctx, a, 1, testutil.NewItemDoc()))
		assert.NoError(t, db.CommitRecords(ctx))
		doc, err := db.GetRecord(ctx, b, 1)
		assert.NoError(t, err)
		assert.True(t, doc.Empty())
		ids, err := db.GetAllIDs(ctx, b)
		assert.NoError(t, err)
		assert.Empty(t, ids)
	})
	t.Run("random documents round trip", func(t *testing.T) {
		c := collection("Random")
		docs := map[model.ID]model.Document{}
		for i := 1; i <= 25; i++ {
			docs[model.ID(i)] = testutil.NewRandomDocument(testutil.MaxDepth)
			assert.NoError(t, db.InsertRecord(ctx, c, model.ID(i), docs[model.ID(i)]))
		}
		assert.NoError(t, db.CommitRecords(ctx))
		for id, expected := range docs {
			doc, err := db.GetRecord(ctx, c, id)
			assert.NoError(t, err)
			assert.True(t, expected.Equal(doc), "expected %#v got %#v", expected, doc)
		}
	})
	if !durable {
		return
	}
	t.Run("committed records survive reopening", func(t *testing.T) {
		c := collection(testutil.PlayersCollection)
		player := testutil.NewPlayerDoc()
		assert.NoError(t, db.InsertRecord(ctx, c, 7, player))
		assert.NoError(t, db.CommitRecords(ctx))
		require.NoError(t, db.Close(ctx))
		db, err = open()
		require.NoError(t, err)
		doc, err := db.GetRecord(ctx, c, 7)
		assert.NoError(t, err)
		assert.True(t, player.Equal(doc), "expected %#v got %#v", player, doc)
		ids, err := db.GetAllIDs(ctx, c)
		assert.NoError(t, err)
		assert.Equal(t, []model.ID{7}, ids)
	})
}
