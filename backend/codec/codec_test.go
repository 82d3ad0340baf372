package codec_test

import (
	"math"
	"strings"
	"testing"

	"github.com/autom8ter/gamedb/backend/codec"
	"github.com/autom8ter/gamedb/model"
	"github.com/autom8ter/gamedb/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestMsgpack(t *testing.T) {
	t.Run("kinds survive", func(t *testing.T) {
		doc := model.Document{
			"Int":       model.Int(2),
			"Float":     model.Float(2),
			"Negative":  model.Int(-129),
			"Large":     model.Int(math.MaxInt64),
			"Small":     model.Int(math.MinInt64),
			"Bool":      model.Bool(false),
			"Str":       model.String(""),
			"Empty":     model.Array(),
			"EmptyDict": model.Dict(nil),
		}
		bits, err := codec.Marshal(doc)
		require.NoError(t, err)
		back, err := codec.Unmarshal(bits)
		require.NoError(t, err)
		assert.True(t, doc.Equal(back), "%#v", back)
		assert.Equal(t, model.FloatKind, back["Float"].Kind())
		assert.Equal(t, model.IntKind, back["Int"].Kind())
	})
	t.Run("random documents", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			doc := testutil.NewRandomDocument(testutil.MaxDepth)
			bits, err := codec.Marshal(doc)
			require.NoError(t, err)
			back, err := codec.Unmarshal(bits)
			require.NoError(t, err)
			assert.True(t, doc.Equal(back), "expected %#v got %#v", doc, back)
		}
	})
	t.Run("deterministic", func(t *testing.T) {
		doc := testutil.NewPlayerDoc()
		a, err := codec.Marshal(doc)
		require.NoError(t, err)
		b, err := codec.Marshal(doc.Clone())
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
	t.Run("invalid value", func(t *testing.T) {
		_, err := codec.Marshal(model.Document{"Broken": model.Value{}})
		assert.Error(t, err)
	})
	t.Run("corrupt input", func(t *testing.T) {
		_, err := codec.Unmarshal([]byte{0x93, 0x01})
		assert.Error(t, err)
	})
}

func TestBSON(t *testing.T) {
	t.Run("random documents", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			doc := testutil.NewRandomDocument(testutil.MaxDepth)
			raw, err := bson.Marshal(codec.ToBSON(doc, true))
			require.NoError(t, err)
			var d bson.D
			require.NoError(t, bson.Unmarshal(raw, &d))
			back, err := codec.FromBSON(d, true)
			require.NoError(t, err)
			assert.True(t, doc.Equal(back), "expected %#v got %#v", doc, back)
		}
	})
	t.Run("escaped names", func(t *testing.T) {
		doc := model.Document{
			"a.b": model.Dict(map[string]model.Value{
				"$set": model.Array(model.Dict(map[string]model.Value{"x.y.z": model.Int(1)})),
			}),
		}
		escaped := codec.ToBSON(doc, true)
		assert.Equal(t, "a．b", escaped[0].Key)
		inner := escaped[0].Value.(bson.D)
		assert.Equal(t, "＄set", inner[0].Key)
		back, err := codec.FromBSON(escaped, true)
		require.NoError(t, err)
		assert.True(t, doc.Equal(back))
	})
	t.Run("escape field", func(t *testing.T) {
		for _, name := range []string{"plain", "a.b", "$inc", "$a.$b", "mid$dle", ""} {
			escaped := codec.EscapeField(name)
			assert.False(t, strings.Contains(escaped, "."))
			assert.False(t, strings.HasPrefix(escaped, "$"))
			assert.Equal(t, name, codec.UnescapeField(escaped))
		}
	})
	t.Run("skips id and widens int32", func(t *testing.T) {
		back, err := codec.FromBSON(bson.M{
			"_id":   int64(7),
			"Level": int32(3),
			"Pos":   bson.M{"X": 1.5},
			"Items": bson.A{int32(1), "sword"},
		}, false)
		require.NoError(t, err)
		assert.True(t, model.Document{
			"Level": model.Int(3),
			"Pos":   model.Dict(map[string]model.Value{"X": model.Float(1.5)}),
			"Items": model.Array(model.Int(1), model.String("sword")),
		}.Equal(back), "%#v", back)
	})
	t.Run("unsupported value", func(t *testing.T) {
		_, err := codec.FromBSON(bson.M{"Nil": nil}, false)
		assert.Error(t, err)
	})
}

func TestExtJSON(t *testing.T) {
	t.Run("canonical and indented", func(t *testing.T) {
		bits, err := codec.MarshalExtJSON(model.Document{
			"Level": model.Int(1),
			"Speed": model.Float(2),
		})
		require.NoError(t, err)
		out := string(bits)
		assert.Contains(t, out, `"$numberLong"`)
		assert.Contains(t, out, `"$numberDouble"`)
		assert.Contains(t, out, "\n    \"Level\"")
	})
	t.Run("random documents", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			doc := testutil.NewRandomDocument(testutil.MaxDepth)
			bits, err := codec.MarshalExtJSON(doc)
			require.NoError(t, err)
			back, err := codec.UnmarshalExtJSON(bits)
			require.NoError(t, err)
			assert.True(t, doc.Equal(back), "expected %#v got %#v", doc, back)
		}
	})
	t.Run("relaxed input", func(t *testing.T) {
		back, err := codec.UnmarshalExtJSON([]byte(`{"Name": "Ann", "Level": {"$numberInt": "4"}}`))
		require.NoError(t, err)
		assert.True(t, model.Document{"Name": model.String("Ann"), "Level": model.Int(4)}.Equal(back))
	})
}

func TestKeys(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		key := codec.RecordKey("Players", 7)
		id, err := codec.IDFromKey("Players", key)
		require.NoError(t, err)
		assert.Equal(t, model.ID(7), id)
		_, err = codec.IDFromKey("Items", key)
		assert.Error(t, err)
	})
	t.Run("prefixes don't overlap", func(t *testing.T) {
		key := codec.RecordKey("Players2", 1)
		assert.False(t, strings.HasPrefix(string(key), string(codec.CollectionPrefix("Players"))))
	})
	t.Run("prefix end", func(t *testing.T) {
		prefix := codec.CollectionPrefix("Players")
		end := codec.PrefixEnd(prefix)
		assert.Greater(t, string(end), string(codec.RecordKey("Players", math.MaxUint64)))
		assert.Nil(t, codec.PrefixEnd([]byte{0xff, 0xff}))
	})
}
