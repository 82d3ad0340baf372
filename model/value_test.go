package model_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/autom8ter/gamedb/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	t.Run("scalars", func(t *testing.T) {
		assert.Equal(t, int64(5), model.Int(5).Int())
		assert.Equal(t, 2.5, model.Float(2.5).Float())
		assert.True(t, model.Bool(true).Bool())
		assert.Equal(t, "x", model.String("x").Str())
		assert.False(t, model.Value{}.Valid())
		assert.Equal(t, model.InvalidKind, model.Value{}.Kind())
	})
	t.Run("int and float are distinct", func(t *testing.T) {
		assert.False(t, model.Int(1).Equal(model.Float(1)))
	})
	t.Run("nan equals nan", func(t *testing.T) {
		assert.True(t, model.Float(math.NaN()).Equal(model.Float(math.NaN())))
	})
	t.Run("array copies its input", func(t *testing.T) {
		items := []model.Value{model.Int(1), model.Int(2)}
		arr := model.Array(items...)
		items[0] = model.Int(100)
		first, ok := arr.Index(0)
		assert.True(t, ok)
		assert.Equal(t, int64(1), first.Int())
		_, ok = arr.Index(2)
		assert.False(t, ok)
	})
	t.Run("dict copies its input and output", func(t *testing.T) {
		fields := map[string]model.Value{"a": model.Int(1)}
		dict := model.Dict(fields)
		fields["a"] = model.Int(2)
		out := dict.Fields()
		out["a"] = model.Int(3)
		a, ok := dict.Field("a")
		assert.True(t, ok)
		assert.Equal(t, int64(1), a.Int())
		assert.Equal(t, []string{"a"}, dict.Keys())
		assert.Equal(t, 1, dict.Len())
	})
	t.Run("deep equal", func(t *testing.T) {
		a := model.MustValueOf(map[string]any{"x": []any{int64(1), "two", map[string]any{"y": true}}})
		b := model.MustValueOf(map[string]any{"x": []any{1, "two", map[string]any{"y": true}}})
		assert.True(t, a.Equal(b))
		c := model.MustValueOf(map[string]any{"x": []any{1, "two", map[string]any{"y": false}}})
		assert.False(t, a.Equal(c))
	})
	t.Run("native", func(t *testing.T) {
		v := model.MustValueOf(map[string]any{"x": []any{1, 2.5}})
		assert.Equal(t, map[string]any{"x": []any{int64(1), 2.5}}, v.Native())
	})
	t.Run("value of", func(t *testing.T) {
		v, err := model.ValueOf(uint32(7))
		require.NoError(t, err)
		assert.Equal(t, model.IntKind, v.Kind())
		v, err = model.ValueOf(float32(0.5))
		require.NoError(t, err)
		assert.Equal(t, model.FloatKind, v.Kind())
		v, err = model.ValueOf([]string{"a", "b"})
		require.NoError(t, err)
		assert.Equal(t, 2, v.Len())
		_, err = model.ValueOf(nil)
		assert.Error(t, err)
		_, err = model.ValueOf(model.Value{})
		assert.Error(t, err)
	})
	t.Run("json round trip keeps int and float apart", func(t *testing.T) {
		var v model.Value
		require.NoError(t, json.Unmarshal([]byte(`{"i":2,"f":2.0,"e":1e3,"a":[true,"s"]}`), &v))
		i, _ := v.Field("i")
		f, _ := v.Field("f")
		e, _ := v.Field("e")
		assert.Equal(t, model.IntKind, i.Kind())
		assert.Equal(t, model.FloatKind, f.Kind())
		assert.Equal(t, model.FloatKind, e.Kind())
		assert.Equal(t, 1000.0, e.Float())
	})
	t.Run("parse document", func(t *testing.T) {
		doc, err := model.ParseDocument([]byte(`{"Name":"Ann","Level":1,"Items":[]}`))
		require.NoError(t, err)
		assert.True(t, doc.Equal(model.Document{
			"Name":  model.String("Ann"),
			"Level": model.Int(1),
			"Items": model.Array(),
		}))
		_, err = model.ParseDocument([]byte(`[1,2]`))
		assert.Error(t, err)
		_, err = model.ParseDocument([]byte(`{"a":null}`))
		assert.Error(t, err)
		_, err = model.ParseDocument([]byte(`{"a":`))
		assert.Error(t, err)
	})
	t.Run("large integers survive parsing", func(t *testing.T) {
		v, err := model.ParseValue([]byte(`9007199254740993`))
		require.NoError(t, err)
		assert.Equal(t, int64(9007199254740993), v.Int())
	})
}
