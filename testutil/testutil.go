package testutil

import (
	"fmt"
	"os"

	"github.com/autom8ter/gamedb/model"
	"github.com/brianvoe/gofakeit/v6"
)

// Collections used across tests
const (
	PlayersCollection = "Players"
	ItemsCollection   = "Items"
	MapsCollection    = "Maps"
)

// MaxDepth is the deepest nesting NewRandomDocument generates
const MaxDepth = 5

// NewPlayerDoc returns a document shaped like a saved player character
func NewPlayerDoc() model.Document {
	return model.MustDocument(map[string]any{
		"Name":     gofakeit.Username(),
		"Level":    gofakeit.IntRange(1, 99),
		"Speed":    gofakeit.Float64Range(0.5, 3.5),
		"Online":   gofakeit.Bool(),
		"Language": gofakeit.Language(),
		"Pos": map[string]any{
			"MapId": gofakeit.IntRange(1, 1000),
			"X":     gofakeit.IntRange(0, 255),
			"Y":     gofakeit.IntRange(0, 255),
		},
		"Inventory": []any{
			int64(gofakeit.IntRange(1, 5000)),
			int64(gofakeit.IntRange(1, 5000)),
		},
		"Stats": map[string]any{
			"Strength": gofakeit.IntRange(1, 10),
			"Agility":  gofakeit.IntRange(1, 10),
		},
	})
}

// NewItemDoc returns a document shaped like an item lying on a map
func NewItemDoc() model.Document {
	return model.MustDocument(map[string]any{
		"Proto": gofakeit.IntRange(1, 5000),
		"Count": gofakeit.IntRange(1, 100),
		"Color": gofakeit.Color(),
		"Owner": gofakeit.Uint32(),
	})
}

// NewRandomDocument returns a non-empty document of random values nested at most maxDepth levels deep
func NewRandomDocument(maxDepth int) model.Document {
	n := gofakeit.IntRange(1, 6)
	doc := make(model.Document, n)
	for len(doc) < n {
		doc[fieldName()] = NewRandomValue(maxDepth)
	}
	return doc
}

// NewRandomValue returns a random value nested at most maxDepth levels deep
func NewRandomValue(maxDepth int) model.Value {
	kinds := 4
	if maxDepth > 1 {
		kinds = 6
	}
	switch gofakeit.IntRange(0, kinds-1) {
	case 0:
		return model.Int(gofakeit.Int64())
	case 1:
		return model.Float(gofakeit.Float64Range(-1e9, 1e9))
	case 2:
		return model.Bool(gofakeit.Bool())
	case 3:
		return model.String(gofakeit.Sentence(gofakeit.IntRange(0, 6)))
	case 4:
		items := make([]model.Value, gofakeit.IntRange(0, 4))
		for i := range items {
			items[i] = NewRandomValue(maxDepth - 1)
		}
		return model.Array(items...)
	default:
		fields := map[string]model.Value{}
		for i := gofakeit.IntRange(0, 4); i > 0; i-- {
			fields[fieldName()] = NewRandomValue(maxDepth - 1)
		}
		return model.Dict(fields)
	}
}

func fieldName() string {
	switch gofakeit.IntRange(0, 3) {
	case 0:
		return gofakeit.Noun()
	case 1:
		return fmt.Sprintf("%s_%d", gofakeit.Adjective(), gofakeit.IntRange(0, 99))
	case 2:
		return gofakeit.Word()
	default:
		return gofakeit.Animal()
	}
}

// TestDir creates a temporary directory and passes it to fn, removing it afterwards
func TestDir(fn func(dir string)) {
	dir, err := os.MkdirTemp("", "gamedb-test-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)
	fn(dir)
}
