// Package mongo stores every collection as a mongodb collection. The record id is kept in _id and field names are
// escaped with codec.EscapeField so '.' and leading '$' survive the round trip.
package mongo

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/autom8ter/gamedb/backend"
	"github.com/autom8ter/gamedb/backend/codec"
	"github.com/autom8ter/gamedb/backend/registry"
	"github.com/autom8ter/gamedb/errors"
	"github.com/autom8ter/gamedb/model"
	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Kind is the connection string keyword of the mongo backend
const Kind = "Mongo"

const connectTimeout = 10 * time.Second

func init() {
	registry.Register(Kind, []string{"uri", "database"}, func(params map[string]any) (backend.Backend, error) {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return Open(ctx, cast.ToString(params["uri"]), cast.ToString(params["database"]))
	})
}

// Mongo is a backend over a mongodb database. Every write is applied immediately.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ backend.Backend = (*Mongo)(nil)

// Open connects to the server and pings it
func Open(ctx context.Context, uri string, database string) (*Mongo, error) {
	if database == "" {
		return nil, errors.New(errors.UnsupportedBackend, "Mongo: empty database name")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, errors.UnsupportedBackend, "Mongo: failed to connect to %s", uri)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, errors.UnsupportedBackend, "Mongo: failed to ping %s", uri)
	}
	return &Mongo{client: client, db: client.Database(database)}, nil
}

func (m *Mongo) Kind() string {
	return Kind
}

// mongoID stores the bit pattern of the id as a signed 64 bit int
func mongoID(id model.ID) int64 {
	return int64(id)
}

func byID(id model.ID) bson.D {
	return bson.D{{Key: codec.IDField, Value: mongoID(id)}}
}

func (m *Mongo) GetRecord(ctx context.Context, collection string, id model.ID) (model.Document, error) {
	var raw bson.D
	if err := m.db.Collection(collection).FindOne(ctx, byID(id)).Decode(&raw); err != nil {
		if stderrors.Is(err, mongo.ErrNoDocuments) {
			return model.Document{}, nil
		}
		return nil, errors.StorageFault(err, collection, uint64(id), "failed to find record")
	}
	doc, err := codec.FromBSON(raw, true)
	if err != nil {
		return nil, errors.StorageFault(err, collection, uint64(id), "failed to decode record")
	}
	return doc, nil
}

func (m *Mongo) InsertRecord(ctx context.Context, collection string, id model.ID, doc model.Document) error {
	if doc.Empty() {
		return errors.StorageFault(errors.New(errors.Validation, "empty document"), collection, uint64(id), "")
	}
	raw := append(byID(id), codec.ToBSON(doc, true)...)
	res, err := m.db.Collection(collection).InsertOne(ctx, raw)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.StorageFault(errors.New(errors.AlreadyExists, "record already exists"), collection, uint64(id), "")
		}
		return errors.StorageFault(err, collection, uint64(id), "failed to insert record")
	}
	if res.InsertedID == nil {
		return errors.StorageFault(errors.New(errors.Internal, "insert not acknowledged"), collection, uint64(id), "")
	}
	return nil
}

func (m *Mongo) UpdateRecord(ctx context.Context, collection string, id model.ID, fields model.Document) error {
	if fields.Empty() {
		return nil
	}
	update := bson.D{{Key: "$set", Value: codec.ToBSON(fields, true)}}
	res, err := m.db.Collection(collection).UpdateOne(ctx, byID(id), update)
	if err != nil {
		return errors.StorageFault(err, collection, uint64(id), "failed to update record")
	}
	if res.MatchedCount != 1 {
		return errors.StorageFault(errors.New(errors.NotFound, "record does not exist"), collection, uint64(id), "")
	}
	return nil
}

func (m *Mongo) DeleteRecord(ctx context.Context, collection string, id model.ID) error {
	res, err := m.db.Collection(collection).DeleteOne(ctx, byID(id))
	if err != nil {
		return errors.StorageFault(err, collection, uint64(id), "failed to delete record")
	}
	if res.DeletedCount != 1 {
		return errors.StorageFault(errors.New(errors.NotFound, "record does not exist"), collection, uint64(id), "")
	}
	return nil
}

// CommitRecords is a no-op: every write is applied when it's made
func (m *Mongo) CommitRecords(ctx context.Context) error {
	return nil
}

func (m *Mongo) GetAllIDs(ctx context.Context, collection string) ([]model.ID, error) {
	opts := options.Find().SetProjection(bson.D{{Key: codec.IDField, Value: 1}})
	cursor, err := m.db.Collection(collection).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, errors.StorageFault(err, collection, 0, "failed to list records")
	}
	defer cursor.Close(ctx)
	ids := []model.ID{}
	for cursor.Next(ctx) {
		var row struct {
			ID int64 `bson:"_id"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, errors.StorageFault(err, collection, 0, "failed to decode record id")
		}
		if err := codec.CheckStoredID(collection, model.ID(row.ID)); err != nil {
			return nil, err
		}
		ids = append(ids, model.ID(row.ID))
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.StorageFault(err, collection, 0, "failed to list records")
	}
	model.SortIDs(ids)
	return ids, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return errors.StorageFault(err, "", 0, "failed to disconnect")
	}
	return nil
}
