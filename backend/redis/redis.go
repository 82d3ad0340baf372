// Package redis stores every collection in a redis hash named gamedb:<collection>, one msgpack encoded field per record
package redis

import (
	"context"
	stderrors "errors"

	"github.com/autom8ter/gamedb/backend"
	"github.com/autom8ter/gamedb/backend/codec"
	"github.com/autom8ter/gamedb/backend/registry"
	"github.com/autom8ter/gamedb/errors"
	"github.com/autom8ter/gamedb/model"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cast"
)

// Kind is the connection string keyword of the redis backend
const Kind = "Redis"

const keyPrefix = "gamedb:"

func init() {
	registry.Register(Kind, []string{"addr", "db"}, func(params map[string]any) (backend.Backend, error) {
		db, err := cast.ToIntE(params["db"])
		if err != nil {
			return nil, errors.Wrap(err, errors.UnsupportedBackend, "Redis: invalid database number %v", params["db"])
		}
		return Open(context.Background(), &redis.Options{
			Addr: cast.ToString(params["addr"]),
			DB:   db,
		})
	})
}

// Redis is a backend over a redis server. Writes are queued in a MULTI/EXEC pipeline until CommitRecords,
// and reads observe queued writes.
type Redis struct {
	client *redis.Client
	pipe   redis.Pipeliner
	// staged holds queued writes per collection; a nil document marks a queued delete
	staged map[string]map[model.ID]model.Document
}

var _ backend.Backend = (*Redis)(nil)

// Open connects to the server and pings it
func Open(ctx context.Context, opts *redis.Options) (*Redis, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, errors.UnsupportedBackend, "Redis: failed to ping %s", opts.Addr)
	}
	return &Redis{
		client: client,
		staged: map[string]map[model.ID]model.Document{},
	}, nil
}

func (r *Redis) Kind() string {
	return Kind
}

func hashKey(collection string) string {
	return keyPrefix + collection
}

func (r *Redis) get(ctx context.Context, collection string, id model.ID) (model.Document, bool, error) {
	if doc, ok := r.staged[collection][id]; ok {
		if doc == nil {
			return model.Document{}, false, nil
		}
		return doc.Clone(), true, nil
	}
	bits, err := r.client.HGet(ctx, hashKey(collection), id.String()).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return model.Document{}, false, nil
		}
		return nil, false, errors.StorageFault(err, collection, uint64(id), "failed to read record")
	}
	doc, err := codec.Unmarshal(bits)
	if err != nil {
		return nil, false, errors.StorageFault(err, collection, uint64(id), "failed to decode record")
	}
	return doc, true, nil
}

func (r *Redis) stage(collection string, id model.ID, doc model.Document) {
	if r.pipe == nil {
		r.pipe = r.client.TxPipeline()
	}
	if r.staged[collection] == nil {
		r.staged[collection] = map[model.ID]model.Document{}
	}
	r.staged[collection][id] = doc
}

func (r *Redis) set(ctx context.Context, collection string, id model.ID, doc model.Document) error {
	bits, err := codec.Marshal(doc)
	if err != nil {
		return errors.StorageFault(err, collection, uint64(id), "failed to encode record")
	}
	r.stage(collection, id, doc.Clone())
	r.pipe.HSet(ctx, hashKey(collection), id.String(), bits)
	return nil
}

func (r *Redis) GetRecord(ctx context.Context, collection string, id model.ID) (model.Document, error) {
	doc, _, err := r.get(ctx, collection, id)
	return doc, err
}

func (r *Redis) InsertRecord(ctx context.Context, collection string, id model.ID, doc model.Document) error {
	if doc.Empty() {
		return errors.StorageFault(errors.New(errors.Validation, "empty document"), collection, uint64(id), "")
	}
	_, ok, err := r.get(ctx, collection, id)
	if err != nil {
		return err
	}
	if ok {
		return errors.StorageFault(errors.New(errors.AlreadyExists, "record already exists"), collection, uint64(id), "")
	}
	return r.set(ctx, collection, id, doc)
}

func (r *Redis) UpdateRecord(ctx context.Context, collection string, id model.ID, fields model.Document) error {
	doc, ok, err := r.get(ctx, collection, id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.StorageFault(errors.New(errors.NotFound, "record does not exist"), collection, uint64(id), "")
	}
	doc.Merge(fields)
	return r.set(ctx, collection, id, doc)
}

func (r *Redis) DeleteRecord(ctx context.Context, collection string, id model.ID) error {
	_, ok, err := r.get(ctx, collection, id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.StorageFault(errors.New(errors.NotFound, "record does not exist"), collection, uint64(id), "")
	}
	r.stage(collection, id, nil)
	r.pipe.HDel(ctx, hashKey(collection), id.String())
	return nil
}

// CommitRecords executes the queued writes in a single MULTI/EXEC transaction
func (r *Redis) CommitRecords(ctx context.Context) error {
	if r.pipe == nil {
		return nil
	}
	pipe := r.pipe
	r.pipe = nil
	r.staged = map[string]map[model.ID]model.Document{}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.StorageFault(err, "", 0, "failed to execute transaction")
	}
	return nil
}

func (r *Redis) GetAllIDs(ctx context.Context, collection string) ([]model.ID, error) {
	fields, err := r.client.HKeys(ctx, hashKey(collection)).Result()
	if err != nil {
		return nil, errors.StorageFault(err, collection, 0, "failed to list records")
	}
	present := map[model.ID]bool{}
	for _, f := range fields {
		id, err := model.ParseID(f)
		if err != nil {
			return nil, errors.StorageFault(err, collection, 0, "unexpected hash field %s", f)
		}
		if err := codec.CheckStoredID(collection, id); err != nil {
			return nil, err
		}
		present[id] = true
	}
	for id, doc := range r.staged[collection] {
		present[id] = doc != nil
	}
	ids := make([]model.ID, 0, len(present))
	for id, ok := range present {
		if ok {
			ids = append(ids, id)
		}
	}
	model.SortIDs(ids)
	return ids, nil
}

// Close discards queued writes and closes the connection pool
func (r *Redis) Close(ctx context.Context) error {
	if r.pipe != nil {
		_ = r.pipe.Discard()
		r.pipe = nil
	}
	r.staged = map[string]map[model.ID]model.Document{}
	if err := r.client.Close(); err != nil {
		return errors.StorageFault(err, "", 0, "failed to close %s", r.client.Options().Addr)
	}
	return nil
}
