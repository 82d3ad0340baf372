package pebble

import (
	"context"
	stderrors "errors"
	"io"

	"github.com/autom8ter/gamedb/backend"
	"github.com/autom8ter/gamedb/backend/codec"
	"github.com/autom8ter/gamedb/backend/registry"
	"github.com/autom8ter/gamedb/errors"
	"github.com/autom8ter/gamedb/model"
	"github.com/cockroachdb/pebble"
	"github.com/spf13/cast"
)

// Kind is the connection string keyword of the pebble backend
const Kind = "Pebble"

func init() {
	registry.Register(Kind, []string{"storage_dir"}, func(params map[string]any) (backend.Backend, error) {
		return Open(cast.ToString(params["storage_dir"]))
	})
}

type config struct {
	cacheSize int64
	sync      bool
}

// Option configures Open
type Option func(c *config)

// WithCacheSize sets the size in bytes of the block cache
func WithCacheSize(size int64) Option {
	return func(c *config) {
		c.cacheSize = size
	}
}

// WithSync sets whether CommitRecords waits for the write ahead log to be synced (default true)
func WithSync(sync bool) Option {
	return func(c *config) {
		c.sync = sync
	}
}

// Pebble stores every collection in one pebble keyspace, keys prefixed by collection name.
// Writes are staged in an indexed batch until CommitRecords.
type Pebble struct {
	db        *pebble.DB
	batch     *pebble.Batch
	writeOpts *pebble.WriteOptions
}

var _ backend.Backend = (*Pebble)(nil)

// Open opens or creates a pebble database in the storage directory
func Open(path string, opts ...Option) (*Pebble, error) {
	if path == "" {
		return nil, errors.New(errors.UnsupportedBackend, "Pebble: empty storage directory")
	}
	cfg := &config{cacheSize: 8 << 20, sync: true}
	for _, o := range opts {
		o(cfg)
	}
	cache := pebble.NewCache(cfg.cacheSize)
	defer cache.Unref()
	db, err := pebble.Open(path, &pebble.Options{Cache: cache})
	if err != nil {
		return nil, errors.Wrap(err, errors.UnsupportedBackend, "Pebble: failed to open %s", path)
	}
	writeOpts := pebble.NoSync
	if cfg.sync {
		writeOpts = pebble.Sync
	}
	return &Pebble{db: db, writeOpts: writeOpts}, nil
}

func (p *Pebble) Kind() string {
	return Kind
}

func (p *Pebble) writeBatch() *pebble.Batch {
	if p.batch == nil {
		p.batch = p.db.NewIndexedBatch()
	}
	return p.batch
}

type reader interface {
	Get(key []byte) ([]byte, io.Closer, error)
	NewIter(o *pebble.IterOptions) (*pebble.Iterator, error)
}

// reader returns the staged batch if there is one so reads observe staged writes
func (p *Pebble) reader() reader {
	if p.batch != nil {
		return p.batch
	}
	return p.db
}

func (p *Pebble) get(r reader, collection string, id model.ID) (model.Document, bool, error) {
	bits, closer, err := r.Get(codec.RecordKey(collection, id))
	if err != nil {
		if stderrors.Is(err, pebble.ErrNotFound) {
			return model.Document{}, false, nil
		}
		return nil, false, errors.StorageFault(err, collection, uint64(id), "failed to read record")
	}
	defer closer.Close()
	doc, err := codec.Unmarshal(bits)
	if err != nil {
		return nil, false, errors.StorageFault(err, collection, uint64(id), "failed to decode record")
	}
	return doc, true, nil
}

func (p *Pebble) set(collection string, id model.ID, doc model.Document) error {
	bits, err := codec.Marshal(doc)
	if err != nil {
		return errors.StorageFault(err, collection, uint64(id), "failed to encode record")
	}
	if err := p.writeBatch().Set(codec.RecordKey(collection, id), bits, nil); err != nil {
		return errors.StorageFault(err, collection, uint64(id), "failed to write record")
	}
	return nil
}

func (p *Pebble) GetRecord(ctx context.Context, collection string, id model.ID) (model.Document, error) {
	doc, _, err := p.get(p.reader(), collection, id)
	return doc, err
}

func (p *Pebble) InsertRecord(ctx context.Context, collection string, id model.ID, doc model.Document) error {
	if doc.Empty() {
		return errors.StorageFault(errors.New(errors.Validation, "empty document"), collection, uint64(id), "")
	}
	_, ok, err := p.get(p.writeBatch(), collection, id)
	if err != nil {
		return err
	}
	if ok {
		return errors.StorageFault(errors.New(errors.AlreadyExists, "record already exists"), collection, uint64(id), "")
	}
	return p.set(collection, id, doc)
}

func (p *Pebble) UpdateRecord(ctx context.Context, collection string, id model.ID, fields model.Document) error {
	doc, ok, err := p.get(p.writeBatch(), collection, id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.StorageFault(errors.New(errors.NotFound, "record does not exist"), collection, uint64(id), "")
	}
	doc.Merge(fields)
	return p.set(collection, id, doc)
}

func (p *Pebble) DeleteRecord(ctx context.Context, collection string, id model.ID) error {
	_, ok, err := p.get(p.writeBatch(), collection, id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.StorageFault(errors.New(errors.NotFound, "record does not exist"), collection, uint64(id), "")
	}
	if err := p.writeBatch().Delete(codec.RecordKey(collection, id), nil); err != nil {
		return errors.StorageFault(err, collection, uint64(id), "failed to delete record")
	}
	return nil
}

// CommitRecords applies the staged batch atomically
func (p *Pebble) CommitRecords(ctx context.Context) error {
	if p.batch == nil {
		return nil
	}
	batch := p.batch
	p.batch = nil
	defer batch.Close()
	if batch.Empty() {
		return nil
	}
	if err := batch.Commit(p.writeOpts); err != nil {
		return errors.StorageFault(err, "", 0, "failed to commit batch")
	}
	return nil
}

func (p *Pebble) GetAllIDs(ctx context.Context, collection string) ([]model.ID, error) {
	prefix := codec.CollectionPrefix(collection)
	iter, err := p.reader().NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: codec.PrefixEnd(prefix),
	})
	if err != nil {
		return nil, errors.StorageFault(err, collection, 0, "failed to list records")
	}
	defer iter.Close()
	ids := []model.ID{}
	for iter.First(); iter.Valid(); iter.Next() {
		id, err := codec.IDFromKey(collection, iter.Key())
		if err != nil {
			return nil, errors.StorageFault(err, collection, 0, "failed to list records")
		}
		if err := codec.CheckStoredID(collection, id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := iter.Error(); err != nil {
		return nil, errors.StorageFault(err, collection, 0, "failed to list records")
	}
	return ids, nil
}

// Close discards the staged batch and closes the database
func (p *Pebble) Close(ctx context.Context) error {
	if p.batch != nil {
		_ = p.batch.Close()
		p.batch = nil
	}
	if err := p.db.Close(); err != nil {
		return errors.StorageFault(err, "", 0, "failed to close")
	}
	return nil
}
