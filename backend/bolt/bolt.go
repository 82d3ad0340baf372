// Package bolt stores every collection in its own single file bbolt database: <storage_dir>/<collection>.bolt
package bolt

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/autom8ter/gamedb/backend"
	"github.com/autom8ter/gamedb/backend/codec"
	"github.com/autom8ter/gamedb/backend/registry"
	"github.com/autom8ter/gamedb/errors"
	"github.com/autom8ter/gamedb/model"
	"github.com/spf13/cast"
	bolt "go.etcd.io/bbolt"
)

// Kind is the connection string keyword of the bolt backend
const Kind = "Bolt"

const (
	ext       = ".bolt"
	probeFile = ".gamedb-probe"
)

var bucket = []byte("records")

func init() {
	registry.Register(Kind, []string{"storage_dir"}, func(params map[string]any) (backend.Backend, error) {
		return Open(cast.ToString(params["storage_dir"]))
	})
}

type collectionFile struct {
	db *bolt.DB
	tx *bolt.Tx
}

// Bolt is a backend over one bbolt file per collection. Writes are staged in a write transaction per touched
// collection until CommitRecords.
type Bolt struct {
	dir         string
	timeout     time.Duration
	collections map[string]*collectionFile
}

var _ backend.Backend = (*Bolt)(nil)

// Opt is an option for Open
type Opt func(b *Bolt)

// WithLockTimeout sets how long opening a collection file waits for another process to release it
func WithLockTimeout(timeout time.Duration) Opt {
	return func(b *Bolt) {
		b.timeout = timeout
	}
}

// Open verifies the storage directory is writable and returns a backend storing collections inside it
func Open(dir string, opts ...Opt) (*Bolt, error) {
	if dir == "" {
		return nil, errors.New(errors.UnsupportedBackend, "Bolt: empty storage directory")
	}
	b := &Bolt{
		dir:         dir,
		timeout:     time.Second,
		collections: map[string]*collectionFile{},
	}
	for _, o := range opts {
		o(b)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.UnsupportedBackend, "Bolt: failed to create storage directory %s", dir)
	}
	probe := filepath.Join(dir, probeFile)
	if err := os.WriteFile(probe, []byte("ping"), 0o600); err != nil {
		return nil, errors.Wrap(err, errors.UnsupportedBackend, "Bolt: storage directory %s is not writable", dir)
	}
	if err := os.Remove(probe); err != nil {
		return nil, errors.Wrap(err, errors.UnsupportedBackend, "Bolt: storage directory %s is not writable", dir)
	}
	return b, nil
}

func (b *Bolt) Kind() string {
	return Kind
}

func (b *Bolt) path(collection string) string {
	return filepath.Join(b.dir, collection+ext)
}

// file returns the open database of a collection. If create is false and the collection has never been written,
// it returns nil.
func (b *Bolt) file(collection string, create bool) (*collectionFile, error) {
	if f, ok := b.collections[collection]; ok {
		return f, nil
	}
	if !create {
		if _, err := os.Stat(b.path(collection)); stderrors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
	}
	db, err := bolt.Open(b.path(collection), 0o600, &bolt.Options{Timeout: b.timeout})
	if err != nil {
		return nil, errors.StorageFault(err, collection, 0, "failed to open collection file")
	}
	f := &collectionFile{db: db}
	b.collections[collection] = f
	return f, nil
}

// writeBucket returns the records bucket of the collection's staged write transaction, beginning one if needed
func (b *Bolt) writeBucket(collection string) (*bolt.Bucket, error) {
	f, err := b.file(collection, true)
	if err != nil {
		return nil, err
	}
	if f.tx == nil {
		tx, err := f.db.Begin(true)
		if err != nil {
			return nil, errors.StorageFault(err, collection, 0, "failed to begin transaction")
		}
		f.tx = tx
	}
	bkt, err := f.tx.CreateBucketIfNotExists(bucket)
	if err != nil {
		return nil, errors.StorageFault(err, collection, 0, "failed to create bucket")
	}
	return bkt, nil
}

// view runs fn against the records bucket, reading through the staged write transaction if there is one.
// fn receives a nil bucket if the collection has no records.
func (b *Bolt) view(collection string, fn func(bkt *bolt.Bucket) error) error {
	f, err := b.file(collection, false)
	if err != nil {
		return err
	}
	if f == nil {
		return fn(nil)
	}
	if f.tx != nil {
		return fn(f.tx.Bucket(bucket))
	}
	return f.db.View(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(bucket))
	})
}

func (b *Bolt) GetRecord(ctx context.Context, collection string, id model.ID) (model.Document, error) {
	doc := model.Document{}
	err := b.view(collection, func(bkt *bolt.Bucket) error {
		if bkt == nil {
			return nil
		}
		bits := bkt.Get(id.Bytes())
		if bits == nil {
			return nil
		}
		decoded, err := codec.Unmarshal(bits)
		if err != nil {
			return errors.StorageFault(err, collection, uint64(id), "failed to decode record")
		}
		doc = decoded
		return nil
	})
	if err != nil {
		return nil, errors.StorageFault(err, collection, uint64(id), "")
	}
	return doc, nil
}

func (b *Bolt) InsertRecord(ctx context.Context, collection string, id model.ID, doc model.Document) error {
	if doc.Empty() {
		return errors.StorageFault(errors.New(errors.Validation, "empty document"), collection, uint64(id), "")
	}
	bkt, err := b.writeBucket(collection)
	if err != nil {
		return err
	}
	if bkt.Get(id.Bytes()) != nil {
		return errors.StorageFault(errors.New(errors.AlreadyExists, "record already exists"), collection, uint64(id), "")
	}
	return b.put(bkt, collection, id, doc)
}

func (b *Bolt) put(bkt *bolt.Bucket, collection string, id model.ID, doc model.Document) error {
	bits, err := codec.Marshal(doc)
	if err != nil {
		return errors.StorageFault(err, collection, uint64(id), "failed to encode record")
	}
	if err := bkt.Put(id.Bytes(), bits); err != nil {
		return errors.StorageFault(err, collection, uint64(id), "failed to write record")
	}
	return nil
}

func (b *Bolt) UpdateRecord(ctx context.Context, collection string, id model.ID, fields model.Document) error {
	bkt, err := b.writeBucket(collection)
	if err != nil {
		return err
	}
	bits := bkt.Get(id.Bytes())
	if bits == nil {
		return errors.StorageFault(errors.New(errors.NotFound, "record does not exist"), collection, uint64(id), "")
	}
	doc, err := codec.Unmarshal(bits)
	if err != nil {
		return errors.StorageFault(err, collection, uint64(id), "failed to decode record")
	}
	doc.Merge(fields)
	return b.put(bkt, collection, id, doc)
}

func (b *Bolt) DeleteRecord(ctx context.Context, collection string, id model.ID) error {
	bkt, err := b.writeBucket(collection)
	if err != nil {
		return err
	}
	if bkt.Get(id.Bytes()) == nil {
		return errors.StorageFault(errors.New(errors.NotFound, "record does not exist"), collection, uint64(id), "")
	}
	if err := bkt.Delete(id.Bytes()); err != nil {
		return errors.StorageFault(err, collection, uint64(id), "failed to delete record")
	}
	return nil
}

// CommitRecords commits the staged write transaction of every touched collection
func (b *Bolt) CommitRecords(ctx context.Context) error {
	names := make([]string, 0, len(b.collections))
	for name := range b.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := b.collections[name]
		if f.tx == nil {
			continue
		}
		tx := f.tx
		f.tx = nil
		if err := tx.Commit(); err != nil {
			return errors.StorageFault(err, name, 0, "failed to commit transaction")
		}
	}
	return nil
}

func (b *Bolt) GetAllIDs(ctx context.Context, collection string) ([]model.ID, error) {
	ids := []model.ID{}
	err := b.view(collection, func(bkt *bolt.Bucket) error {
		if bkt == nil {
			return nil
		}
		return bkt.ForEach(func(k, _ []byte) error {
			id, err := model.IDFromBytes(k)
			if err != nil {
				return err
			}
			if err := codec.CheckStoredID(collection, id); err != nil {
				return err
			}
			ids = append(ids, id)
			return nil
		})
	})
	if err != nil {
		return nil, errors.StorageFault(err, collection, 0, "failed to list records")
	}
	return ids, nil
}

// Close rolls back staged writes and closes every collection file
func (b *Bolt) Close(ctx context.Context) error {
	var first error
	for name, f := range b.collections {
		if f.tx != nil {
			_ = f.tx.Rollback()
			f.tx = nil
		}
		if err := f.db.Close(); err != nil && first == nil {
			first = errors.StorageFault(err, name, 0, "failed to close collection file")
		}
		delete(b.collections, name)
	}
	return first
}
